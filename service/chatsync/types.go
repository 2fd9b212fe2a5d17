package chatsync

import (
	"MediChat/module/chat/model"
)

// State is the connection lifecycle position. Transitions are driven by
// transport events and frames, never by callers directly.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateAuthenticating
	StateOpen
	StateClosing
	StateClosed
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Severity grades a user-facing notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier is the toast/notification sink the UI layer plugs in. Errors
// worth the user's attention (acting while disconnected, server rejections,
// exhausted reconnects) go through here.
type Notifier interface {
	Notify(title, description string, severity Severity)
}

// NopNotifier drops everything. Used when no sink is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string, Severity) {}

// Snapshot is the read surface handed to subscribers: connection flags plus
// deep copies of the conversation list and per-conversation message lists.
type Snapshot struct {
	Connected     bool
	Connecting    bool
	Conversations []model.Conversation
	Messages      map[int64][]model.Message
}
