package chatsync

import (
	"sync"

	"MediChat/module/chat/model"
)

// Store is the authoritative client-side view of conversations and their
// message lists. It is mutated only by ConnectionManager frame handlers;
// everything external reads copies through Snapshot.
//
// Message lists keep server push order. Duplicated pushes converge through
// the idempotent upsert in ApplyMessage.
type Store struct {
	mu sync.RWMutex

	conversations []model.Conversation
	convIdx       map[int64]int // conversation id -> slice index

	messages map[int64][]model.Message // conversation id -> ordered list
	msgIdx   map[int64]int64           // message id -> conversation id
}

func NewStore() *Store {
	return &Store{
		convIdx:  make(map[int64]int),
		messages: make(map[int64][]model.Message),
		msgIdx:   make(map[int64]int64),
	}
}

// ReplaceConversations swaps in a full snapshot from a conversations frame.
func (s *Store) ReplaceConversations(list []model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make([]model.Conversation, len(list))
	copy(s.conversations, list)
	s.convIdx = make(map[int64]int, len(list))
	for i := range s.conversations {
		s.convIdx[s.conversations[i].ID] = i
	}
}

// ReplaceMessages swaps one conversation's message list from a messages
// frame and resets its unread counter: fetching history is the read point.
func (s *Store) ReplaceMessages(conversationID int64, msgs []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// drop stale index entries for the old list
	for _, old := range s.messages[conversationID] {
		delete(s.msgIdx, old.ID)
	}

	list := make([]model.Message, len(msgs))
	copy(list, msgs)
	s.messages[conversationID] = list
	for i := range list {
		s.msgIdx[list[i].ID] = conversationID
	}

	if i, ok := s.convIdx[conversationID]; ok {
		s.conversations[i].UnreadCount = 0
	}
}

// ApplyMessage upserts one message into its conversation's list. A message
// with a known id is merged in place (delivery confirmations, read flags);
// an unknown id is appended. Applying the same payload twice yields the
// state of applying it once. Returns true when the message was new.
func (s *Store) ApplyMessage(m model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.messages[m.ConversationID]
	for i := range list {
		if list[i].ID == m.ID {
			list[i] = m
			s.touchLocked(m)
			return false
		}
	}
	s.messages[m.ConversationID] = append(list, m)
	s.msgIdx[m.ID] = m.ConversationID
	s.touchLocked(m)
	return true
}

// touchLocked bumps the owning conversation's activity timestamps.
func (s *Store) touchLocked(m model.Message) {
	i, ok := s.convIdx[m.ConversationID]
	if !ok {
		return
	}
	if m.CreatedAt.After(s.conversations[i].LastMessageAt) {
		s.conversations[i].LastMessageAt = m.CreatedAt
	}
	if m.UpdatedAt.After(s.conversations[i].UpdatedAt) {
		s.conversations[i].UpdatedAt = m.UpdatedAt
	}
}

// MarkRead flips the isRead flag of the referenced message. The messageId ->
// conversationId index replaces the linear scan over every conversation.
// No-op (false) when the message is not known locally.
func (s *Store) MarkRead(messageID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cid, ok := s.msgIdx[messageID]
	if !ok {
		return false
	}
	list := s.messages[cid]
	for i := range list {
		if list[i].ID == messageID {
			list[i].IsRead = true
			return true
		}
	}
	return false
}

// IncrementUnread bumps a conversation's unread counter. The caller decides
// eligibility (peer-authored, not yet read, newly inserted).
func (s *Store) IncrementUnread(conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.convIdx[conversationID]; ok {
		s.conversations[i].UnreadCount++
	}
}

// ResetUnread zeroes a conversation's unread counter.
func (s *Store) ResetUnread(conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.convIdx[conversationID]; ok {
		s.conversations[i].UnreadCount = 0
	}
}

// AddConversation appends a conversation if its id is not present yet.
// Returns true when it was added.
func (s *Store) AddConversation(c model.Conversation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convIdx[c.ID]; ok {
		return false
	}
	s.conversations = append(s.conversations, c)
	s.convIdx[c.ID] = len(s.conversations) - 1
	return true
}

// Conversation returns a copy of one conversation.
func (s *Store) Conversation(id int64) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.convIdx[id]
	if !ok {
		return model.Conversation{}, false
	}
	return s.conversations[i], true
}

// Copy returns deep copies of the conversation list and message map.
func (s *Store) Copy() ([]model.Conversation, map[int64][]model.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]model.Conversation, len(s.conversations))
	copy(convs, s.conversations)

	msgs := make(map[int64][]model.Message, len(s.messages))
	for cid, list := range s.messages {
		cp := make([]model.Message, len(list))
		copy(cp, list)
		msgs[cid] = cp
	}
	return convs, msgs
}
