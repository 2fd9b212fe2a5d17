package model

import "time"

// MessageType is the content kind carried by a message.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// Message is one unit of conversation content. The id is server-assigned
// and stable once assigned; later frames referencing the same id mutate the
// local copy in place (delivery confirmation, read receipts).
type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversationId"`
	SenderID       int64       `json:"senderId"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	IsRead         bool        `json:"isRead"`
	IsDelivered    bool        `json:"isDelivered"`

	// File metadata, set only for image/file messages.
	FileURL  string `json:"fileUrl,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// FileInfo is the optional attachment descriptor passed alongside an
// outbound image/file message.
type FileInfo struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}
