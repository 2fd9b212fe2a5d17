package chatsync

import (
	"encoding/json"

	"MediChat/module/chat/model"
	errs "MediChat/tools/errs"
)

// FrameType tags one JSON frame on the wire.
type FrameType string

// Client -> server frame types.
const (
	FrameAuthenticate       FrameType = "authenticate"
	FrameGetConversations   FrameType = "get_conversations"
	FrameGetMessages        FrameType = "get_messages"
	FrameMessage            FrameType = "message"
	FrameReadMessage        FrameType = "read_message"
	FrameCreateConversation FrameType = "create_conversation"
)

// Server -> client frame types.
const (
	FrameWelcome             FrameType = "welcome"
	FrameAuthSuccess         FrameType = "auth_success"
	FrameError               FrameType = "error"
	FrameConversations       FrameType = "conversations"
	FrameMessages            FrameType = "messages"
	FrameNewMessage          FrameType = "new_message"
	FrameMessageSent         FrameType = "message_sent"
	FrameMessageRead         FrameType = "message_read"
	FrameConversationCreated FrameType = "conversation_created"
)

// AuthPayload rides on the authenticate frame. Token is optional; the
// broker verifies it only when a JWT secret is configured.
type AuthPayload struct {
	UserID   int64      `json:"userId"`
	UserType model.Role `json:"userType"`
	Token    string     `json:"token,omitempty"`
}

// Frame is the single envelope for every protocol message, inbound and
// outbound. Fields beyond Type are populated per frame type.
//
// The "message" key is polymorphic on the wire: a string on error frames,
// a Message object on new_message/message_sent. It stays raw here and is
// decoded through ErrorText/MessageBody.
type Frame struct {
	Type FrameType `json:"type"`

	Payload *AuthPayload `json:"payload,omitempty"`

	ConversationID int64             `json:"conversationId,omitempty"`
	Limit          int               `json:"limit,omitempty"`
	Content        string            `json:"content,omitempty"`
	MessageType    model.MessageType `json:"messageType,omitempty"`
	FileURL        string            `json:"fileUrl,omitempty"`
	FileName       string            `json:"fileName,omitempty"`
	FileSize       int64             `json:"fileSize,omitempty"`
	MessageID      int64             `json:"messageId,omitempty"`
	DoctorID       int64             `json:"doctorId,omitempty"`
	PatientID      int64             `json:"patientId,omitempty"`

	Message       json.RawMessage      `json:"message,omitempty"`
	Messages      []model.Message      `json:"messages,omitempty"`
	Conversation  *model.Conversation  `json:"conversation,omitempty"`
	Conversations []model.Conversation `json:"conversations,omitempty"`
}

// ParseFrame decodes one wire frame. Unknown keys are ignored.
func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.ErrMalformedFrame.WrapMsg(err.Error())
	}
	if f.Type == "" {
		return nil, errs.ErrMalformedFrame.WrapMsg("missing type")
	}
	return f, nil
}

// EncodeFrame renders a frame for the wire.
func EncodeFrame(f *Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, errs.ErrMalformedFrame.WrapMsg("marshal", "type", f.Type)
	}
	return data, nil
}

// ErrorText extracts the error description from an error frame.
func (f *Frame) ErrorText() string {
	var s string
	if err := json.Unmarshal(f.Message, &s); err == nil {
		return s
	}
	return string(f.Message)
}

// MessageBody extracts the Message object from a new_message/message_sent
// frame.
func (f *Frame) MessageBody() (*model.Message, error) {
	if len(f.Message) == 0 {
		return nil, errs.ErrMalformedFrame.WrapMsg("missing message body", "type", f.Type)
	}
	var m model.Message
	if err := json.Unmarshal(f.Message, &m); err != nil {
		return nil, errs.ErrMalformedFrame.WrapMsg(err.Error(), "type", f.Type)
	}
	return &m, nil
}

// ---- outbound builders (client side) ----

func BuildAuthenticate(id model.Identity, token string) *Frame {
	return &Frame{
		Type: FrameAuthenticate,
		Payload: &AuthPayload{
			UserID:   id.UserID,
			UserType: id.UserType,
			Token:    token,
		},
	}
}

func BuildGetConversations() *Frame {
	return &Frame{Type: FrameGetConversations}
}

func BuildGetMessages(conversationID int64, limit int) *Frame {
	return &Frame{
		Type:           FrameGetMessages,
		ConversationID: conversationID,
		Limit:          limit,
	}
}

func BuildSendMessage(conversationID int64, content string, mt model.MessageType, file *model.FileInfo) *Frame {
	f := &Frame{
		Type:           FrameMessage,
		ConversationID: conversationID,
		Content:        content,
		MessageType:    mt,
	}
	if file != nil {
		f.FileURL = file.URL
		f.FileName = file.Name
		f.FileSize = file.Size
	}
	return f
}

func BuildReadMessage(messageID int64) *Frame {
	return &Frame{Type: FrameReadMessage, MessageID: messageID}
}

func BuildCreateConversation(doctorID, patientID int64) *Frame {
	return &Frame{
		Type:      FrameCreateConversation,
		DoctorID:  doctorID,
		PatientID: patientID,
	}
}

// ---- inbound builders (broker side) ----

func BuildWelcome() *Frame {
	return &Frame{Type: FrameWelcome}
}

func BuildAuthSuccess() *Frame {
	return &Frame{Type: FrameAuthSuccess}
}

func BuildError(text string) *Frame {
	raw, _ := json.Marshal(text)
	return &Frame{Type: FrameError, Message: raw}
}

func BuildConversations(list []model.Conversation) *Frame {
	if list == nil {
		list = []model.Conversation{}
	}
	return &Frame{Type: FrameConversations, Conversations: list}
}

func BuildMessages(conversationID int64, msgs []model.Message) *Frame {
	if msgs == nil {
		msgs = []model.Message{}
	}
	return &Frame{Type: FrameMessages, ConversationID: conversationID, Messages: msgs}
}

// BuildMessageEvent wraps a message into a new_message or message_sent frame.
func BuildMessageEvent(t FrameType, m model.Message) *Frame {
	raw, _ := json.Marshal(m)
	return &Frame{Type: t, Message: raw}
}

func BuildMessageRead(messageID int64) *Frame {
	return &Frame{Type: FrameMessageRead, MessageID: messageID}
}

func BuildConversationCreated(c model.Conversation) *Frame {
	return &Frame{Type: FrameConversationCreated, Conversation: &c}
}
