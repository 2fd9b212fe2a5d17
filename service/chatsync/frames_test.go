package chatsync

import (
	"encoding/json"
	"testing"

	"MediChat/module/chat/model"
	errs "MediChat/tools/errs"
)

func TestParseFrameMalformed(t *testing.T) {
	for _, raw := range []string{`{not json`, `{"limit":5}`} {
		if _, err := ParseFrame([]byte(raw)); errs.Code(err) != errs.MalformedFrameError {
			t.Errorf("ParseFrame(%q) err = %v, want malformed-frame code", raw, err)
		}
	}
}

func TestErrorFrameCarriesStringMessage(t *testing.T) {
	raw := []byte(`{"type":"error","message":"Not authorized to send to this conversation"}`)
	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Type != FrameError {
		t.Fatalf("type = %q", f.Type)
	}
	if got := f.ErrorText(); got != "Not authorized to send to this conversation" {
		t.Errorf("ErrorText = %q", got)
	}
}

func TestEventFrameCarriesMessageObject(t *testing.T) {
	raw := []byte(`{"type":"new_message","message":{"id":42,"conversationId":5,"senderId":7,"content":"hola","type":"text"}}`)
	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	m, err := f.MessageBody()
	if err != nil {
		t.Fatalf("MessageBody: %v", err)
	}
	if m.ID != 42 || m.ConversationID != 5 || m.SenderID != 7 {
		t.Errorf("unexpected body %+v", m)
	}
	if m.Type != model.MessageTypeText {
		t.Errorf("type = %q", m.Type)
	}
}

func TestMessageBodyMissing(t *testing.T) {
	f := &Frame{Type: FrameNewMessage}
	if _, err := f.MessageBody(); errs.Code(err) != errs.MalformedFrameError {
		t.Errorf("err = %v, want malformed-frame code", err)
	}
}

func TestBuildAuthenticateWire(t *testing.T) {
	id := model.Identity{UserID: 7, UserType: model.RolePatient}
	data, err := EncodeFrame(BuildAuthenticate(id, "tok"))
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "authenticate" {
		t.Errorf("type = %v", got["type"])
	}
	payload, _ := got["payload"].(map[string]any)
	if payload["userId"] != float64(7) || payload["userType"] != "patient" || payload["token"] != "tok" {
		t.Errorf("payload = %v", payload)
	}
}

func TestBuildSendMessageIncludesFileFields(t *testing.T) {
	f := BuildSendMessage(5, "report attached", model.MessageTypeFile, &model.FileInfo{
		URL:  "https://files.example/r.pdf",
		Name: "r.pdf",
		Size: 1024,
	})
	data, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["fileUrl"] != "https://files.example/r.pdf" || got["fileName"] != "r.pdf" || got["fileSize"] != float64(1024) {
		t.Errorf("file fields = %v", got)
	}
	if got["messageType"] != "file" {
		t.Errorf("messageType = %v", got["messageType"])
	}
}

func TestMessageEventRoundTrip(t *testing.T) {
	src := model.Message{ID: 9, ConversationID: 5, SenderID: 1, Content: "hey", Type: model.MessageTypeText}
	data, err := EncodeFrame(BuildMessageEvent(FrameMessageSent, src))
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	f, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	m, err := f.MessageBody()
	if err != nil {
		t.Fatalf("MessageBody: %v", err)
	}
	if m.ID != src.ID || m.Content != src.Content {
		t.Errorf("round trip lost data: %+v", m)
	}
}

func TestConversationsFrameRoundTrip(t *testing.T) {
	list := []model.Conversation{{ID: 5, DoctorID: 1, PatientID: 7, UnreadCount: 3}}
	data, err := EncodeFrame(BuildConversations(list))
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	f, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if len(f.Conversations) != 1 || f.Conversations[0].ID != 5 || f.Conversations[0].UnreadCount != 3 {
		t.Errorf("round trip lost data: %+v", f.Conversations)
	}
}
