package broker

import (
	"fmt"
	"sync"
	"time"

	"MediChat/module/chat/model"
	"MediChat/tools/ids"
)

// Store is the broker's in-memory state: conversations and their message
// lists, newest last. Nothing is persisted; this broker exists for dev and
// test runs of the wire protocol.
type Store struct {
	mu            sync.RWMutex
	conversations map[int64]*model.Conversation
	order         []int64
	messages      map[int64][]model.Message
	msgConv       map[int64]int64 // message id -> conversation id
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[int64]*model.Conversation),
		messages:      make(map[int64][]model.Message),
		msgConv:       make(map[int64]int64),
	}
}

// EnsureConversation returns the thread for (doctor, patient), creating it
// on first use. Created is false when the pair already had one.
func (s *Store) EnsureConversation(doctorID, patientID int64) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		c := s.conversations[id]
		if c.DoctorID == doctorID && c.PatientID == patientID {
			return *c, false
		}
	}

	now := time.Now().UTC()
	c := &model.Conversation{
		ID:        ids.Generate(),
		DoctorID:  doctorID,
		PatientID: patientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[c.ID] = c
	s.order = append(s.order, c.ID)
	return *c, true
}

// Conversation returns a copy of one thread.
func (s *Store) Conversation(id int64) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return model.Conversation{}, false
	}
	return *c, true
}

// ConversationsFor lists the threads visible to an identity, shaped for
// that viewer: the participant summary describes the other party and
// unreadCount counts unread peer messages.
func (s *Store) ConversationsFor(id model.Identity) []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Conversation, 0, 4)
	for _, cid := range s.order {
		c := s.conversations[cid]
		switch id.UserType {
		case model.RoleDoctor:
			if c.DoctorID != id.UserID {
				continue
			}
		case model.RolePatient:
			if c.PatientID != id.UserID {
				continue
			}
		case model.RoleAdmin:
			// admins see everything
		default:
			continue
		}
		out = append(out, s.viewForLocked(c, id.UserID))
	}
	return out
}

func (s *Store) viewForLocked(c *model.Conversation, viewer int64) model.Conversation {
	v := *c
	peer := c.PeerID(viewer)
	role := model.RoleDoctor
	if peer == c.PatientID {
		role = model.RolePatient
	}
	v.Participant = model.Participant{
		ID:   peer,
		Name: fmt.Sprintf("%s-%d", role, peer),
		Role: role,
	}
	unread := 0
	for _, m := range s.messages[c.ID] {
		if m.SenderID != viewer && !m.IsRead {
			unread++
		}
	}
	v.UnreadCount = unread
	return v
}

// ViewFor shapes one conversation for a viewer.
func (s *Store) ViewFor(conversationID, viewer int64) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return model.Conversation{}, false
	}
	return s.viewForLocked(c, viewer), true
}

// Messages returns up to limit most recent messages of a thread, oldest
// first.
func (s *Store) Messages(conversationID int64, limit int) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.messages[conversationID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]model.Message, len(list))
	copy(out, list)
	return out
}

// AppendMessage assigns the server id and timestamps and stores the
// message.
func (s *Store) AppendMessage(m model.Message, delivered bool) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	m.ID = ids.Generate()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.IsDelivered = delivered
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)
	s.msgConv[m.ID] = m.ConversationID

	if c, ok := s.conversations[m.ConversationID]; ok {
		c.LastMessageAt = now
		c.UpdatedAt = now
	}
	return m
}

// MarkRead flips a message's read flag and returns the updated copy.
func (s *Store) MarkRead(messageID int64) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cid, ok := s.msgConv[messageID]
	if !ok {
		return model.Message{}, false
	}
	list := s.messages[cid]
	for i := range list {
		if list[i].ID == messageID {
			list[i].IsRead = true
			list[i].UpdatedAt = time.Now().UTC()
			return list[i], true
		}
	}
	return model.Message{}, false
}
