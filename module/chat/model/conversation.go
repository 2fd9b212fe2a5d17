package model

import "time"

// Participant is the denormalized summary of the other party in a
// conversation, enough for a list row without a profile lookup.
type Participant struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// Conversation is a two-party thread between a doctor and a patient.
// UnreadCount is maintained client-side: it grows by one per inbound unread
// peer message and drops to zero when the thread's history is fetched.
type Conversation struct {
	ID            int64       `json:"id"`
	DoctorID      int64       `json:"doctorId"`
	PatientID     int64       `json:"patientId"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	LastMessageAt time.Time   `json:"lastMessageAt"`
	UnreadCount   int         `json:"unreadCount"`
	Participant   Participant `json:"participant"`
}

// PeerID returns the participant on the other side of the thread.
func (c *Conversation) PeerID(userID int64) int64 {
	if c.DoctorID == userID {
		return c.PatientID
	}
	return c.DoctorID
}

// Involves reports whether userID is one of the two parties.
func (c *Conversation) Involves(userID int64) bool {
	return c.DoctorID == userID || c.PatientID == userID
}
