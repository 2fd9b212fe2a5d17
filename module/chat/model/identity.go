package model

// Role is the authenticated user kind. It decides which side of a
// conversation a user sits on and which threads a connection may see.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Identity is the (user id, role) tuple that keys a connection. Two
// identities are the same connection key iff both fields match.
type Identity struct {
	UserID   int64 `json:"userId"`
	UserType Role  `json:"userType"`
}

// Zero reports whether the identity is unset.
func (id Identity) Zero() bool {
	return id.UserID == 0 && id.UserType == ""
}
