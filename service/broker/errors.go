package broker

import "github.com/pkg/errors"

var (
	errConversationNotFound = errors.New("conversation not found")
	errMessageNotFound      = errors.New("message not found")
	errNotParticipant       = errors.New("not a participant of this conversation")
	errBadConversationPair  = errors.New("doctorId and patientId are required")
)
