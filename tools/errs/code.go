package errs

// Error codes surfaced by the messaging sync client. Grouped so that
// DefaultCodeRelation can treat the generic connectivity code as the parent
// of the more specific transport failures.
const (
	ServerInternalError = 500

	// 12xx: connectivity
	NotConnectedError       = 1201
	ReconnectExhaustedError = 1202
	TransportWriteError     = 1203

	// 13xx: protocol
	MalformedFrameError   = 1301
	UnknownFrameTypeError = 1302

	// 14xx: application / request
	ServerRejectedError = 1401
	RequestTimeoutError = 1402
	RequestCanceledErr  = 1403

	// 15xx: auth
	AuthFailedError = 1501
)

var (
	ErrInternal           = NewCodeError(ServerInternalError, "internal error")
	ErrNotConnected       = NewCodeError(NotConnectedError, "not connected to chat server")
	ErrReconnectExhausted = NewCodeError(ReconnectExhaustedError, "reconnect attempts exhausted")
	ErrTransportWrite     = NewCodeError(TransportWriteError, "transport write failed")
	ErrMalformedFrame     = NewCodeError(MalformedFrameError, "malformed frame")
	ErrUnknownFrameType   = NewCodeError(UnknownFrameTypeError, "unknown frame type")
	ErrServerRejected     = NewCodeError(ServerRejectedError, "server rejected request")
	ErrRequestTimeout     = NewCodeError(RequestTimeoutError, "request timed out")
	ErrRequestCanceled    = NewCodeError(RequestCanceledErr, "request canceled")
	ErrAuthFailed         = NewCodeError(AuthFailedError, "authentication failed")
)

func init() {
	// Exhausted reconnects behave as "not connected" for callers gating
	// commands on connectivity.
	_ = DefaultCodeRelation.Add(NotConnectedError, ReconnectExhaustedError)
}
