package chathub

import "errors"

// ValidationError is returned for requests that can never succeed as sent.
// Reason is what the client sees in its acknowledgement.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "chathub: invalid request: " + e.Reason
}

var (
	ErrMissingFields = &ValidationError{Reason: "Missing fields"}
	ErrEmptyMessage  = &ValidationError{Reason: "Empty message"}
	ErrInvalidType   = &ValidationError{Reason: "Invalid message type"}
	ErrWrongSender   = &ValidationError{Reason: "Sender mismatch"}

	// ErrMissingCode is the protocol error for a handshake without a user code.
	// It terminates that connection only.
	ErrMissingCode = errors.New("chathub: missing code in connection query")
)

const (
	// MissingCodeMessage is sent as the "error" event before the connection is dropped.
	MissingCodeMessage = "Missing code in connection query"

	// serverErrorReason is the generic acknowledgement for store failures.
	serverErrorReason = "server error"
)
