package apperr

import "fmt"

// Kind classifies request failures into the categories the API exposes.
// Handlers return these instead of raw driver or library errors so the
// boundary can map them to stable status codes and messages.
type Kind int

const (
	// Unauthenticated: no credential was presented at all.
	Unauthenticated Kind = iota
	// InvalidCredential: the credential was malformed, expired, badly
	// signed, or its subject does not resolve to an account. The cases
	// share one client-visible message.
	InvalidCredential
	// ValidationFailed: the input violates its declared schema.
	ValidationFailed
	// ValidationEngineError: the validator itself misbehaved.
	ValidationEngineError
	// NotFoundOrNotOwned: the resource does not exist or belongs to a
	// different account; callers cannot tell which.
	NotFoundOrNotOwned
	// Conflict: duplicate identity on signup.
	Conflict
	// PersistenceFailure: the store rejected or rolled back the operation.
	PersistenceFailure
)

// Error carries a Kind plus the wrapped cause. Msg is safe to show to
// clients; the cause is for logs only.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a client-safe message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a cause that must never reach the client.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
