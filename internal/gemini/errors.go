package gemini

import (
	"errors"
	"fmt"
)

// Sentinel errors for Gemini API operations.
var (
	ErrDisabled     = errors.New("gemini: no API key configured")
	ErrUnauthorized = errors.New("gemini: invalid or unauthorized API key")
	ErrRateLimited  = errors.New("gemini: rate limited by server")
	ErrBadRequest   = errors.New("gemini: bad request")
	ErrServer       = errors.New("gemini: server error")
	ErrEmptyReply   = errors.New("gemini: empty model reply")
	ErrUnparseable  = errors.New("gemini: unparseable model reply")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op    string // Operation: "classify", "describe"
	Model string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gemini %s [%s]: %v", e.Op, e.Model, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, model string, err error) error {
	return &Error{
		Op:    op,
		Model: model,
		Err:   err,
	}
}
