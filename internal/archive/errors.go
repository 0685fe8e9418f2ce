package archive

import (
	"errors"
	"fmt"
)

// Sentinel errors for archive API operations.
var (
	ErrNotFound          = errors.New("archive: not found")
	ErrRateLimited       = errors.New("archive: rate limited by server")
	ErrBadRequest        = errors.New("archive: bad request")
	ErrServer            = errors.New("archive: server error")
	ErrAssetTooLarge     = errors.New("archive: asset exceeds size limit")
	ErrInvalidIdentifier = errors.New("archive: invalid identifier format")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op         string // Operation: "fetchPage", "downloadAsset"
	Identifier string // If applicable
	Err        error
}

func (e *Error) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("archive %s [%s]: %v", e.Op, e.Identifier, e.Err)
	}
	return fmt.Sprintf("archive %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, identifier string, err error) error {
	return &Error{
		Op:         op,
		Identifier: identifier,
		Err:        err,
	}
}
