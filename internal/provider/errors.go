package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	ErrRateLimited    = errors.New("provider: rate limited by server")
	ErrBadRequest     = errors.New("provider: bad request")
	ErrServer         = errors.New("provider: server error")
	ErrUnavailable    = errors.New("provider: circuit open")
	ErrMalformed      = errors.New("provider: malformed response")
	ErrMissingBaseURL = errors.New("provider: base URL is required")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op       string // Operation: "fetch", "probe"
	Provider string
	Tag      string
	Page     int // If applicable
	Err      error
}

func (e *Error) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s %s [%s p%d]: %v", e.Provider, e.Op, e.Tag, e.Page, e.Err)
	}
	return fmt.Sprintf("%s %s [%s]: %v", e.Provider, e.Op, e.Tag, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError creates an Error with context.
func WrapError(op, provider, tag string, page int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Provider: provider, Tag: tag, Page: page, Err: err}
}

// IsPermanent reports whether retrying the same request cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrBadRequest)
}
