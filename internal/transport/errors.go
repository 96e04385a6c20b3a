package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired indicates the token refresh failed or no refresh
	// token was stored; all session state has been cleared.
	ErrSessionExpired = errors.New("session expired")
	// ErrUnreachable indicates the backend could not be reached.
	ErrUnreachable = errors.New("backend unreachable")
)

// StatusError is a non-2xx response from the backend, with the raw body
// preserved so callers can decode structured error payloads.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}
