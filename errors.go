package cilantro

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an HTTP-aware error. Handlers return it to control the
// response status; the error handler maps everything else to 500.
type Error struct {
	Status  int
	Message string
	Err     error
}

// NewError creates an Error with the given status and message.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinel errors for the dispatch outcomes handlers most often need.
var (
	ErrNotFound         = NewError(http.StatusNotFound, "not found")
	ErrMethodNotAllowed = NewError(http.StatusMethodNotAllowed, "method not allowed")
	ErrBodyTooLarge     = NewError(http.StatusRequestEntityTooLarge, "request body too large")
	ErrUnsupportedMedia = NewError(http.StatusUnsupportedMediaType, "unsupported media type")
)

// StatusOf maps an error to its HTTP status code. Unrecognized
// errors report 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}

	return http.StatusInternalServerError
}
