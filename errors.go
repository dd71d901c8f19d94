package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/aquilax/sitetree/node"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type HTTPError struct {
	Err        error
	Message    string
	Code       int
	RetryAfter time.Duration
	Fields     validation.Errors
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// toHTTPError maps the node error kinds onto status codes. Conflicts are
// the only retryable kind and carry a Retry-After hint.
func toHTTPError(err error) *HTTPError {
	var httpError *HTTPError
	if errors.As(err, &httpError) {
		return httpError
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &HTTPError{Err: err, Message: "Invalid request", Code: http.StatusBadRequest, Fields: fields}
	}
	switch {
	case errors.Is(err, node.ErrNotFound):
		return &HTTPError{Err: err, Message: "Not found", Code: http.StatusNotFound}
	case errors.Is(err, node.ErrCycleDetected):
		return &HTTPError{Err: err, Message: "A node cannot be moved below itself", Code: http.StatusConflict}
	case errors.Is(err, node.ErrDepthExceeded):
		return &HTTPError{Err: err, Message: "The tree is too deep", Code: http.StatusUnprocessableEntity}
	case errors.Is(err, node.ErrInvalidArgument):
		return &HTTPError{Err: err, Message: "Invalid request", Code: http.StatusBadRequest}
	case errors.Is(err, node.ErrAlreadyExists):
		return &HTTPError{Err: err, Message: "Already exists", Code: http.StatusConflict}
	case errors.Is(err, node.ErrConflict):
		return &HTTPError{Err: err, Message: "Concurrent change, try again", Code: http.StatusConflict, RetryAfter: time.Second}
	}
	// Default to 500 Internal Server Error
	return &HTTPError{Err: err, Message: "Internal server error", Code: http.StatusInternalServerError}
}
