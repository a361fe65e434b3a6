package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrUnavailable       = errors.New("server unavailable")
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is an error response of the API. It matches its Kind with
// errors.Is and keeps the server's detail text for display.
type APIError struct {
	Kind       error
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		if e.Detail == "" {
			return e.Kind.Error()
		}
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error { return e.Kind }

// Validation returns a local validation error carrying msg as user text.
func Validation(msg string) error {
	return &APIError{Kind: ErrValidation, Detail: msg}
}

// Message returns the text to show to a user for err: the server-provided
// detail when there is one, a generic description of the error kind
// otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrNotFound):
		return "The requested item was not found."
	case errors.Is(err, ErrUnavailable):
		return "The server could not be reached. Please try again."
	case errors.Is(err, ErrMalformedResponse):
		return "The server sent an unexpected response."
	case errors.Is(err, ErrServer):
		return "The server failed to process the request."
	}
	return err.Error()
}

func kindForStatus(code int) error {
	switch {
	case code == 401 || code == 403:
		return ErrUnauthorized
	case code == 404:
		return ErrNotFound
	case code == 502 || code == 503 || code == 504:
		return ErrUnavailable
	case code >= 500:
		return ErrServer
	case code >= 400:
		return ErrValidation
	}
	return ErrMalformedResponse
}
