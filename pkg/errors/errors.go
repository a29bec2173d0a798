package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthRequiredMessage is the user-visible message for a missing admin token.
// The UI keys its login redirect off this exact text.
const AuthRequiredMessage = "Authentication required"

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")

	// ErrAuthRequired means no token was present; no request was sent.
	ErrAuthRequired = errors.New(AuthRequiredMessage)
	// ErrTransport wraps failures below HTTP (offline, DNS, refused).
	ErrTransport = errors.New("backend unreachable")
	// ErrShapeMismatch means a 2xx body matched no known response layout.
	ErrShapeMismatch = errors.New("unrecognized response shape")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// RequestError is a non-2xx answer from the backend API. Message is what the
// backend said, or a generic status line when the body carried nothing usable.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// Unwrap maps the status onto the matching sentinel so callers can use errors.Is.
func (e *RequestError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return ErrInvalidInput
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusServiceUnavailable:
		return ErrServiceUnavail
	case e.Status >= 500:
		return ErrInternal
	default:
		return nil
	}
}

// NewRequestError builds a RequestError, falling back to the generic status
// message when the backend gave none.
func NewRequestError(status int, message string) *RequestError {
	if message == "" {
		message = fmt.Sprintf("Request failed with status %d", status)
	}
	return &RequestError{Status: status, Message: message}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// UserMessage returns the text a person should see for err. Backend messages
// pass through verbatim; everything else collapses to fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAuthRequired) {
		return AuthRequiredMessage
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message
	}
	return fallback
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Status >= 500 {
			return http.StatusBadGateway
		}
		return reqErr.Status
	}

	switch {
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTransport), errors.Is(err, ErrShapeMismatch):
		return http.StatusBadGateway
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
