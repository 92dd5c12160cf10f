package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound           = New(http.StatusNotFound, "not_found", errors.New("not found"))
	ErrModelUnavailable   = New(http.StatusInternalServerError, "model_unavailable", errors.New("model unavailable"))
	ErrModelEmptyResponse = New(http.StatusInternalServerError, "model_empty_response", errors.New("model returned an empty response"))
	ErrMissingContext     = New(http.StatusBadRequest, "missing_context", errors.New("missing mandatory generation context"))

	ErrEmailTaken         = New(http.StatusConflict, "email_taken", errors.New("email is already registered"))
	ErrInvalidCredentials = New(http.StatusUnauthorized, "invalid_credentials", errors.New("invalid credentials"))
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FieldError names one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every rejected field of a request so the caller
// sees all of them at once.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// Err returns nil when nothing was collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Status resolves the HTTP status an error should surface as. Anything not
// explicitly typed is a 500.
func Status(err error) int {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
