package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Lifecycle-guard reason codes surfaced by DomainError.
const (
	CodeNotResolved    = "NOT_RESOLVED"
	CodeReasonRequired = "REASON_REQUIRED"
	CodeWindowExpired  = "WINDOW_EXPIRED"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError reports a client-input problem scoped to one field.
// It never corresponds to a store mutation.
func NewValidationError(field, message string) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, map[string]any{"field": field})
}

// NewLifecycleError reports a state-machine guard violation with one of the
// reason codes above.
func NewLifecycleError(code, message string) error {
	return NewDomainError(code, message, http.StatusConflict, nil)
}

// NewFetchError wraps a ticket-store read/write failure. The engine never
// retries; the caller decides whether to re-invoke.
func NewFetchError(err error) error {
	return &DomainError{
		Code:       "FETCH_FAILED",
		Message:    "ticket store unavailable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewUploadError wraps an attachment-provider failure, independent of any
// ticket mutation.
func NewUploadError(err error) error {
	return &DomainError{
		Code:       "UPLOAD_FAILED",
		Message:    "attachment upload failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
