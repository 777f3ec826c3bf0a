package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "passes through domain errors",
			err:        NewLifecycleError(CodeWindowExpired, "too late"),
			wantCode:   CodeWindowExpired,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("handler: %w", NewForbidden("nope")),
			wantCode:   "FORBIDDEN",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no rows becomes not found",
			err:        pgx.ErrNoRows,
			wantCode:   "NOT_FOUND",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown error becomes internal",
			err:        errors.New("boom"),
			wantCode:   "INTERNAL_ERROR",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			if de.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", de.Code, tt.wantCode)
			}
			if de.HTTPStatus != tt.wantStatus {
				t.Errorf("status = %d, want %d", de.HTTPStatus, tt.wantStatus)
			}
		})
	}

	if ToDomainError(nil) != nil {
		t.Error("nil error should map to nil")
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	err := NewValidationError("description", "too short")
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %T", err)
	}
	if de.HTTPStatus != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", de.HTTPStatus)
	}
	if de.Details["field"] != "description" {
		t.Errorf("details = %v", de.Details)
	}
}

func TestFetchErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewFetchError(cause)
	if !errors.Is(err, cause) {
		t.Error("fetch error should wrap its cause")
	}
	de := ToDomainError(err)
	if de.Code != "FETCH_FAILED" || de.HTTPStatus != http.StatusBadGateway {
		t.Errorf("got %s/%d", de.Code, de.HTTPStatus)
	}
}
