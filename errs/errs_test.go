package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApiErrMatchesSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		check  func(error) bool
		status int
	}{
		{"not found", NewNotFound("project"), IsNotFound, http.StatusNotFound},
		{"unauthenticated", Unauthenticated, IsUnauthenticated, http.StatusUnauthorized},
		{"validation", NewValidationError("name", "cannot be blank"), IsValidationError, http.StatusBadRequest},
		{"credentials", NewInvalidCredentialsError(), IsInvalidCredentialsError, http.StatusUnauthorized},
		{"username taken", NewUsernameTakenError("alice"), IsUsernameTakenError, http.StatusConflict},
		{"media type", NewUnsupportedMediaTypeError("text/plain", []string{"image/png"}), IsUnsupportedMediaTypeError, http.StatusUnsupportedMediaType},
		{"body size", NewMaxBodySizeExceededError(10), IsMaxBodySizeExceededError, http.StatusRequestEntityTooLarge},
		{"backend", NewBackendError("storage", errors.New("bucket missing")), IsBackendError, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.status, StatusOf(tt.err))

			wrapped := fmt.Errorf("context: %w", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.Equal(t, tt.status, StatusOf(wrapped))
		})
	}
}

func TestNotFoundKeepsCallerMessage(t *testing.T) {
	err := NewNotFound("project")
	assert.Equal(t, "project not found", err.Error())
}

func TestBackendErrorPassesMessageThrough(t *testing.T) {
	err := NewBackendError("identity provider", errors.New("Email rate limit exceeded"))
	assert.Equal(t, "Email rate limit exceeded", err.Error())
	assert.Equal(t, "Email rate limit exceeded", err.Message())
}

func TestNewDatabaseError(t *testing.T) {
	tests := []struct {
		name   string
		cause  error
		status int
		is     error
	}{
		{"duplicate", errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_username"`), http.StatusConflict, ErrUniqueConstraintViolation},
		{"check", errors.New("CHECK constraint failed: chk_projects_category"), http.StatusBadRequest, ErrCheckConstraintViolation},
		{"missing", errors.New("record not found"), http.StatusNotFound, ErrNotFound},
		{"connection", errors.New("failed to connect: connection refused"), http.StatusServiceUnavailable, ErrDatabaseConnection},
		{"other", errors.New("syntax error"), http.StatusInternalServerError, ErrDatabaseQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDatabaseError("find", "project", tt.cause)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.ErrorIs(t, err, tt.is)
			assert.Contains(t, err.GetFullError(), tt.cause.Error())
		})
	}
}

func TestNewDatabaseErrorKeepsApiErr(t *testing.T) {
	inner := NewNotFound("project")
	assert.Same(t, inner, NewDatabaseError("update", "project", inner))
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]string{"description", "name"}, map[string]string{
		"name":        "cannot be blank",
		"description": "cannot be blank",
	})
	assert.Equal(t, "description,name", err.Field)
	assert.Equal(t, "validation failed: description: cannot be blank; name: cannot be blank", err.Error())
}
