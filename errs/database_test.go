package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNewDatabaseErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		cause  error
		status int
	}{
		{"translated duplicate", gorm.ErrDuplicatedKey, http.StatusConflict},
		{"wrapped translated duplicate", fmt.Errorf("insert follows: %w", gorm.ErrDuplicatedKey), http.StatusConflict},
		{"raw duplicate", errors.New(`ERROR: duplicate key value violates unique constraint "follows_pkey"`), http.StatusConflict},
		{"translated foreign key", gorm.ErrForeignKeyViolated, http.StatusBadRequest},
		{"raw foreign key", errors.New("violates foreign key constraint"), http.StatusBadRequest},
		{"not found", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"connection", errors.New("failed to connect: connection refused"), http.StatusServiceUnavailable},
		{"other", errors.New("syntax error at or near"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDatabaseError("create", "follow", tt.cause)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.cause, err.Cause)
		})
	}
}

func TestNewDatabaseErrorKeepsApiErr(t *testing.T) {
	conflict := NewConflictError("username already taken")
	assert.Same(t, conflict, NewDatabaseError("update", "profile", fmt.Errorf("wrapped: %w", conflict)))
}

func TestRequestErrors(t *testing.T) {
	media := NewUnsupportedMediaTypeError("text/plain", "application/json")
	assert.Equal(t, http.StatusUnsupportedMediaType, StatusCode(media))
	assert.ErrorIs(t, media, ErrUnsupportedMediaType)
	assert.Contains(t, media.Details, `"text/plain"`)

	body := NewMaxBodySizeExceededError("", 1<<20)
	assert.Equal(t, http.StatusRequestEntityTooLarge, StatusCode(body))
	assert.Equal(t, "request body must be less than 1MB", body.Details)
	assert.Empty(t, body.Field)

	file := NewMaxBodySizeExceededError("file", 11<<20)
	assert.Equal(t, "file must be less than 11MB", file.Details)
	assert.Equal(t, "file", file.Field)

	internal := NewInternalErrorWithCause("Internal Server Error", errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, StatusCode(internal))
	assert.Equal(t, "Internal Server Error", internal.Message())
	assert.Contains(t, internal.GetFullError(), "boom")

	assert.True(t, IsBadRequest(NewMissingRequiredFieldError("content")))
	assert.False(t, IsBadRequest(media))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("plain")))
}
