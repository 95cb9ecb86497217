package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() *AppError
		expected string
	}{
		{
			name: "ErrorWithoutCause",
			setup: func() *AppError {
				return New(ValidationError, "test validation error")
			},
			expected: "VALIDATION_ERROR: test validation error",
		},
		{
			name: "ErrorWithCause",
			setup: func() *AppError {
				cause := fmt.Errorf("disk full")
				return Wrap(StorageError, "failed to write record", cause)
			},
			expected: "STORAGE_ERROR: failed to write record (caused by: disk full)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.setup()
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewProviderError("weatherapi request failed", cause)
	assert.Equal(t, cause, err.Unwrap())

	assert.Nil(t, NewNotFoundError("no record").Unwrap())
}

func TestTypeOf_WrappedChain(t *testing.T) {
	inner := NewMigrationError("copy failed", fmt.Errorf("boom"))
	wrapped := fmt.Errorf("migrate to remote: %w", inner)

	assert.Equal(t, ErrorTypeMigration, TypeOf(wrapped))
	assert.True(t, IsMigrationError(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(fmt.Errorf("plain")))
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"Validation", NewValidationError("bad"), IsValidationError},
		{"NotFound", NewNotFoundError("missing"), IsNotFoundError},
		{"Provider", NewProviderError("down", nil), IsProviderError},
		{"AllProvidersFailed", NewAllProvidersFailedError("exhausted", nil), IsAllProvidersFailedError},
		{"Storage", NewStorageError("io", nil), IsStorageError},
		{"Migration", NewMigrationError("copy", nil), IsMigrationError},
		{"Unavailable", NewUnavailableError("remote not configured"), IsUnavailableError},
		{"Configuration", NewConfigurationError("no key", nil), IsConfigurationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(fmt.Errorf("plain error")))
		})
	}
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "ALL_PROVIDERS_FAILED", ErrorTypeAllProvidersFailed.String())
	assert.Equal(t, "CONFIGURATION_ERROR", ErrorTypeConfiguration.String())
	assert.Equal(t, "UNKNOWN_ERROR", ErrorType(99).String())
}
