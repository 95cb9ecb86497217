package errors

import (
	stderrors "errors"
	"fmt"
)

// Application error types organized by category for better error handling

type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeNotFound

	// Infrastructure Errors - errors related to external systems and services
	ErrorTypeProvider
	ErrorTypeAllProvidersFailed
	ErrorTypeStorage
	ErrorTypeMigration
	ErrorTypeUnavailable

	// System/Configuration Errors - errors related to system setup and configuration
	ErrorTypeConfiguration
)

// String returns the string representation of error type
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND_ERROR"
	case ErrorTypeProvider:
		return "PROVIDER_ERROR"
	case ErrorTypeAllProvidersFailed:
		return "ALL_PROVIDERS_FAILED"
	case ErrorTypeStorage:
		return "STORAGE_ERROR"
	case ErrorTypeMigration:
		return "MIGRATION_ERROR"
	case ErrorTypeUnavailable:
		return "UNAVAILABLE_ERROR"
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Short aliases used across adapters
const (
	ValidationError         = ErrorTypeValidation
	NotFoundError           = ErrorTypeNotFound
	ProviderError           = ErrorTypeProvider
	AllProvidersFailedError = ErrorTypeAllProvidersFailed
	StorageError            = ErrorTypeStorage
	MigrationError          = ErrorTypeMigration
	UnavailableError        = ErrorTypeUnavailable
	ConfigurationError      = ErrorTypeConfiguration
)

type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type.String(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

func Wrap(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// Domain Error Constructors
func NewValidationError(message string) *AppError {
	return New(ValidationError, message)
}

func NewNotFoundError(message string) *AppError {
	return New(NotFoundError, message)
}

// Infrastructure Error Constructors
func NewProviderError(message string, cause error) *AppError {
	return Wrap(ProviderError, message, cause)
}

func NewAllProvidersFailedError(message string, cause error) *AppError {
	return Wrap(AllProvidersFailedError, message, cause)
}

func NewStorageError(message string, cause error) *AppError {
	return Wrap(StorageError, message, cause)
}

func NewMigrationError(message string, cause error) *AppError {
	return Wrap(MigrationError, message, cause)
}

func NewUnavailableError(message string) *AppError {
	return New(UnavailableError, message)
}

// System/Configuration Error Constructors
func NewConfigurationError(message string, cause error) *AppError {
	return Wrap(ConfigurationError, message, cause)
}

// TypeOf returns the type of the outermost AppError in the chain.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// Helper functions for error type checking
func IsNotFoundError(err error) bool {
	return TypeOf(err) == NotFoundError
}

func IsValidationError(err error) bool {
	return TypeOf(err) == ValidationError
}

func IsProviderError(err error) bool {
	return TypeOf(err) == ProviderError
}

func IsAllProvidersFailedError(err error) bool {
	return TypeOf(err) == AllProvidersFailedError
}

func IsStorageError(err error) bool {
	return TypeOf(err) == StorageError
}

func IsMigrationError(err error) bool {
	return TypeOf(err) == MigrationError
}

func IsUnavailableError(err error) bool {
	return TypeOf(err) == UnavailableError
}

func IsConfigurationError(err error) bool {
	return TypeOf(err) == ConfigurationError
}
