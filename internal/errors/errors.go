// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors.
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation_error"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeError           ErrorType = "processing_error"
	ErrorTypeUnauthenticated ErrorType = "unauthenticated"
	ErrorTypeGeneration      ErrorType = "generation_failure"
	ErrorTypePersistence     ErrorType = "persistence_failure"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeTimeout         ErrorType = "timeout"
)

// AppError carries a type, a user-presentable message and the wrapped cause.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError creates a not-found error. Not-found is a normal page
// state, never a process failure.
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError creates a generic processing error.
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewUnauthenticatedError marks an operation that requires a signed-in user.
func NewUnauthenticatedError(message string) *AppError {
	return NewAppError(ErrorTypeUnauthenticated, message, nil)
}

// NewGenerationError marks a failed or unusable provider completion. The
// caller surfaces a transient retry notice; there is no automatic retry.
func NewGenerationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeGeneration, message, originalError)
}

// NewPersistenceError marks a failed save/load/log against the local store.
func NewPersistenceError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypePersistence, message, originalError)
}

// NewConflictError creates a conflict error.
func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

// IsNotFoundError reports whether err is a not-found AppError.
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsUnauthenticatedError reports whether err is an unauthenticated AppError.
func IsUnauthenticatedError(err error) bool {
	return hasType(err, ErrorTypeUnauthenticated)
}

// IsGenerationError reports whether err is a generation failure.
func IsGenerationError(err error) bool {
	return hasType(err, ErrorTypeGeneration)
}

// IsPersistenceError reports whether err is a persistence failure.
func IsPersistenceError(err error) bool {
	return hasType(err, ErrorTypePersistence)
}

// IsValidationError reports whether err is a validation error.
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsConflictError reports whether err is a conflict error.
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

func hasType(err error, t ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == t
	}
	return false
}

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeUnauthenticated:
		return "SIGN_IN_REQUIRED"
	case ErrorTypeGeneration:
		return "GENERATION_FAILED"
	case ErrorTypePersistence:
		return "PERSISTENCE_FAILED"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError wraps an existing error, preserving an AppError's type when one
// is already in the chain.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
