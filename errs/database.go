package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDatabaseQuery      = errors.New("database query failed")
	ErrDatabaseConnection = errors.New("database connection failed")
	ErrBackend            = errors.New("backend error")
)

// Database & Storage Specific Errors
var (
	ErrUniqueConstraintViolation = errors.New("unique constraint violation")
	ErrCheckConstraintViolation  = errors.New("check constraint violation")
	ErrStorageUnavailable        = errors.New("storage unavailable")
)

func NewNotFound(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusNotFound,
		err:        fmt.Errorf("%s %w", entity, ErrNotFound),
	}
}

// NewDatabaseError creates a new database error with details about the operation
func NewDatabaseError(operation, entity string, cause error) *ApiErr {
	details := fmt.Sprintf("Failed to %s %s", operation, entity)

	// An ApiErr produced further down already carries the right status.
	var apiErr *ApiErr
	if errors.As(cause, &apiErr) {
		return apiErr
	}

	// Check for common database errors and provide more specific messages
	if cause != nil {
		errStr := strings.ToLower(cause.Error())
		switch {
		case strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "unique constraint"):
			return &ApiErr{
				StatusCode: http.StatusConflict,
				err:        ErrUniqueConstraintViolation,
				Details:    fmt.Sprintf("%s already exists", entity),
				Cause:      cause,
			}
		case strings.Contains(errStr, "check constraint"):
			return &ApiErr{
				StatusCode: http.StatusBadRequest,
				err:        ErrCheckConstraintViolation,
				Details:    fmt.Sprintf("%s violates a column constraint", entity),
				Cause:      cause,
			}
		case strings.Contains(errStr, "record not found"):
			return &ApiErr{
				StatusCode: http.StatusNotFound,
				err:        tag(fmt.Sprintf("%s not found", entity), ErrNotFound),
				Details:    details,
				Cause:      cause,
			}
		case strings.Contains(errStr, "connection"):
			return &ApiErr{
				StatusCode: http.StatusServiceUnavailable,
				err:        ErrDatabaseConnection,
				Details:    "Unable to connect to database",
				Cause:      cause,
			}
		}
	}

	// Generic database error
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrDatabaseQuery,
		Details:    details,
		Cause:      cause,
	}
}

// NewBackendError passes a failure of an external collaborator (identity provider,
// object storage) through with its own message, which is what the owner sees.
func NewBackendError(service string, cause error) *ApiErr {
	var apiErr *ApiErr
	if errors.As(cause, &apiErr) {
		return apiErr
	}
	msg := service + " error"
	if cause != nil {
		msg = cause.Error()
	}
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        tag(msg, ErrBackend),
		Cause:      cause,
	}
}

func NewStorageUnavailableError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusServiceUnavailable,
		err:        ErrStorageUnavailable,
		Details:    fmt.Sprintf("Object storage failed during %s", operation),
		Cause:      cause,
	}
}

// Database & Storage Error Type Checkers
func IsBackendError(err error) bool {
	return errors.Is(err, ErrBackend) || errors.Is(err, ErrDatabaseQuery) ||
		errors.Is(err, ErrDatabaseConnection) || errors.Is(err, ErrStorageUnavailable)
}

func IsUniqueConstraintViolationError(err error) bool {
	return errors.Is(err, ErrUniqueConstraintViolation)
}

func IsCheckConstraintViolationError(err error) bool {
	return errors.Is(err, ErrCheckConstraintViolation)
}
