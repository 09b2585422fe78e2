package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// DatabaseErrorMessage describes relational store failures.
	DatabaseErrorMessage = "database operation failed"
)

// Kind classifies an AppError for callers that branch on the failure category.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindNotFound             Kind = "not_found"
	KindAuthorization        Kind = "authorization"
	KindConflict             Kind = "conflict"
	KindNotificationDelivery Kind = "notification_delivery"
	KindInternal             Kind = "internal"
)

// Sentinels matched by errors.Is against any AppError of the same Kind.
var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrAuthorization        = errors.New("authorization error")
	ErrConflict             = errors.New("conflict")
	ErrNotificationDelivery = errors.New("notification delivery error")
)

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's Kind.
func (e *AppError) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindNotFound:
		return target == ErrNotFound
	case KindAuthorization:
		return target == ErrAuthorization
	case KindConflict:
		return target == ErrConflict
	case KindNotificationDelivery:
		return target == ErrNotificationDelivery
	}
	return false
}

// New creates a new AppError with the provided information. The kind is
// derived from the status.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    kindForStatus(status),
		Status:  status,
		Message: message,
	}
}

// Validation reports malformed or duplicate input.
func Validation(format string, args ...any) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFound reports a missing entity, e.g. NotFound("doctor", 4).
func NotFound(entity string, id any) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s %v not found", entity, id),
	}
}

// Unauthorized reports that role may not perform action.
func Unauthorized(action, role string) *AppError {
	return &AppError{
		Kind:    KindAuthorization,
		Status:  http.StatusForbidden,
		Message: fmt.Sprintf("role %q is not allowed to %s", role, action),
	}
}

// Conflict reports a state clash such as a dangling reference.
func Conflict(format string, args ...any) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Status:  http.StatusConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// Delivery wraps a mail relay failure.
func Delivery(err error) *AppError {
	return &AppError{
		Err:     err,
		Kind:    KindNotificationDelivery,
		Status:  http.StatusBadGateway,
		Message: "notification delivery failed",
	}
}

// Internal wraps an unexpected failure behind the system message.
func Internal(err error, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Message: message,
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status carried by err.
func StatusOf(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns a message that is safe to show to end users.
func PublicMessage(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Message
	}
	return SystemErrorMessage
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthorization
	case http.StatusConflict:
		return KindConflict
	default:
		return KindInternal
	}
}
