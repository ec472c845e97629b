package errors

import (
	"fmt"
	"net/http"

	"github.com/packlane/packlane-backend/logger"
)

type ErrorType string

const (
	ValidationError    ErrorType = "VALIDATION_ERROR"
	NotFoundError      ErrorType = "NOT_FOUND"
	AuthError          ErrorType = "AUTHENTICATION_ERROR"
	DatabaseError      ErrorType = "DATABASE_ERROR"
	ServerError        ErrorType = "SERVER_ERROR"
	ForbiddenError     ErrorType = "FORBIDDEN"
	TripNotFoundError  ErrorType = "TRIP_NOT_FOUND"
	ReminderLoadError  ErrorType = "REMINDER_LOAD_FAILED"
	SuggestionError    ErrorType = "SUGGESTION_FAILED"
	ConflictError      ErrorType = "CONFLICT"
	RateLimitError     ErrorType = "RATE_LIMITED"
	SchedulingError    ErrorType = "SCHEDULING_FAILED"
	NotificationFailed ErrorType = "NOTIFICATION_FAILED"
)

// AppError represents a structured application error.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped error so errors.Is/As work through AppError.
func (e *AppError) Unwrap() error {
	return e.Raw
}

// New creates a new AppError with an HTTP status derived from the type.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewDatabaseError(err error) *AppError {
	// Log the original error but return a sanitized message to callers.
	logger.GetLogger().Errorw("Database error", "error", err)
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func Forbidden(message string, details string) *AppError {
	return &AppError{
		Type:       ForbiddenError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusForbidden,
	}
}

func TripNotFound(id string) *AppError {
	return &AppError{
		Type:       TripNotFoundError,
		Message:    "Trip not found",
		Detail:     fmt.Sprintf("Trip ID: %s", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ReminderNotFound(checklistID string) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    "Reminder not found",
		Detail:     fmt.Sprintf("Checklist ID: %s", checklistID),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewConflictError(message string, detail string) *AppError {
	return &AppError{
		Type:       ConflictError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError, TripNotFoundError:
		return http.StatusNotFound
	case AuthError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case ConflictError:
		return http.StatusConflict
	case RateLimitError:
		return http.StatusTooManyRequests
	case DatabaseError, ServerError, ReminderLoadError, SuggestionError,
		SchedulingError, NotificationFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
