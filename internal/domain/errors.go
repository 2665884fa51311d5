package domain

import (
	"fmt"
	"time"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: "ACCOUNT_LOCKED", Message: msg, Status: 429}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

// Reward-path error constructors.

func ErrDuplicateActivity(activityType ActivityType, key string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_ACTIVITY",
		Message: fmt.Sprintf("%s %s already rewarded", activityType, key),
		Status:  409,
	}
}

func ErrCooldownActive(activityType ActivityType, remaining time.Duration) *AppError {
	return &AppError{
		Code:    "COOLDOWN_ACTIVE",
		Message: fmt.Sprintf("%s on cooldown for %s", activityType, remaining.Round(time.Second)),
		Status:  429,
	}
}

func ErrExploitDetected(msg string) *AppError {
	return &AppError{Code: "EXPLOIT_DETECTED", Message: msg, Status: 429}
}

func ErrSessionBlocked(msg string) *AppError {
	return &AppError{Code: "SESSION_BLOCKED", Message: msg, Status: 403}
}

// ErrOperationTimeout means the caller's bounded wait on a queued state
// operation expired. The operation itself may still complete.
func ErrOperationTimeout() *AppError {
	return &AppError{Code: "OPERATION_TIMEOUT", Message: "operation timeout", Status: 503}
}

// ErrRetryExhausted means a queued state operation failed repeatedly and was
// dropped. Callers surface this as a partial failure, never silently.
func ErrRetryExhausted(opType string, cause error) *AppError {
	return &AppError{
		Code:    "RETRY_EXHAUSTED",
		Message: fmt.Sprintf("operation %s dropped after max retries", opType),
		Status:  503,
		Cause:   cause,
	}
}

// ErrVersionConflict means an optimistic-lock check failed on profile save.
func ErrVersionConflict(expected, actual int64) *AppError {
	return &AppError{
		Code:    "VERSION_CONFLICT",
		Message: fmt.Sprintf("profile version moved: expected %d, found %d", expected, actual),
		Status:  409,
	}
}
