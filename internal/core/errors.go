// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrPaymentGateway    = errors.New("payment gateway error")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrTokenRevoked      = errors.New("token revoked")
)

// AppError is an error that already knows how it should be rendered to a
// client. Message is safe to expose; Err is kept for logs and errors.Is.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
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

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrNotFound, resource+" not found", http.StatusNotFound, "NOT_FOUND")
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, "CONFLICT")
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		field+" already exists",
		http.StatusConflict,
		"DUPLICATE",
	)
}

func InvalidTransitionError(message string) *AppError {
	return NewAppError(
		ErrInvalidTransition,
		message,
		http.StatusConflict,
		"INVALID_TRANSITION",
	)
}

func PaymentGatewayError(message string) *AppError {
	return NewAppError(
		ErrPaymentGateway,
		message,
		http.StatusBadGateway,
		"PAYMENT_GATEWAY_ERROR",
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "token is invalid", http.StatusUnauthorized, "TOKEN_INVALID")
}

func TokenRevokedError() *AppError {
	return NewAppError(ErrTokenRevoked, "token has been revoked", http.StatusUnauthorized, "TOKEN_REVOKED")
}

// ToAppError translates a wrapped sentinel into its client representation.
// The second return value is false for errors outside the taxonomy; those
// must be reported as internal faults.
func ToAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return ValidationError(ErrInvalidInput.Error()), true
	case errors.Is(err, ErrTokenExpired):
		return TokenExpiredError(), true
	case errors.Is(err, ErrTokenRevoked):
		return TokenRevokedError(), true
	case errors.Is(err, ErrTokenInvalid):
		return TokenInvalidError(), true
	case errors.Is(err, ErrUnauthorized):
		return UnauthorizedError(""), true
	case errors.Is(err, ErrForbidden):
		return ForbiddenError(""), true
	case errors.Is(err, ErrNotFound):
		return NotFoundError("resource"), true
	case errors.Is(err, ErrDuplicateKey):
		return DuplicateError("resource"), true
	case errors.Is(err, ErrInvalidTransition):
		return InvalidTransitionError(ErrInvalidTransition.Error()), true
	case errors.Is(err, ErrConflict):
		return ConflictError(ErrConflict.Error()), true
	case errors.Is(err, ErrPaymentGateway):
		return PaymentGatewayError("payment provider unavailable"), true
	}

	return nil, false
}
