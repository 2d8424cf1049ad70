package error

import (
	"errors"
	"net/http"

	domainerror "github.com/fixora/gatekeeper/domain/error"
)

// AppError is the public face of an error: what the client is allowed to
// see, and with which status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrUnauthorized   = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", Status: http.StatusUnauthorized}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error", Status: http.StatusInternalServerError}
)

func NewBadRequest(message string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: message, Status: http.StatusBadRequest}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: message, Status: http.StatusUnauthorized}
}

func NewForbidden(message string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: message, Status: http.StatusForbidden}
}

func NewTooManyRequests(message string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: message, Status: http.StatusTooManyRequests}
}

// MapError translates a domain error into its HTTP form. Every token
// failure collapses to one 401 so clients cannot tell an expired token
// from a forged or revoked one.
func MapError(err error) *AppError {
	var public *AppError
	if errors.As(err, &public) {
		return public
	}

	var appErr *domainerror.AppError
	if !errors.As(err, &appErr) {
		return ErrInternalServer
	}

	switch appErr.Code {
	case domainerror.ErrCodeTokenInvalid,
		domainerror.ErrCodeTokenRevoked,
		domainerror.ErrCodeIdentityNotFound,
		domainerror.ErrCodeUnauthenticated:
		return ErrUnauthorized
	case domainerror.ErrCodeInvalidCredentials:
		return NewUnauthorized(appErr.Message)
	case domainerror.ErrCodeForbidden, domainerror.ErrCodeCurrentPasswordInvalid:
		return NewForbidden(appErr.Message)
	case domainerror.ErrCodeInvalidEmail,
		domainerror.ErrCodeInvalidPassword,
		domainerror.ErrCodeInvalidRequest,
		domainerror.ErrCodeUnknownRole,
		domainerror.ErrCodeAlreadyExists:
		return NewBadRequest(appErr.Message)
	case domainerror.ErrCodeRateLimited:
		return NewTooManyRequests(appErr.Message)
	default:
		return ErrInternalServer
	}
}
