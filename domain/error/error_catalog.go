package error

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes for different categories
const (
	// Authentication Errors (1xxx)
	ErrCodeInvalidCredentials ErrorCode = "AUTH_1001"
	ErrCodeIdentityNotFound   ErrorCode = "AUTH_1002"
	ErrCodeTokenInvalid       ErrorCode = "AUTH_1003"
	ErrCodeTokenRevoked       ErrorCode = "AUTH_1005"
	ErrCodeUnauthenticated    ErrorCode = "AUTH_1009"

	// Validation Errors (2xxx)
	ErrCodeInvalidEmail    ErrorCode = "VALID_2001"
	ErrCodeInvalidPassword ErrorCode = "VALID_2002"
	ErrCodeInvalidRequest  ErrorCode = "VALID_2005"
	ErrCodeUnknownRole     ErrorCode = "VALID_2006"
	ErrCodeAlreadyExists   ErrorCode = "VALID_2007"

	// Rate Limiting Errors (3xxx)
	ErrCodeRateLimited ErrorCode = "RATE_3001"

	// Server Errors (6xxx)
	ErrCodeInternalServerError ErrorCode = "SERVER_6001"

	// Security Errors (7xxx)
	ErrCodeForbidden              ErrorCode = "SEC_7003"
	ErrCodeCurrentPasswordInvalid ErrorCode = "SEC_7004"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so detailed errors still
// compare equal to the catalogue sentinels below.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Catalogue sentinels. Compare with errors.Is.
var (
	ErrTokenInvalid       = NewAppError(ErrCodeTokenInvalid, "Invalid token", "", nil)
	ErrTokenRevoked       = NewAppError(ErrCodeTokenRevoked, "Token has been revoked", "", nil)
	ErrIdentityNotFound   = NewAppError(ErrCodeIdentityNotFound, "Identity not found", "", nil)
	ErrUnauthenticated    = NewAppError(ErrCodeUnauthenticated, "Authentication required", "", nil)
	ErrForbidden          = NewAppError(ErrCodeForbidden, "You do not have permission to perform this action.", "", nil)
	ErrRateLimited        = NewAppError(ErrCodeRateLimited, "Too Many Requests", "", nil)
	ErrInvalidCredentials = NewAppError(ErrCodeInvalidCredentials, "Invalid credentials", "", nil)
	ErrAlreadyExists      = NewAppError(ErrCodeAlreadyExists, "Username or email already exists", "", nil)
	ErrCurrentPassword    = NewAppError(ErrCodeCurrentPasswordInvalid, "Current password is incorrect", "", nil)
)

// Authentication errors
func ErrTokenRevokedFor(identityID string) *AppError {
	return NewAppError(ErrCodeTokenRevoked, "Token has been revoked", fmt.Sprintf("Identity ID: %s", identityID), nil)
}

func ErrIdentityNotFoundFor(identityID string) *AppError {
	return NewAppError(ErrCodeIdentityNotFound, "Identity not found", fmt.Sprintf("Identity ID: %s", identityID), nil)
}

func ErrTokenInvalidCause(cause error) *AppError {
	return NewAppError(ErrCodeTokenInvalid, "Invalid token", "", cause)
}

// Validation errors
func ErrInvalidEmail(email string) *AppError {
	return NewAppError(ErrCodeInvalidEmail, "Email must be valid", fmt.Sprintf("Email: %s", email), nil)
}

func ErrInvalidPassword(details string) *AppError {
	return NewAppError(ErrCodeInvalidPassword, details, "", nil)
}

func ErrInvalidRequest(details string) *AppError {
	return NewAppError(ErrCodeInvalidRequest, details, "", nil)
}

func ErrUnknownRole(role string) *AppError {
	return NewAppError(ErrCodeUnknownRole, "Role not found: "+role, "", nil)
}

// Server errors
func ErrInternalServerError(details string, cause error) *AppError {
	return NewAppError(ErrCodeInternalServerError, "Internal server error", details, cause)
}

// Code returns the catalogue code carried by err, or the internal server
// error code when err is not an AppError.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalServerError
}
