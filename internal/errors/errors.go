package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code, so a wrapped error still matches
// its sentinel in errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// Predefined domain errors
var (
	// Authentication failures are deliberately uniform: the caller never
	// learns whether the username, the password, or the token was wrong.
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "invalid credentials")
	ErrAccountLocked      = NewDomainError("ACCOUNT_LOCKED", "account locked")
	ErrInvalidToken       = NewDomainError("INVALID_TOKEN", "invalid or expired token")
	ErrUnauthorized       = NewDomainError("UNAUTHORIZED", "unauthorized")
	ErrForbidden          = NewDomainError("FORBIDDEN", "insufficient role")

	// Password policy
	ErrIncorrectPassword = NewDomainError("INCORRECT_PASSWORD", "current password is incorrect")
	ErrPasswordReused    = NewDomainError("PASSWORD_REUSED", "password was recently used")

	// Conflicts are permanent rejections of the presented state; the
	// caller must re-fetch (or re-login) and retry with fresh input.
	ErrVersionConflict = NewDomainError("VERSION_CONFLICT", "version conflict")
	ErrTokenReuse      = NewDomainError("TOKEN_REUSE", "refresh token already used")
	ErrSetupDone       = NewDomainError("SETUP_DONE", "setup already completed")
	ErrUsernameExists  = NewDomainError("USERNAME_EXISTS", "username already exists")

	// Lookup
	ErrNotFound = NewDomainError("NOT_FOUND", "record not found")

	// Store contention is transient and safe to retry with backoff,
	// unlike VERSION_CONFLICT which never succeeds on replay.
	ErrContention = NewDomainError("CONTENTION", "store contention, retry later")

	// System errors
	ErrInternal = NewDomainError("INTERNAL_ERROR", "internal server error")
)

// PolicyError reports every violated password rule so the caller can
// present complete feedback in one round trip.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password policy violation: " + strings.Join(e.Violations, "; ")
}

// NewPolicyError creates a policy error from the violated rules
func NewPolicyError(violations []string) *PolicyError {
	return &PolicyError{Violations: violations}
}

// IntegrityError reports an audit chain verification failure. It is never
// recovered locally; startup aborts on it.
type IntegrityError struct {
	EntryID int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("audit chain verification failed at entry %d", e.EntryID)
}

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var policyErr *PolicyError
	if errors.As(err, &policyErr) {
		return http.StatusBadRequest
	}

	var integrityErr *IntegrityError
	if errors.As(err, &integrityErr) {
		return http.StatusInternalServerError
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	// Default to internal server error for unknown errors
	return http.StatusInternalServerError
}

// domainErrorToHTTPStatus maps specific domain errors to HTTP status codes
func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INCORRECT_PASSWORD", "PASSWORD_REUSED", "SETUP_DONE":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "ACCOUNT_LOCKED", "INVALID_TOKEN":
		return http.StatusUnauthorized

	// 403 Forbidden
	case "FORBIDDEN":
		return http.StatusForbidden

	// 404 Not Found
	case "NOT_FOUND":
		return http.StatusNotFound

	// 409 Conflict
	case "VERSION_CONFLICT", "TOKEN_REUSE", "USERNAME_EXISTS":
		return http.StatusConflict

	// 503 Service Unavailable
	case "CONTENTION":
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var policyErr *PolicyError
	if errors.As(err, &policyErr) {
		return policyErr.Error()
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
