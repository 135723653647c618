package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Domain Error Types
// ============================================================================

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Status  int // upstream HTTP status, when the error came from a remote service
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches domain errors by code so sentinel comparisons work on wrapped values
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ============================================================================
// Common Domain Errors
// ============================================================================

var (
	// Configuration Errors
	ErrConfigMissing = &DomainError{
		Code:    "CONFIG_MISSING",
		Message: "Missing API configuration",
	}

	// Upstream Errors
	ErrUpstreamFailed = &DomainError{
		Code:    "UPSTREAM_FAILED",
		Message: "News API error",
	}

	// Validation Errors
	ErrValidationFailed = &DomainError{
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
	}

	// Auth Errors
	ErrAuthFailed = &DomainError{
		Code:    "AUTH_FAILED",
		Message: "authentication failed",
	}
	ErrNoSession = &DomainError{
		Code:    "NO_SESSION",
		Message: "no active session",
	}

	// Infrastructure Errors
	ErrStorageOperation = &DomainError{
		Code:    "STORAGE_OPERATION_FAILED",
		Message: "storage operation failed",
	}
	ErrNetworkOperation = &DomainError{
		Code:    "NETWORK_OPERATION_FAILED",
		Message: "network operation failed",
	}
)

// ============================================================================
// Error Wrapping Helpers
// ============================================================================

// WrapUpstreamError carries an upstream provider's status and message verbatim
func WrapUpstreamError(status int, message string, cause error) error {
	if message == "" {
		message = ErrUpstreamFailed.Message
	}
	return &DomainError{
		Code:    ErrUpstreamFailed.Code,
		Message: message,
		Status:  status,
		Cause:   cause,
	}
}

// WrapValidationError wraps a validation failure for the named payload
func WrapValidationError(field string, cause error) error {
	return &DomainError{
		Code:    ErrValidationFailed.Code,
		Message: fmt.Sprintf("validation failed for %s", field),
		Cause:   cause,
	}
}

// WrapNetworkOperation wraps a transport failure
func WrapNetworkOperation(operation string, cause error) error {
	return &DomainError{
		Code:    ErrNetworkOperation.Code,
		Message: fmt.Sprintf("network operation failed: %s", operation),
		Cause:   cause,
	}
}

// WrapStorageOperation wraps a cache or preference storage failure
func WrapStorageOperation(operation string, cause error) error {
	return &DomainError{
		Code:    ErrStorageOperation.Code,
		Message: fmt.Sprintf("storage operation failed: %s", operation),
		Cause:   cause,
	}
}

// ============================================================================
// Error Checking Helpers
// ============================================================================

// PublicMessage returns a message safe to show to users: the domain message
// followed by the cause for validation errors, or the bare message otherwise.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return err.Error()
	}
	if domainErr.Code == ErrValidationFailed.Code && domainErr.Cause != nil {
		return fmt.Sprintf("%s: %v", domainErr.Message, domainErr.Cause)
	}
	return domainErr.Message
}

// UpstreamStatus returns the upstream HTTP status carried by err, or 0
func UpstreamStatus(err error) int {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status
	}
	return 0
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrValidationFailed.Code
	}
	return false
}

// IsInfrastructureError checks if an error is an infrastructure error
func IsInfrastructureError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrStorageOperation.Code ||
			domainErr.Code == ErrNetworkOperation.Code
	}
	return false
}
