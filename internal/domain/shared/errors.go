package shared

import (
	"errors"
	"strings"
)

// ErrorKind classifies a DomainError so callers can branch without
// inspecting messages.
type ErrorKind string

const (
	KindValidation     ErrorKind = "VALIDATION"
	KindBusinessRule   ErrorKind = "BUSINESS_RULE"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindUnauthorized   ErrorKind = "UNAUTHORIZED"
	KindConflict       ErrorKind = "CONFLICT"
	KindInfrastructure ErrorKind = "INFRASTRUCTURE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches another DomainError by code so sentinel values work with errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error. The kind is inferred from the code.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kindForCode(code),
	}
}

// NewDomainErrorWithKind creates a domain error with an explicit kind
func NewDomainErrorWithKind(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// NewValidationError creates a VALIDATION_ERROR for malformed input
func NewValidationError(message string) *DomainError {
	return NewDomainErrorWithKind(KindValidation, CodeValidation, message)
}

// NewBusinessRuleError creates an error for a rejected business operation
func NewBusinessRuleError(code, message string) *DomainError {
	return NewDomainErrorWithKind(KindBusinessRule, code, message)
}

// NewInfrastructureError wraps a storage or transport failure
func NewInfrastructureError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    KindInfrastructure,
		cause:   cause,
	}
}

// KindOf returns the kind of err. Errors that are not DomainErrors are
// treated as infrastructure failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInfrastructure
}

// IsKind reports whether err is a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// CodeOf returns the code of err, or CodeInternal for non-domain errors
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Common error codes
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidState        = "INVALID_STATE"
	CodeInternal            = "INTERNAL_ERROR"
)

func kindForCode(code string) ErrorKind {
	switch code {
	case CodeValidation, CodeInvalidInput:
		return KindValidation
	case CodeNotFound:
		return KindNotFound
	case CodeUnauthorized:
		return KindUnauthorized
	case CodeConcurrencyConflict, CodeAlreadyExists:
		return KindConflict
	case CodeInternal:
		return KindInfrastructure
	case CodeInvalidState:
		return KindBusinessRule
	}
	switch {
	case strings.HasPrefix(code, "INVALID_"):
		return KindValidation
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return KindNotFound
	default:
		return KindBusinessRule
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)
