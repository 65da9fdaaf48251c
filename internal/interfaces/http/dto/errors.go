package dto

import (
	"errors"
	"net/http"

	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
)

// Transport error codes. Domain codes pass through unchanged.
const (
	ErrCodeInternal         = shared.CodeInternal
	ErrCodeValidation       = shared.CodeValidation
	ErrCodeUnauthorized     = shared.CodeUnauthorized
	ErrCodeNotFound         = shared.CodeNotFound
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeTokenRevoked     = "TOKEN_REVOKED"
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"
)

// KindHTTPStatus maps domain error kinds to HTTP status codes
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:     http.StatusBadRequest,
	shared.KindBusinessRule:   http.StatusUnprocessableEntity,
	shared.KindNotFound:       http.StatusNotFound,
	shared.KindUnauthorized:   http.StatusUnauthorized,
	shared.KindConflict:       http.StatusConflict,
	shared.KindInfrastructure: http.StatusInternalServerError,
}

// codeHTTPStatus overrides the kind mapping for individual codes
var codeHTTPStatus = map[string]int{
	settlement.CodeTransactionTimeout: http.StatusServiceUnavailable,
	ErrCodeBadRequest:                 http.StatusBadRequest,
	ErrCodeInvalidJSON:                http.StatusBadRequest,
	ErrCodeTokenExpired:               http.StatusUnauthorized,
	ErrCodeTokenRevoked:               http.StatusUnauthorized,
	ErrCodeDuplicateRequest:           http.StatusConflict,
	ErrCodeRequestTooLarge:            http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status for err. Anything that is not a
// DomainError is a 500.
func GetHTTPStatus(err error) int {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	if status, ok := codeHTTPStatus[de.Code]; ok {
		return status
	}
	if status, ok := KindHTTPStatus[de.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForCode returns the HTTP status for a transport error code
func StatusForCode(code string) int {
	if status, ok := codeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
