package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes. Domain errors keep their own codes.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "TOKEN_INVALID"
	ErrCodeInvalidState = "INVALID_STATE"
	ErrCodeUpstream     = "UPSTREAM_ERROR"
)

// errorCodeStatus maps codes that do not follow the prefix and suffix rules
var errorCodeStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeUpstream:     http.StatusBadGateway,

	"CART_TOO_LARGE":          http.StatusBadRequest,
	"PAYMENT_NOT_CONFIGURED":  http.StatusServiceUnavailable,
	"ALREADY_EXISTS":          http.StatusConflict,
	"RETURN_EXISTS":           http.StatusConflict,
	"RETURN_NUMBER_TAKEN":     http.StatusConflict,
	"CART_CHANGED":            http.StatusConflict,
	"CONFLICT":                http.StatusConflict,
	"CONCURRENT_MODIFICATION": http.StatusConflict,
	"CONCURRENCY_CONFLICT":    http.StatusConflict,
	"REMINDER_TOO_SOON":       http.StatusConflict,
	"INVOICE_ALREADY_PAID":    http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status for an error code.
//
// Codes ending in NOT_FOUND are 404, codes starting with INVALID_ are 400
// (INVALID_STATE aside), and any other domain code is a business rule
// violation answered with 422.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeStatus[code]; ok {
		return status
	}
	switch {
	case code == "":
		return http.StatusInternalServerError
	case strings.HasSuffix(code, "NOT_FOUND"):
		return http.StatusNotFound
	case code == ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

// IsServerError reports whether the code maps to a 5xx status
func IsServerError(code string) bool {
	return GetHTTPStatus(code) >= http.StatusInternalServerError
}
