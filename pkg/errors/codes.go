package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeArchiveError       ErrorCode = "COMMON_014"
	ErrCodeInvalidConfig      ErrorCode = "COMMON_017"
)

// Dashboard Error Codes
const (
	// ErrCodeFetchFailed covers network errors and non-2xx answers from the
	// aggregate API.
	ErrCodeFetchFailed ErrorCode = "DASH_001"
	// ErrCodeCancelled marks a superseded request cycle. It is never shown to
	// the user.
	ErrCodeCancelled ErrorCode = "DASH_002"
	// ErrCodeInconsistent marks aggregates that do not reconcile.
	ErrCodeInconsistent ErrorCode = "DASH_003"
	// ErrCodeInvalidInput marks user input that had to be corrected or refused.
	ErrCodeInvalidInput          ErrorCode = "DASH_004"
	ErrCodeGeometrySourceMissing ErrorCode = "DASH_005"
	ErrCodeGeometryNotFound      ErrorCode = "DASH_006"
	ErrCodeNotReady              ErrorCode = "DASH_007"
	ErrCodeInvalidBBox           ErrorCode = "DASH_008"
)

// Aliases used across packages.
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")

	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeCacheError   = ErrCodeCacheError
)

// ErrorCodeHTTPStatus maps ErrorCodes to the HTTP status used by the command
// endpoint of the local HTTP surface.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeArchiveError:       http.StatusInternalServerError,
	ErrCodeInvalidConfig:      http.StatusInternalServerError,

	ErrCodeFetchFailed:           http.StatusBadGateway,
	ErrCodeCancelled:             http.StatusConflict,
	ErrCodeInconsistent:          http.StatusOK,
	ErrCodeInvalidInput:          http.StatusBadRequest,
	ErrCodeGeometrySourceMissing: http.StatusNotFound,
	ErrCodeGeometryNotFound:      http.StatusNotFound,
	ErrCodeNotReady:              http.StatusAccepted,
	ErrCodeInvalidBBox:           http.StatusBadRequest,
}

// HTTPStatusForCode returns the HTTP status for code, defaulting to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsDashboardCode reports whether code belongs to the dashboard range.
func IsDashboardCode(code ErrorCode) bool {
	return strings.HasPrefix(string(code), "DASH_")
}
