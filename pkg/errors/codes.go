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
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Short aliases used by the factory helpers.
const (
	CodeUnknown        ErrorCode = "UNKNOWN"
	CodeOK             ErrorCode = "OK"
	CodeInternal                 = ErrCodeInternal
	CodeInvalidParam             = ErrCodeBadRequest
	CodeNotFound                 = ErrCodeNotFound
	CodeConflict                 = ErrCodeConflict
	CodeNotImplemented           = ErrCodeNotImplemented
)

// Pipeline construction error codes. These are raised before any document
// is processed.
const (
	ErrCodePipelineUndeclaredLabel ErrorCode = "PIPE_001"
	ErrCodePipelineMissingConfig   ErrorCode = "PIPE_002"
	ErrCodePipelineBadPattern      ErrorCode = "PIPE_003"
	ErrCodePipelineBadDecoder      ErrorCode = "PIPE_004"
)

// Gazetteer error codes
const (
	ErrCodeGazetteerMissing   ErrorCode = "GAZ_001"
	ErrCodeGazetteerMalformed ErrorCode = "GAZ_002"
	ErrCodeGazetteerDuplicate ErrorCode = "GAZ_003"
)

// Extraction request error codes
const (
	ErrCodeExtractionEmptyText     ErrorCode = "EXT_001"
	ErrCodeExtractionTextTooLarge  ErrorCode = "EXT_002"
	ErrCodeExtractionBatchTooLarge ErrorCode = "EXT_003"
	ErrCodeExtractionDocNotFound   ErrorCode = "EXT_004"
)

// Sink error codes
const (
	ErrCodeSinkWriteFailed ErrorCode = "SNK_001"
	ErrCodeSinkUnavailable ErrorCode = "SNK_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodePipelineUndeclaredLabel: http.StatusInternalServerError,
	ErrCodePipelineMissingConfig:   http.StatusInternalServerError,
	ErrCodePipelineBadPattern:      http.StatusInternalServerError,
	ErrCodePipelineBadDecoder:      http.StatusInternalServerError,

	ErrCodeGazetteerMissing:   http.StatusInternalServerError,
	ErrCodeGazetteerMalformed: http.StatusInternalServerError,
	ErrCodeGazetteerDuplicate: http.StatusInternalServerError,

	ErrCodeExtractionEmptyText:     http.StatusBadRequest,
	ErrCodeExtractionTextTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeExtractionBatchTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeExtractionDocNotFound:   http.StatusNotFound,

	ErrCodeSinkWriteFailed: http.StatusInternalServerError,
	ErrCodeSinkUnavailable: http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodePipelineUndeclaredLabel: "pipeline references an undeclared label",
	ErrCodePipelineMissingConfig:   "pipeline configuration missing",
	ErrCodePipelineBadPattern:      "pattern could not be compiled",
	ErrCodePipelineBadDecoder:      "pattern decoder entry is invalid",

	ErrCodeGazetteerMissing:   "gazetteer term file not found",
	ErrCodeGazetteerMalformed: "gazetteer term row is malformed",
	ErrCodeGazetteerDuplicate: "gazetteer term defined twice",

	ErrCodeExtractionEmptyText:     "document text is empty",
	ErrCodeExtractionTextTooLarge:  "document text exceeds the size limit",
	ErrCodeExtractionBatchTooLarge: "batch exceeds the size limit",
	ErrCodeExtractionDocNotFound:   "document not found",

	ErrCodeSinkWriteFailed: "failed to write extraction result",
	ErrCodeSinkUnavailable: "result sink unavailable",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
