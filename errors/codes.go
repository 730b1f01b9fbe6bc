package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Argument and configuration errors
const (
	// ErrCodeInvalidArgument indicates a constructor received a value that violates its preconditions.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeInvalidInput indicates configuration input failed validation.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Stream lifecycle errors
const (
	// ErrCodeCanceled indicates the stream was canceled before it completed.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeUpstreamFailed indicates a stage terminated because its upstream failed.
	ErrCodeUpstreamFailed ErrorCode = "UPSTREAM_FAILED"
	// ErrCodeNotReady indicates no value has been observed yet.
	ErrCodeNotReady ErrorCode = "NOT_READY"
	// ErrCodeTimeout indicates a wait on a stream timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:        true,
	ErrCodeNotReady:       true,
	ErrCodeUpstreamFailed: false,
	ErrCodeInternal:       false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// Nothing in demandflow retries; the flag is informational for callers that
// layer a retry policy over a terminated stream.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
