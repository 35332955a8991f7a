// ABOUTME: Error taxonomy for dispatch failures - retryable vs fatal
// ABOUTME: Codes classify the gateway's rejection so the coordinator knows whether to retry

package message

import "errors"

// Code classifies a dispatch failure.
type Code int

const (
	CodeUnknown          Code = iota
	CodeInvalidType           // unrecognized type or missing required field
	CodeQueueFull             // per-conversation pending work at capacity
	CodeThrottled             // gateway rate limiting (HTTP 429)
	CodeTimeout               // network timeout reaching the gateway
	CodeSequenceConflict      // gateway rejected the msg_seq as stale or reused
	CodeGatewayRejected       // gateway rejected the payload permanently
)

func (c Code) String() string {
	switch c {
	case CodeInvalidType:
		return "invalid_type"
	case CodeQueueFull:
		return "queue_full"
	case CodeThrottled:
		return "throttled"
	case CodeTimeout:
		return "timeout"
	case CodeSequenceConflict:
		return "sequence_conflict"
	case CodeGatewayRejected:
		return "gateway_rejected"
	}
	return "unknown"
}

// baseError carries the code, message, and wrapped cause shared by both
// classifications. Unexported so the field does not shadow the promoted
// Error method on the wrapper types.
type baseError struct {
	Code    Code
	Message string
	Err     error
}

func (e *baseError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *baseError) Unwrap() error { return e.Err }

// RetryableError is a transient condition: the coordinator retries it up to
// the configured bound before surfacing it to the caller.
type RetryableError struct {
	baseError
}

// FatalError is not retried. It reaches the caller on the first occurrence.
type FatalError struct {
	baseError
}

// NewRetryable wraps a transient failure.
func NewRetryable(code Code, msg string, err error) *RetryableError {
	return &RetryableError{baseError{Code: code, Message: msg, Err: err}}
}

// NewFatal wraps a permanent failure.
func NewFatal(code Code, msg string, err error) *FatalError {
	return &FatalError{baseError{Code: code, Message: msg, Err: err}}
}

// IsRetryable reports whether err is (or wraps) a RetryableError.
func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

// ErrCode extracts the classification code from err, or CodeUnknown if err
// carries none.
func ErrCode(err error) Code {
	var r *RetryableError
	if errors.As(err, &r) {
		return r.Code
	}
	var f *FatalError
	if errors.As(err, &f) {
		return f.Code
	}
	return CodeUnknown
}
