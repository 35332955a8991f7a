// ABOUTME: Tests for the dispatch error taxonomy
// ABOUTME: Validates errors.As classification, unwrapping, and code extraction

package message

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryableError_Classification(t *testing.T) {
	err := NewRetryable(CodeThrottled, "gateway throttled", nil)

	assert.True(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
	assert.Equal(t, CodeThrottled, ErrCode(err))
	assert.Equal(t, "gateway throttled", err.Error())
}

func TestFatalError_Classification(t *testing.T) {
	err := NewFatal(CodeQueueFull, "queue full for group:g1", nil)

	assert.True(t, IsFatal(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, CodeQueueFull, ErrCode(err))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewRetryable(CodeTimeout, "dispatch failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dispatch failed: connection reset", err.Error())
}

func TestClassification_SurvivesWrapping(t *testing.T) {
	inner := NewFatal(CodeGatewayRejected, "malformed payload", nil)
	wrapped := fmt.Errorf("sending message: %w", inner)

	assert.True(t, IsFatal(wrapped))
	assert.Equal(t, CodeGatewayRejected, ErrCode(wrapped))
}

func TestErrCode_PlainError(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrCode(errors.New("boom")))
}

func TestCode_String(t *testing.T) {
	assert.Equal(t, "queue_full", CodeQueueFull.String())
	assert.Equal(t, "sequence_conflict", CodeSequenceConflict.String())
	assert.Equal(t, "unknown", CodeUnknown.String())
}
