package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeQuotaExceeded, http.StatusTooManyRequests},
		{ErrCodeAuthentication, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeUpstreamTimeout, http.StatusInternalServerError},
		{ErrCodeStoreUnavailable, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestAs_WrapsUnknownErrors(t *testing.T) {
	stdErr := As(fmt.Errorf("boom"))
	require.NotNil(t, stdErr)
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "boom", stdErr.Details)

	assert.Nil(t, As(nil))
}

func TestAs_FindsWrappedStandardError(t *testing.T) {
	base := NewStoreUnavailableError("postgres", context.DeadlineExceeded)
	wrapped := fmt.Errorf("lookup: %w", base)

	stdErr := As(wrapped)
	assert.Same(t, base, stdErr)
	assert.True(t, HasCode(wrapped, ErrCodeStoreUnavailable))
	assert.False(t, HasCode(wrapped, ErrCodeValidation))
	assert.True(t, stderrors.Is(wrapped, context.DeadlineExceeded))
}

func TestNewQuotaExceededError(t *testing.T) {
	err := NewQuotaExceededError("ip:1.2.3.4", "crisis-support-ai", 5*time.Minute)

	assert.Equal(t, ErrCodeQuotaExceeded, err.Code)
	assert.False(t, err.Retryable)
	assert.Equal(t, 300, err.Metadata["retryAfterSeconds"])
	assert.Contains(t, err.Details, "crisis-support-ai")
}

func TestNewValidationError_JoinsDetails(t *testing.T) {
	err := NewValidationError("invalid request", "query: required", "urgencyLevel: invalid")
	assert.Equal(t, "query: required; urgencyLevel: invalid", err.Details)
	assert.Equal(t, "StandardError[VALIDATION_ERROR]: invalid request", err.Error())
}

func TestRetryPolicy(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeStoreUnavailable))
	assert.Equal(t, 1, GetRetryCount(ErrCodeUpstreamTimeout))
	assert.Equal(t, 0, GetRetryCount(ErrCodeValidation))
	assert.True(t, IsRetryableErrorCode(ErrCodeUpstreamError))
	assert.False(t, IsRetryableErrorCode(ErrCodeQuotaExceeded))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "RATE_LIMIT", GetErrorCategory(ErrCodeQuotaExceeded))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeUpstreamTimeout))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeStoreUnavailable))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidation))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewUpstreamTimeoutError("openai", context.DeadlineExceeded))
	assert.Equal(t, "UPSTREAM_TIMEOUT", bpmn.Code)
	assert.Equal(t, 1, bpmn.Retries)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "AI", vars["errorCategory"])
	assert.Equal(t, true, vars["retryable"])

	nonRetryable := ConvertToBPMNError(NewValidationError("bad"))
	assert.Equal(t, 0, nonRetryable.Retries)
}
