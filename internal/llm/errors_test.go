package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "limit"), KindRateLimited},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "bad key"), KindUnauthorized},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "denied"), KindUnauthorized},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), KindTransient},
		{"googleapi 429", &googleapi.Error{Code: 429, Message: "slow down"}, KindRateLimited},
		{"googleapi 403", &googleapi.Error{Code: 403}, KindUnauthorized},
		{"googleapi 503", &googleapi.Error{Code: 503}, KindTransient},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTransient},
		{"quota message", errors.New("You exceeded your current quota"), KindRateLimited},
		{"rate limit message", errors.New("Rate limit reached for model"), KindRateLimited},
		{"too many requests message", errors.New("Too Many Requests"), KindRateLimited},
		{"resource exhausted message", errors.New("RESOURCE_EXHAUSTED: try later"), KindRateLimited},
		{"status code in message", errors.New("got 429 from upstream"), KindRateLimited},
		{"unrelated", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(ProviderGemini, tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(ProviderGemini, nil))
}

func TestClassify_KeepsExistingClassification(t *testing.T) {
	original := &Error{Kind: KindMalformed, Provider: ProviderOpenRouter, Message: "empty response"}
	wrapped := fmt.Errorf("decode: %w", original)

	got := Classify(ProviderGemini, wrapped)
	assert.Same(t, original, got)
	assert.Equal(t, KindMalformed, KindOf(wrapped))
}

func TestClassify_StatusWinsOverMessage(t *testing.T) {
	// message mentions quota but the status says the key is rejected
	err := &googleapi.Error{Code: 401, Message: "quota project not set"}
	assert.Equal(t, KindUnauthorized, Classify(ProviderGemini, err).Kind)
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindRateLimited, Provider: ProviderOpenRouter, StatusCode: 429, Message: "slow down"}
	assert.Equal(t, "openrouter rate_limited (status 429): slow down", err.Error())

	err = &Error{Kind: KindTransient, Provider: ProviderGemini, Cause: errors.New("timeout")}
	assert.Equal(t, "gemini transient: timeout", err.Error())
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(fmt.Errorf("%w: %w", ErrCommunication, &Error{Kind: KindRateLimited})))
	assert.False(t, IsRateLimited(errors.New("quota")))
	assert.False(t, IsRateLimited(nil))
}
