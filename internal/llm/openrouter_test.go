package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenRouter(t *testing.T, handler http.HandlerFunc) *OpenRouterClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultOpenRouterConfig()
	cfg.BaseURL = server.URL
	client, err := NewOpenRouterClient(cfg, "test-key")
	require.NoError(t, err)
	return client
}

func writeChoice(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": content}}},
	})
}

func TestOpenRouter_GenerateContent(t *testing.T) {
	var got chatRequest
	client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "OpenPay", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeChoice(w, "Le salaire médian est de 50 000 €.")
	})

	text, err := client.GenerateContent(context.Background(), "résume", Params{})
	require.NoError(t, err)
	assert.Equal(t, "Le salaire médian est de 50 000 €.", text)

	assert.Equal(t, DefaultOpenRouterConfig().GetModel(TierStandard), got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, float32(0.3), got.Temperature)
	assert.Equal(t, int32(2048), got.MaxTokens)
	assert.Nil(t, got.ResponseFormat)
}

func TestOpenRouter_GenerateJSON(t *testing.T) {
	var got chatRequest
	client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeChoice(w, "```json\n{\"roadmaps\": []}\n```")
	})

	text, err := client.GenerateJSON(context.Background(), "roadmaps", Params{Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, `{"roadmaps": []}`, text)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, float32(0.1), got.Temperature)
}

func TestOpenRouter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    Kind
		wantSC  int
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, want: KindRateLimited, wantSC: 429},
		{name: "bad key", status: http.StatusUnauthorized, body: `{"error":"no auth"}`, want: KindUnauthorized, wantSC: 401},
		{name: "upstream down", status: http.StatusBadGateway, body: "bad gateway", want: KindTransient, wantSC: 502},
		{name: "quota in body", status: http.StatusPaymentRequired, body: "quota exceeded for key", want: KindRateLimited, wantSC: 402},
		{name: "error envelope", status: http.StatusOK, body: `{"error":{"message":"Rate limit exceeded","code":429}}`, want: KindRateLimited, wantSC: 429},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, want: KindMalformed},
		{name: "not json", status: http.StatusOK, body: `<html>`, want: KindMalformed, wantSC: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GenerateContent(context.Background(), "prompt", Params{})
			require.Error(t, err)

			var llmErr *Error
			require.True(t, errors.As(err, &llmErr))
			assert.Equal(t, tt.want, llmErr.Kind)
			assert.Equal(t, tt.wantSC, llmErr.StatusCode)
			assert.Equal(t, ProviderOpenRouter, llmErr.Provider)
		})
	}
}

func TestNewOpenRouterClient_RequiresKey(t *testing.T) {
	_, err := NewOpenRouterClient(DefaultOpenRouterConfig(), "")
	assert.Error(t, err)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "mystery"}, "key")
	assert.Error(t, err)
}
