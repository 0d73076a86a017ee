package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 4 << 10

// OpenRouterClient implements Client over the OpenAI-compatible chat completions API.
type OpenRouterClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	config     *Config
}

// NewOpenRouterClient creates a client for config.BaseURL authenticated with apiKey.
func NewOpenRouterClient(config *Config, apiKey string) (*OpenRouterClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultOpenRouterConfig()
	}
	endpoint := config.BaseURL
	if endpoint == "" {
		endpoint = DefaultOpenRouterURL
	}
	return &OpenRouterClient{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{},
		config:     config,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int32           `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// GenerateContent generates text content
func (o *OpenRouterClient) GenerateContent(ctx context.Context, prompt string, p Params) (string, error) {
	return o.chat(ctx, prompt, p, false)
}

// GenerateJSON requests a JSON object response
func (o *OpenRouterClient) GenerateJSON(ctx context.Context, prompt string, p Params) (string, error) {
	text, err := o.chat(ctx, prompt, p, true)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (o *OpenRouterClient) chat(ctx context.Context, prompt string, p Params, asJSON bool) (string, error) {
	p = o.config.resolve(p)
	reqBody := chatRequest{
		Model:       o.config.GetModel(p.Tier),
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: p.Temperature,
		MaxTokens:   p.MaxOutputTokens,
	}
	if reqBody.Model == "" {
		return "", fmt.Errorf("no model configured for tier %s", p.Tier)
	}
	if asJSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.config.Referer != "" {
		req.Header.Set("HTTP-Referer", o.config.Referer)
	}
	if o.config.Title != "" {
		req.Header.Set("X-Title", o.config.Title)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", Classify(ProviderOpenRouter, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", o.statusError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &Error{Kind: KindMalformed, Provider: ProviderOpenRouter, StatusCode: resp.StatusCode,
			Message: "failed to decode response", Cause: err}
	}
	if chatResp.Error != nil {
		return "", o.statusError(chatResp.Error.Code, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", &Error{Kind: KindMalformed, Provider: ProviderOpenRouter, Message: "empty response"}
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (o *OpenRouterClient) statusError(code int, body string) *Error {
	kind := kindForHTTPStatus(code)
	if kind == KindUnknown {
		kind = kindFromMessage(body)
	}
	return &Error{
		Kind:       kind,
		Provider:   ProviderOpenRouter,
		StatusCode: code,
		Message:    fmt.Sprintf("openrouter returned status %d: %s", code, body),
	}
}

// GetModel returns the model name for a tier
func (o *OpenRouterClient) GetModel(tier ModelTier) string {
	return o.config.GetModel(tier)
}

// Close drops idle keep-alive connections.
func (o *OpenRouterClient) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
