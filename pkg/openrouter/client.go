package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client calls the OpenRouter chat completions API.
type Client interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	Probe(ctx context.Context) (string, error)
}

type openRouterClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// Options configures an OpenRouter client.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func NewClient(opts Options) Client {
	return &openRouterClient{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: opts.Timeout},
	}
}

// Complete runs one chat completion and returns the assistant's text.
func (c *openRouterClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var result chatResponse
		message := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Error != nil {
			message = result.Error.Message
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty completion content")
	}

	return content, nil
}

// Probe sends a trivial completion to verify connectivity and
// credentials. Used by the diagnostics endpoint.
func (c *openRouterClient) Probe(ctx context.Context) (string, error) {
	return c.Complete(ctx, []ChatMessage{
		{Role: "user", Content: "Responde únicamente con la palabra: ok"},
	})
}
