// Package openaicompat implements provider.Provider against OpenAI-compatible
// Chat Completions backends, using strict json_schema response formatting to
// constrain the output to the analysis schema.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/molmute/molmute/pkg/api"
	"github.com/molmute/molmute/pkg/debug"
	"github.com/molmute/molmute/pkg/provider"
)

// Config holds configuration for the Chat Completions adapter.
type Config struct {
	// BaseURL is the backend URL (e.g. "http://localhost:8000").
	BaseURL string

	// APIKey for backend authentication (optional).
	APIKey string

	// Model is the model name sent with each request.
	Model string

	// Timeout for individual HTTP requests. Defaults to 120s.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 120 * time.Second,
	}
}

// Client is a generation client for Chat Completions backends.
type Client struct {
	cfg    Config
	client *http.Client
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a new Client with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: BaseURL is required")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "openaicompat"
}

// Generate performs one structured-generation call against the Chat
// Completions endpoint. The schema is attached via response_format with
// strict mode so the backend constrains its output.
func (c *Client) Generate(ctx context.Context, req *api.MutationRequest, schema json.RawMessage) (string, error) {
	userPayload, err := provider.UserPayload(req)
	if err != nil {
		return "", api.NewServerError(fmt.Sprintf("failed to serialize request: %s", err.Error()))
	}

	chatReq := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: provider.Instructions},
			{Role: "user", Content: userPayload},
		},
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   "mutation_analysis",
				Strict: true,
				Schema: schema,
			},
		},
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	debug.Log("providers", "generation request", "url", url, "model", c.cfg.Model)
	if debug.TraceIsEnabled("providers") {
		debug.Raw("providers", string(body))
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", MapHTTPError(httpResp)
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return "", api.NewBackendFailureError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	// An empty choices list or nil content is not a client failure; the
	// parser classifies the empty payload.
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == nil {
		return "", nil
	}

	return *chatResp.Choices[0].Message.Content, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
