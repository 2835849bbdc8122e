package openaicompat

import "encoding/json"

// Chat Completions request/response types. These mirror the subset of the
// OpenAI Chat Completions API format the analysis pipeline uses.

// chatCompletionRequest is the request body for /v1/chat/completions.
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// responseFormat carries the structured-output constraint.
type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

// jsonSchemaFormat names and attaches the strict output schema.
type jsonSchemaFormat struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// chatMessage represents a message in the Chat Completions format.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// chatCompletionResponse is the non-streaming response from /v1/chat/completions.
type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

// chatChoice represents one completion choice.
type chatChoice struct {
	Index        int             `json:"index"`
	Message      chatRespMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// chatRespMessage is the assistant message in a completion choice.
type chatRespMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// chatUsage holds token usage from the Chat Completions API.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatErrorResponse is the error format returned by Chat Completions backends.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}
