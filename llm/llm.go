// Package llm provides a unified chat-LLM provider interface used by the
// voice agents and the evaluation harness.
package llm

import (
	"context"
	"time"
)

// ErrorCode aligns upstream failures with HTTP status and retryability.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"
	ErrForbidden           ErrorCode = "LLM_FORBIDDEN"
	ErrNotFound            ErrorCode = "LLM_NOT_FOUND"
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"
	ErrModelOverloaded     ErrorCode = "LLM_MODEL_OVERLOADED"
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
)

type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
}

type ChatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []Message     `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	TopP        float32       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// Text returns the content of the first choice, or "" when the response
// carried none.
func (r *ChatResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

type StreamChunk struct {
	ID           string  `json:"id,omitempty"`
	Provider     string  `json:"provider,omitempty"`
	Model        string  `json:"model,omitempty"`
	Index        int     `json:"index,omitempty"`
	Delta        Message `json:"delta"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Err          *Error  `json:"error,omitempty"`
}

// HealthStatus is the result of a provider liveness probe.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	// Message carries failure detail when Healthy is false.
	Message string `json:"message,omitempty"`
}

// Provider is the unified chat adapter both agents run on.
type Provider interface {
	// Completion performs a synchronous chat request.
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream performs a streaming chat request and returns a channel of
	// incremental chunks. The channel is closed when the stream ends.
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// HealthCheck performs a lightweight reachability probe.
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name returns the provider's unique identifier.
	Name() string
}
