package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voicelab/voicebench/internal/tlsutil"
)

// OpenAIConfig configures the OpenAI chat provider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Organization string
	Timeout      time.Duration
}

// OpenAIProvider implements Provider against the OpenAI chat completions API
// (or any endpoint speaking the same wire format).
type OpenAIProvider struct {
	cfg       OpenAIConfig
	client    *http.Client
	estimator *Estimator
	logger    *zap.Logger
}

// NewOpenAIProvider creates an OpenAI provider. An empty BaseURL defaults to
// the public API.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIProvider{
		cfg:       cfg,
		client:    tlsutil.SecureHTTPClient(cfg.Timeout),
		estimator: NewEstimator(cfg.Model),
		logger:    logger.With(zap.String("component", "llm.openai")),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) endpoint(path string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}

func (p *OpenAIProvider) buildHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Organization != "" {
		req.Header.Set("OpenAI-Organization", p.cfg.Organization)
	}
}

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
	TopP        float32   `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int      `json:"index"`
		FinishReason string   `json:"finish_reason"`
		Message      *Message `json:"message,omitempty"`
		Delta        *Message `json:"delta,omitempty"`
	} `json:"choices"`
	Usage *ChatUsage `json:"usage,omitempty"`
}

// Completion performs a non-streaming chat completion.
func (p *OpenAIProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &Error{
			Code: ErrInvalidRequest, Message: "chat request requires at least one message",
			HTTPStatus: http.StatusBadRequest, Provider: p.Name(),
		}
	}

	body := openAIChatRequest{
		Model:       chooseModel(req.Model, p.cfg.Model),
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint("/v1/chat/completions"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &Error{
			Code: ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, MapHTTPError(resp.StatusCode, ReadErrorMessage(resp.Body), p.Name())
	}

	var oaResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, &Error{
			Code: ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	return p.toChatResponse(oaResp, req.Messages), nil
}

// Stream performs a streaming chat completion via SSE.
func (p *OpenAIProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &Error{
			Code: ErrInvalidRequest, Message: "chat request requires at least one message",
			HTTPStatus: http.StatusBadRequest, Provider: p.Name(),
		}
	}

	body := openAIChatRequest{
		Model:       chooseModel(req.Model, p.cfg.Model),
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      true,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint("/v1/chat/completions"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &Error{
			Code: ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, MapHTTPError(resp.StatusCode, ReadErrorMessage(resp.Body), p.Name())
	}

	return streamSSE(ctx, resp.Body, p.Name()), nil
}

// HealthCheck probes the models endpoint.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint("/v1/models"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &HealthStatus{Healthy: false, Latency: latency, Message: err.Error()}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status=%d msg=%s", resp.StatusCode, ReadErrorMessage(resp.Body))
		return &HealthStatus{Healthy: false, Latency: latency, Message: msg},
			fmt.Errorf("openai health check failed: %s", msg)
	}
	return &HealthStatus{Healthy: true, Latency: latency}, nil
}

func (p *OpenAIProvider) toChatResponse(oaResp openAIChatResponse, sent []Message) *ChatResponse {
	out := &ChatResponse{
		ID:       oaResp.ID,
		Provider: p.Name(),
		Model:    oaResp.Model,
	}
	for _, c := range oaResp.Choices {
		choice := ChatChoice{Index: c.Index, FinishReason: c.FinishReason}
		if c.Message != nil {
			choice.Message = *c.Message
		}
		out.Choices = append(out.Choices, choice)
	}
	switch {
	case oaResp.Usage != nil:
		out.Usage = *oaResp.Usage
	default:
		// Some compatible endpoints omit usage; estimate so callers always
		// see non-zero accounting.
		out.Usage.PromptTokens = p.estimator.CountMessages(sent)
		for _, c := range out.Choices {
			out.Usage.CompletionTokens += p.estimator.CountTokens(c.Message.Content)
		}
		out.Usage.TotalTokens = out.Usage.PromptTokens + out.Usage.CompletionTokens
	}
	if oaResp.Created != 0 {
		out.CreatedAt = time.Unix(oaResp.Created, 0)
	}
	return out
}

// streamSSE parses an OpenAI-style SSE body into a chunk channel. Closes the
// body and the channel when the stream ends or ctx is canceled.
func streamSSE(ctx context.Context, body io.ReadCloser, providerName string) <-chan StreamChunk {
	ch := make(chan StreamChunk)
	go func() {
		defer body.Close()
		defer close(ch)
		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					select {
					case <-ctx.Done():
					case ch <- StreamChunk{Err: &Error{
						Code: ErrUpstreamError, Message: err.Error(),
						HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: providerName,
					}}:
					}
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var oaResp openAIChatResponse
			if err := json.Unmarshal([]byte(data), &oaResp); err != nil {
				select {
				case <-ctx.Done():
				case ch <- StreamChunk{Err: &Error{
					Code: ErrUpstreamError, Message: err.Error(),
					HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: providerName,
				}}:
				}
				return
			}

			for _, choice := range oaResp.Choices {
				chunk := StreamChunk{
					ID:           oaResp.ID,
					Provider:     providerName,
					Model:        oaResp.Model,
					Index:        choice.Index,
					FinishReason: choice.FinishReason,
					Delta:        Message{Role: RoleAssistant},
				}
				if choice.Delta != nil {
					chunk.Delta.Content = choice.Delta.Content
				}
				select {
				case <-ctx.Done():
					return
				case ch <- chunk:
				}
			}
		}
	}()
	return ch
}

// chooseModel prefers the per-request model over the configured default.
func chooseModel(requested, configured string) string {
	if requested != "" {
		return requested
	}
	return configured
}

// ReadErrorMessage extracts a human-readable message from an error body.
// Falls back to the raw body when it is not the usual {"error":{"message"}}.
func ReadErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// MapHTTPError converts an upstream HTTP status into a typed *Error.
func MapHTTPError(status int, msg, provider string) *Error {
	e := &Error{Message: msg, HTTPStatus: status, Provider: provider}
	switch {
	case status == http.StatusUnauthorized:
		e.Code = ErrUnauthorized
	case status == http.StatusForbidden:
		e.Code = ErrForbidden
	case status == http.StatusNotFound:
		e.Code = ErrNotFound
	case status == http.StatusTooManyRequests:
		e.Code = ErrRateLimited
		e.Retryable = true
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e.Code = ErrUpstreamTimeout
		e.Retryable = true
	case status == http.StatusServiceUnavailable:
		e.Code = ErrModelOverloaded
		e.Retryable = true
	case status >= 500:
		e.Code = ErrUpstreamError
		e.Retryable = true
	default:
		e.Code = ErrInvalidRequest
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
