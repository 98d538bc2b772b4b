package structured

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/voicelab/voicebench/llm"
)

// Options configure an Output handler.
type Options struct {
	// Temperature for the underlying chat completion.
	Temperature float64
	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
	// MaxAttempts is the total attempt budget including the first call.
	// Failed parses are retried with the error fed back to the model.
	MaxAttempts int
	Logger      *zap.Logger
}

// Output produces schema-validated values of T from a chat provider. The
// schema is generated once from T and embedded in the system prompt; replies
// that fail extraction or validation are retried with the failure echoed back
// so the model can correct itself.
type Output[T any] struct {
	provider  llm.Provider
	schema    *JSONSchema
	validator SchemaValidator
	opts      Options
	logger    *zap.Logger
}

// NewOutput builds an Output handler for T.
func NewOutput[T any](provider llm.Provider, opts Options) (*Output[T], error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var zero T
	schema, err := NewSchemaGenerator().Generate(zero)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	return &Output[T]{
		provider:  provider,
		schema:    schema,
		validator: NewValidator(),
		opts:      opts,
		logger:    opts.Logger.With(zap.String("component", "structured.output")),
	}, nil
}

// Schema returns the generated schema.
func (o *Output[T]) Schema() *JSONSchema { return o.schema }

// Result carries the decoded value plus the raw model text and attempt count.
type Result[T any] struct {
	Value    T
	Raw      string
	Attempts int
	Usage    llm.ChatUsage
}

// Generate runs the prompt and returns a validated T. systemPrompt sets the
// behavioral instructions; the schema contract is appended automatically.
func (o *Output[T]) Generate(ctx context.Context, systemPrompt, userPrompt string) (*Result[T], error) {
	schemaJSON, err := o.schema.ToJSONIndent()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: buildSchemaPrompt(systemPrompt, schemaJSON)},
		{Role: llm.RoleUser, Content: userPrompt},
	}

	var lastErr error
	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		resp, err := o.provider.Completion(ctx, &llm.ChatRequest{
			Messages:    messages,
			Temperature: float32(o.opts.Temperature),
			MaxTokens:   o.opts.MaxTokens,
		})
		if err != nil {
			// Transport and provider errors are not fixable by feedback.
			return nil, err
		}
		raw := resp.Text()

		value, perr := o.parse(raw)
		if perr == nil {
			return &Result[T]{Value: *value, Raw: raw, Attempts: attempt, Usage: resp.Usage}, nil
		}
		lastErr = perr
		o.logger.Warn("structured output attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(perr))

		// Feed the bad reply and the failure back for the next attempt.
		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: raw},
			llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf(
				"Your previous response was invalid: %v\nRespond again with ONLY a JSON object matching the schema.", perr)},
		)
	}
	return nil, fmt.Errorf("structured output failed after %d attempts: %w", o.opts.MaxAttempts, lastErr)
}

func (o *Output[T]) parse(raw string) (*T, error) {
	extracted, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := o.validator.Validate([]byte(extracted), o.schema); err != nil {
		return nil, err
	}
	var value T
	if err := json.Unmarshal([]byte(extracted), &value); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &value, nil
}

func buildSchemaPrompt(systemPrompt string, schemaJSON []byte) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString("You MUST respond with valid JSON matching this schema:\n\n")
	b.Write(schemaJSON)
	b.WriteString("\n\nIMPORTANT INSTRUCTIONS:\n")
	b.WriteString("1. Respond with ONLY the JSON object, no other text.\n")
	b.WriteString("2. Include every required property.\n")
	b.WriteString("3. Do not add properties that are not in the schema.\n")
	return b.String()
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON pulls a JSON object or array out of model output, tolerating
// fenced code blocks and surrounding prose.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty response")
	}

	if m := fencedJSONRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1], nil
		}
	}
	if start := strings.Index(s, "["); start >= 0 {
		if end := strings.LastIndex(s, "]"); end > start {
			return s[start : end+1], nil
		}
	}
	return "", fmt.Errorf("no JSON object found in response")
}
