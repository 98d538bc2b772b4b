package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voicelab/voicebench/config"
	"github.com/voicelab/voicebench/llm"
	"github.com/voicelab/voicebench/prompt"
	"github.com/voicelab/voicebench/structured"
)

// StructuredAgent answers through a named prompt template and a
// schema-validated output handler. Invalid model replies are retried with the
// validation failure fed back, so callers only ever see a SupportReply that
// satisfies the contract.
type StructuredAgent struct {
	output   *structured.Output[SupportReply]
	template *prompt.Template
	cfg      config.AgentConfig
	logger   *zap.Logger
}

// NewStructuredAgent builds the structured agent on the given provider.
func NewStructuredAgent(provider llm.Provider, cfg config.AgentConfig, logger *zap.Logger) (*StructuredAgent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tpl := prompt.SupportTemplate()
	if cfg.SystemPrompt != "" {
		tpl.Task = cfg.SystemPrompt
	}
	if cfg.ReplyBudget > 0 {
		tpl.Rules = append(tpl.Rules, fmt.Sprintf("Keep the response under %d words.", cfg.ReplyBudget))
	}

	output, err := structured.NewOutput[SupportReply](provider, structured.Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build structured output: %w", err)
	}

	return &StructuredAgent{
		output:   output,
		template: tpl,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "agent.structured")),
	}, nil
}

// Kind returns "structured".
func (a *StructuredAgent) Kind() string { return "structured" }

// Respond answers one support request.
func (a *StructuredAgent) Respond(ctx context.Context, req *SupportRequest) (*SupportReply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	res, err := a.output.Generate(ctx, a.template.Render(), buildUserPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("structured agent failed: %w", err)
	}

	a.logger.Debug("structured reply produced",
		zap.Int("attempts", res.Attempts),
		zap.Bool("escalate", res.Value.Escalate))
	return &res.Value, nil
}

// buildUserPrompt lays out the request fields for the model. Shared by both
// agents so the comparison varies only in the system prompt and reply
// handling.
func buildUserPrompt(req *SupportRequest) string {
	var b strings.Builder
	if len(req.History) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range req.History {
			b.WriteString(turn)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if req.CustomerID != "" {
		fmt.Fprintf(&b, "Customer ID: %s\n", req.CustomerID)
	}
	if req.Urgency != "" {
		fmt.Fprintf(&b, "Urgency: %s\n", req.Urgency)
	}
	if req.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", req.Category)
	}
	b.WriteString("Customer says: ")
	b.WriteString(req.Query)
	return b.String()
}
