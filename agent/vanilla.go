package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voicelab/voicebench/config"
	"github.com/voicelab/voicebench/llm"
	"github.com/voicelab/voicebench/prompt"
)

// fallbackReply is what the vanilla agent says when the upstream call or the
// reply itself cannot be used.
const fallbackReply = "I'm sorry, I'm having trouble with that request right now. Let me connect you with a human supervisor."

// VanillaAgent answers with a hand-concatenated system prompt and free-form
// model output. Escalation and next steps are recovered from the reply text
// by keyword and list heuristics, and upstream failures degrade to a fixed
// apology instead of an error.
type VanillaAgent struct {
	provider llm.Provider
	cfg      config.AgentConfig
	logger   *zap.Logger
	system   string
}

// NewVanillaAgent builds the vanilla agent on the given provider.
func NewVanillaAgent(provider llm.Provider, cfg config.AgentConfig, logger *zap.Logger) *VanillaAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	task := cfg.SystemPrompt
	if task == "" {
		task = "You answer customer questions concisely and accurately."
	}
	budget := ""
	if cfg.ReplyBudget > 0 {
		budget = fmt.Sprintf("Keep the response under %d words.", cfg.ReplyBudget)
	}
	system := prompt.JoinSections(
		"You are a customer support agent for a software company.",
		task,
		"Always confirm the customer's details before proceeding.",
		budget,
		"If you need to escalate, say the word ESCALATE somewhere in your reply.",
		"If there are follow-up actions, list them as lines starting with '- '.",
	)
	return &VanillaAgent{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "agent.vanilla")),
		system:   system,
	}
}

// Kind returns "vanilla".
func (a *VanillaAgent) Kind() string { return "vanilla" }

// Respond answers one support request.
func (a *VanillaAgent) Respond(ctx context.Context, req *SupportRequest) (*SupportReply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: a.system},
			{Role: llm.RoleUser, Content: buildUserPrompt(req)},
		},
		Temperature: float32(a.cfg.Temperature),
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		a.logger.Warn("completion failed, using fallback reply", zap.Error(err))
		return &SupportReply{Response: fallbackReply, Escalate: true}, nil
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		a.logger.Warn("empty completion, using fallback reply")
		return &SupportReply{Response: fallbackReply, Escalate: true}, nil
	}
	return parseVanillaReply(raw), nil
}

// parseVanillaReply recovers the reply contract from free text. The marker
// word and any list lines are stripped from the spoken response.
func parseVanillaReply(raw string) *SupportReply {
	reply := &SupportReply{}
	var spoken []string

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if step, ok := cutListMarker(trimmed); ok {
			reply.NextSteps = append(reply.NextSteps, step)
			continue
		}
		spoken = append(spoken, trimmed)
	}

	text := strings.Join(spoken, " ")
	if strings.Contains(text, "ESCALATE") {
		reply.Escalate = true
		text = strings.TrimSpace(strings.ReplaceAll(text, "ESCALATE", ""))
		text = strings.Join(strings.Fields(text), " ")
	}
	lower := strings.ToLower(text)
	for _, marker := range []string{"transfer you to a supervisor", "connect you with a human", "human supervisor"} {
		if strings.Contains(lower, marker) {
			reply.Escalate = true
			break
		}
	}

	if text == "" {
		text = fallbackReply
		reply.Escalate = true
	}
	reply.Response = text
	return reply
}

func cutListMarker(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "1. ", "2. ", "3. ", "4. ", "5. "} {
		if rest, ok := strings.CutPrefix(line, marker); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}
