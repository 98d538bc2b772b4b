package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicelab/voicebench/config"
	"github.com/voicelab/voicebench/llm"
)

// fakeProvider returns canned completions in order, or an error when the
// script runs out.
type fakeProvider struct {
	replies []string
	calls   int
	lastReq *llm.ChatRequest
}

func (p *fakeProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.lastReq = req
	p.calls++
	if p.calls > len(p.replies) {
		return nil, &llm.Error{Code: llm.ErrUpstreamError, Message: "boom", HTTPStatus: 500}
	}
	return &llm.ChatResponse{
		Choices: []llm.ChatChoice{{Message: llm.Message{Role: llm.RoleAssistant, Content: p.replies[p.calls-1]}}},
	}, nil
}

func (p *fakeProvider) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, fmt.Errorf("not implemented")
}

func (p *fakeProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *fakeProvider) Name() string { return "fake" }

func TestSupportRequest_Validate(t *testing.T) {
	assert.NoError(t, (&SupportRequest{Query: "hi"}).Validate())
	assert.NoError(t, (&SupportRequest{Query: "hi", Urgency: UrgencyHigh}).Validate())
	assert.Error(t, (&SupportRequest{}).Validate())
	assert.Error(t, (&SupportRequest{Query: "hi", Urgency: "critical"}).Validate())
}

func TestStructuredAgent_Respond(t *testing.T) {
	t.Run("valid json reply", func(t *testing.T) {
		p := &fakeProvider{replies: []string{
			`{"response":"We are open 9am to 5pm Eastern.","escalate":false}`,
		}}
		a, err := NewStructuredAgent(p, config.AgentConfig{MaxAttempts: 2}, nil)
		require.NoError(t, err)
		assert.Equal(t, "structured", a.Kind())

		reply, err := a.Respond(context.Background(), &SupportRequest{Query: "What are your hours?"})
		require.NoError(t, err)
		assert.Equal(t, "We are open 9am to 5pm Eastern.", reply.Response)
		assert.False(t, reply.Escalate)

		// The template and the schema both land in the system prompt.
		sys := p.lastReq.Messages[0].Content
		assert.Contains(t, sys, "customer support agent")
		assert.Contains(t, sys, `"escalate"`)
	})

	t.Run("malformed reply repaired via retry", func(t *testing.T) {
		p := &fakeProvider{replies: []string{
			"Sorry, here you go: hours are 9 to 5",
			`{"response":"9 to 5.","escalate":false}`,
		}}
		a, err := NewStructuredAgent(p, config.AgentConfig{MaxAttempts: 3}, nil)
		require.NoError(t, err)

		reply, err := a.Respond(context.Background(), &SupportRequest{Query: "hours?"})
		require.NoError(t, err)
		assert.Equal(t, "9 to 5.", reply.Response)
		assert.Equal(t, 2, p.calls)
	})

	t.Run("invalid request rejected before any call", func(t *testing.T) {
		p := &fakeProvider{}
		a, err := NewStructuredAgent(p, config.AgentConfig{}, nil)
		require.NoError(t, err)

		_, err = a.Respond(context.Background(), &SupportRequest{})
		require.Error(t, err)
		assert.Zero(t, p.calls)
	})
}

func TestVanillaAgent_Respond(t *testing.T) {
	t.Run("plain reply", func(t *testing.T) {
		p := &fakeProvider{replies: []string{"We are open 9am to 5pm Eastern."}}
		a := NewVanillaAgent(p, config.AgentConfig{}, nil)
		assert.Equal(t, "vanilla", a.Kind())

		reply, err := a.Respond(context.Background(), &SupportRequest{Query: "hours?"})
		require.NoError(t, err)
		assert.Equal(t, "We are open 9am to 5pm Eastern.", reply.Response)
		assert.False(t, reply.Escalate)
		assert.Empty(t, reply.NextSteps)
	})

	t.Run("escalation marker stripped", func(t *testing.T) {
		p := &fakeProvider{replies: []string{"I will get a supervisor. ESCALATE"}}
		a := NewVanillaAgent(p, config.AgentConfig{}, nil)

		reply, err := a.Respond(context.Background(), &SupportRequest{Query: "supervisor please"})
		require.NoError(t, err)
		assert.True(t, reply.Escalate)
		assert.NotContains(t, reply.Response, "ESCALATE")
	})

	t.Run("list lines become next steps", func(t *testing.T) {
		p := &fakeProvider{replies: []string{
			"Here is what to do:\n- Reset your password\n- Check your email\nLet me know how it goes.",
		}}
		a := NewVanillaAgent(p, config.AgentConfig{}, nil)

		reply, err := a.Respond(context.Background(), &SupportRequest{Query: "login problem"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Reset your password", "Check your email"}, reply.NextSteps)
		assert.Contains(t, reply.Response, "Here is what to do:")
		assert.NotContains(t, reply.Response, "Reset your password")
	})

	t.Run("upstream failure degrades to apology", func(t *testing.T) {
		p := &fakeProvider{} // no scripted replies, every call errors
		a := NewVanillaAgent(p, config.AgentConfig{}, nil)

		reply, err := a.Respond(context.Background(), &SupportRequest{Query: "hours?"})
		require.NoError(t, err)
		assert.Equal(t, fallbackReply, reply.Response)
		assert.True(t, reply.Escalate)
	})
}

func TestParseVanillaReply(t *testing.T) {
	t.Run("supervisor phrasing implies escalation", func(t *testing.T) {
		reply := parseVanillaReply("I will transfer you to a supervisor right away.")
		assert.True(t, reply.Escalate)
	})

	t.Run("numbered steps", func(t *testing.T) {
		reply := parseVanillaReply("Try this:\n1. Open settings\n2. Tap security")
		assert.Equal(t, []string{"Open settings", "Tap security"}, reply.NextSteps)
	})

	t.Run("marker only reply falls back", func(t *testing.T) {
		reply := parseVanillaReply("ESCALATE")
		assert.True(t, reply.Escalate)
		assert.Equal(t, fallbackReply, reply.Response)
	})
}
