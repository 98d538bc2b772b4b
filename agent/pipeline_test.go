package agent

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicelab/voicebench/config"
	"github.com/voicelab/voicebench/speech"
)

type fakeTranscriber struct {
	events chan speech.TranscriptEvent
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{events: make(chan speech.TranscriptEvent, 8)}
}

func (t *fakeTranscriber) Connect(context.Context) error            { return nil }
func (t *fakeTranscriber) SendAudio([]byte) error                   { return nil }
func (t *fakeTranscriber) Events() <-chan speech.TranscriptEvent    { return t.events }
func (t *fakeTranscriber) Close() error                             { return nil }

type fakeTTS struct{ calls int }

func (f *fakeTTS) Synthesize(_ context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	f.calls++
	return &speech.TTSResponse{
		Audio:    io.NopCloser(strings.NewReader("audio:" + req.Text)),
		Provider: "fake",
	}, nil
}

func (f *fakeTTS) SynthesizeToFile(context.Context, *speech.TTSRequest, string) error { return nil }
func (f *fakeTTS) ListVoices(context.Context) ([]speech.Voice, error)                 { return nil, nil }
func (f *fakeTTS) Name() string                                                       { return "fake" }

func TestPipeline_Run(t *testing.T) {
	provider := &fakeProvider{replies: []string{"We are open 9 to 5."}}
	ag := NewVanillaAgent(provider, config.AgentConfig{}, nil)
	tr := newFakeTranscriber()
	tts := &fakeTTS{}
	p := NewPipeline(tr, ag, tts, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Interim events are ignored, final events drive a turn.
	tr.events <- speech.TranscriptEvent{Text: "what are", IsFinal: false}
	tr.events <- speech.TranscriptEvent{Text: "what are your hours", IsFinal: true}

	var utt Utterance
	select {
	case utt = <-p.Utterances():
	case <-ctx.Done():
		t.Fatal("no utterance produced")
	}
	assert.Equal(t, "We are open 9 to 5.", utt.Text)
	assert.Equal(t, "audio:We are open 9 to 5.", string(utt.Audio))
	assert.False(t, utt.Escalate)
	assert.Equal(t, 1, tts.calls)

	close(tr.events)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, p.State())
}

func TestPipeline_HistoryCarriesAcrossTurns(t *testing.T) {
	provider := &fakeProvider{replies: []string{"First answer.", "Second answer."}}
	ag := NewVanillaAgent(provider, config.AgentConfig{}, nil)
	tr := newFakeTranscriber()
	p := NewPipeline(tr, ag, &fakeTTS{}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() { _ = p.Run(ctx) }()

	tr.events <- speech.TranscriptEvent{Text: "first question", IsFinal: true}
	<-p.Utterances()
	tr.events <- speech.TranscriptEvent{Text: "second question", IsFinal: true}
	<-p.Utterances()
	close(tr.events)

	// The second turn saw the first exchange as history.
	user := provider.lastReq.Messages[1].Content
	assert.Contains(t, user, "customer: first question")
	assert.Contains(t, user, "agent: First answer.")
	assert.Contains(t, user, "second question")
}

func TestPipeline_EscalationRoutedToSupervisor(t *testing.T) {
	provider := &fakeProvider{replies: []string{"ESCALATE I cannot resolve this billing dispute."}}
	ag := NewVanillaAgent(provider, config.AgentConfig{}, nil)
	tr := newFakeTranscriber()

	handoff := NewHandoffManager(time.Second, nil)
	handoff.Register(&fakeSupervisor{id: "desk", canDo: true, resolve: func(*Escalation) (*Resolution, error) {
		return &Resolution{Message: "A supervisor will call you back within the hour."}, nil
	}})

	p := NewPipeline(tr, ag, &fakeTTS{}, nil, nil).WithHandoff(handoff)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	tr.events <- speech.TranscriptEvent{Text: "I was double charged", IsFinal: true}

	var utt Utterance
	select {
	case utt = <-p.Utterances():
	case <-ctx.Done():
		t.Fatal("no utterance produced")
	}
	close(tr.events)

	assert.True(t, utt.Escalate)
	assert.Contains(t, utt.Text, "A supervisor will call you back within the hour.")
}

func TestPipeline_EmptyFinalIgnored(t *testing.T) {
	provider := &fakeProvider{}
	ag := NewVanillaAgent(provider, config.AgentConfig{}, nil)
	tr := newFakeTranscriber()
	p := NewPipeline(tr, ag, &fakeTTS{}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	tr.events <- speech.TranscriptEvent{Text: "   ", IsFinal: true}
	close(tr.events)

	require.NoError(t, <-done)
	assert.Zero(t, provider.calls)
}
