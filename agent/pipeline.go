package agent

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voicelab/voicebench/internal/metrics"
	"github.com/voicelab/voicebench/speech"
)

// PipelineState is the current phase of the voice loop.
type PipelineState string

const (
	StateIdle        PipelineState = "idle"
	StateListening   PipelineState = "listening"
	StateProcessing  PipelineState = "processing"
	StateSpeaking    PipelineState = "speaking"
	StateInterrupted PipelineState = "interrupted"
)

// Transcriber is the streaming STT side of the pipeline.
type Transcriber interface {
	Connect(ctx context.Context) error
	SendAudio(frame []byte) error
	Events() <-chan speech.TranscriptEvent
	Close() error
}

// Utterance is one spoken agent reply leaving the pipeline.
type Utterance struct {
	Text      string
	Audio     []byte
	Escalate  bool
	Timestamp time.Time
}

// Pipeline runs the listen-think-speak loop: final transcripts go to the
// agent, agent replies go to TTS, synthesized audio goes to the caller. Both
// agent kinds run through the exact same pipeline.
type Pipeline struct {
	transcriber Transcriber
	agent       Agent
	tts         speech.TTSProvider
	handoff     *HandoffManager
	collector   *metrics.Collector
	logger      *zap.Logger

	state   PipelineState
	stateMu sync.RWMutex

	utterances chan Utterance
}

// NewPipeline assembles a voice pipeline. collector may be nil.
func NewPipeline(transcriber Transcriber, ag Agent, tts speech.TTSProvider, collector *metrics.Collector, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		transcriber: transcriber,
		agent:       ag,
		tts:         tts,
		collector:   collector,
		logger:      logger.With(zap.String("component", "agent.pipeline"), zap.String("agent_kind", ag.Kind())),
		state:       StateIdle,
		utterances:  make(chan Utterance, 16),
	}
}

// WithHandoff routes escalated replies through the manager's supervisors.
// Must be set before Run.
func (p *Pipeline) WithHandoff(m *HandoffManager) *Pipeline {
	p.handoff = m
	return p
}

// State returns the current pipeline state.
func (p *Pipeline) State() PipelineState {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// Utterances returns the channel of spoken replies. It is closed when Run
// returns.
func (p *Pipeline) Utterances() <-chan Utterance { return p.utterances }

// SendAudio forwards a captured audio frame to the transcriber.
func (p *Pipeline) SendAudio(frame []byte) error {
	return p.transcriber.SendAudio(frame)
}

// Interrupt marks the current reply as interrupted. The next final
// transcript resumes the loop.
func (p *Pipeline) Interrupt() {
	p.setState(StateInterrupted)
}

// Run connects the transcriber and processes events until ctx is cancelled
// or the transcript stream ends.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.transcriber.Connect(ctx); err != nil {
		p.recordSession("connect_error")
		return fmt.Errorf("failed to connect transcriber: %w", err)
	}
	defer close(p.utterances)
	defer func() { _ = p.transcriber.Close() }()

	p.setState(StateListening)
	var turns []string

	for {
		select {
		case <-ctx.Done():
			p.setState(StateIdle)
			p.recordSession("cancelled")
			return ctx.Err()
		case ev, ok := <-p.transcriber.Events():
			if !ok {
				p.setState(StateIdle)
				p.recordSession("completed")
				return nil
			}
			if !ev.IsFinal || strings.TrimSpace(ev.Text) == "" {
				continue
			}
			if err := p.handleTurn(ctx, ev.Text, &turns); err != nil {
				p.setState(StateIdle)
				p.recordSession("error")
				return err
			}
		}
	}
}

func (p *Pipeline) handleTurn(ctx context.Context, text string, turns *[]string) error {
	p.logger.Debug("final transcript", zap.String("text", text))
	p.setState(StateProcessing)

	req := &SupportRequest{Query: text, History: append([]string(nil), *turns...)}

	llmStart := time.Now()
	reply, err := p.agent.Respond(ctx, req)
	p.recordStage("llm", time.Since(llmStart))
	if err != nil {
		return fmt.Errorf("agent failed: %w", err)
	}

	if reply.Escalate && p.handoff != nil {
		p.escalate(ctx, req, reply)
	}

	p.setState(StateSpeaking)
	ttsStart := time.Now()
	audio, err := p.synthesize(ctx, reply.Response)
	p.recordStage("tts", time.Since(ttsStart))
	if err != nil {
		// The reply text still reaches the caller so the turn is not lost.
		p.logger.Warn("synthesis failed", zap.Error(err))
	}

	*turns = append(*turns,
		"customer: "+text,
		"agent: "+reply.Response,
	)

	select {
	case p.utterances <- Utterance{Text: reply.Response, Audio: audio, Escalate: reply.Escalate, Timestamp: time.Now()}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.setState(StateListening)
	return nil
}

// escalate hands the turn to a supervisor. A resolution message is appended
// to the spoken reply; a failed handoff leaves the reply as is.
func (p *Pipeline) escalate(ctx context.Context, req *SupportRequest, reply *SupportReply) {
	start := time.Now()
	esc, err := p.handoff.Escalate(ctx, p.agent.Kind(), req, reply)
	p.recordStage("handoff", time.Since(start))

	if p.collector != nil {
		p.collector.RecordEscalation(p.agent.Kind(), string(esc.Status))
	}
	if err != nil {
		p.logger.Warn("handoff failed", zap.String("status", string(esc.Status)), zap.Error(err))
		return
	}
	if esc.Resolution != nil && esc.Resolution.Message != "" {
		reply.Response = reply.Response + " " + esc.Resolution.Message
	}
}

func (p *Pipeline) synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := p.tts.Synthesize(ctx, &speech.TTSRequest{Text: text})
	if err != nil {
		return nil, err
	}
	defer resp.Audio.Close()
	return io.ReadAll(resp.Audio)
}

func (p *Pipeline) setState(next PipelineState) {
	p.stateMu.Lock()
	prev := p.state
	p.state = next
	p.stateMu.Unlock()
	if prev != next && p.collector != nil {
		p.collector.RecordStateTransition(string(prev), string(next))
	}
}

func (p *Pipeline) recordStage(stage string, d time.Duration) {
	if p.collector != nil {
		p.collector.RecordPipelineStage(p.agent.Kind(), stage, d)
	}
}

func (p *Pipeline) recordSession(status string) {
	if p.collector != nil {
		p.collector.RecordPipelineSession(p.agent.Kind(), status)
	}
}
