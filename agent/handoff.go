package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EscalationStatus tracks an escalation through its lifecycle.
type EscalationStatus string

const (
	EscalationPending   EscalationStatus = "pending"
	EscalationAccepted  EscalationStatus = "accepted"
	EscalationRejected  EscalationStatus = "rejected"
	EscalationCompleted EscalationStatus = "completed"
	EscalationFailed    EscalationStatus = "failed"
)

// Escalation is a support case handed from an agent to a human supervisor.
type Escalation struct {
	ID          string           `json:"id"`
	AgentKind   string           `json:"agent_kind"`
	Supervisor  string           `json:"supervisor,omitempty"`
	Request     *SupportRequest  `json:"request"`
	LastReply   *SupportReply    `json:"last_reply,omitempty"`
	Status      EscalationStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Resolution  *Resolution      `json:"resolution,omitempty"`
}

// Resolution is a supervisor's answer to an escalation.
type Resolution struct {
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Supervisor handles escalated support cases.
type Supervisor interface {
	ID() string
	CanHandle(esc *Escalation) bool
	Resolve(ctx context.Context, esc *Escalation) (*Resolution, error)
}

// HandoffManager routes escalations to registered supervisors and lets the
// caller wait for the resolution.
type HandoffManager struct {
	supervisors map[string]Supervisor
	escalations map[string]*Escalation
	pending     map[string]chan *Resolution
	timeout     time.Duration
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewHandoffManager creates a handoff manager. timeout bounds how long
// Escalate waits for a resolution; zero means one minute.
func NewHandoffManager(timeout time.Duration, logger *zap.Logger) *HandoffManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &HandoffManager{
		supervisors: make(map[string]Supervisor),
		escalations: make(map[string]*Escalation),
		pending:     make(map[string]chan *Resolution),
		timeout:     timeout,
		logger:      logger.With(zap.String("component", "agent.handoff")),
	}
}

// Register adds a supervisor.
func (m *HandoffManager) Register(s Supervisor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supervisors[s.ID()] = s
	m.logger.Info("registered supervisor", zap.String("id", s.ID()))
}

// Unregister removes a supervisor.
func (m *HandoffManager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.supervisors, id)
}

// Escalate hands a case to the first supervisor that accepts it and waits
// for the resolution, the timeout, or ctx cancellation.
func (m *HandoffManager) Escalate(ctx context.Context, agentKind string, req *SupportRequest, lastReply *SupportReply) (*Escalation, error) {
	esc := &Escalation{
		ID:        uuid.NewString(),
		AgentKind: agentKind,
		Request:   req,
		LastReply: lastReply,
		Status:    EscalationPending,
		CreatedAt: time.Now(),
	}

	target := m.findSupervisor(esc)
	if target == nil {
		esc.Status = EscalationRejected
		return esc, fmt.Errorf("no supervisor available for escalation")
	}
	esc.Supervisor = target.ID()
	esc.Status = EscalationAccepted

	resultCh := make(chan *Resolution, 1)
	m.mu.Lock()
	m.escalations[esc.ID] = esc
	m.pending[esc.ID] = resultCh
	m.mu.Unlock()

	m.logger.Info("escalation accepted",
		zap.String("id", esc.ID),
		zap.String("agent_kind", agentKind),
		zap.String("supervisor", target.ID()))

	go m.resolve(ctx, target, esc, resultCh)

	// esc is shared with the resolve goroutine from here on; it is only
	// read or written under m.mu, and callers get a detached copy.
	select {
	case <-resultCh:
		return m.snapshot(esc.ID), nil
	case <-time.After(m.timeout):
		m.mu.Lock()
		if esc.Status == EscalationAccepted {
			esc.Status = EscalationFailed
		}
		delete(m.pending, esc.ID)
		m.mu.Unlock()
		return m.snapshot(esc.ID), fmt.Errorf("escalation %s timed out", esc.ID)
	case <-ctx.Done():
		return m.snapshot(esc.ID), ctx.Err()
	}
}

// Get retrieves a copy of an escalation by ID.
func (m *HandoffManager) Get(id string) (*Escalation, error) {
	m.mu.RLock()
	_, ok := m.escalations[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("escalation not found: %s", id)
	}
	return m.snapshot(id), nil
}

// snapshot returns a detached copy so callers never observe concurrent
// writes from the resolve goroutine.
func (m *HandoffManager) snapshot(id string) *Escalation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := *m.escalations[id]
	return &cp
}

func (m *HandoffManager) findSupervisor(esc *Escalation) Supervisor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.supervisors {
		if s.CanHandle(esc) {
			return s
		}
	}
	return nil
}

func (m *HandoffManager) resolve(ctx context.Context, s Supervisor, esc *Escalation, resultCh chan *Resolution) {
	start := time.Now()
	res, err := s.Resolve(ctx, m.snapshot(esc.ID))
	if err != nil {
		res = &Resolution{Error: err.Error()}
	}
	res.DurationMS = time.Since(start).Milliseconds()

	now := time.Now()
	m.mu.Lock()
	esc.CompletedAt = &now
	esc.Resolution = res
	switch {
	case err != nil:
		esc.Status = EscalationFailed
	case esc.Status == EscalationAccepted:
		// A timed-out escalation stays failed even when the supervisor
		// answers late; the resolution is still recorded above.
		esc.Status = EscalationCompleted
	}
	status := esc.Status
	delete(m.pending, esc.ID)
	m.mu.Unlock()

	m.logger.Info("escalation resolved",
		zap.String("id", esc.ID),
		zap.String("status", string(status)),
		zap.Int64("duration_ms", res.DurationMS))

	select {
	case resultCh <- res:
	default:
	}
}

// StaticSupervisor accepts every escalation and resolves it with a fixed
// message. It stands in for a human desk in live sessions.
type StaticSupervisor struct {
	id      string
	message string
}

// NewStaticSupervisor creates a static supervisor. Empty arguments get
// sensible defaults.
func NewStaticSupervisor(id, message string) *StaticSupervisor {
	if id == "" {
		id = "support-desk"
	}
	if message == "" {
		message = "A human supervisor has been notified and will follow up shortly."
	}
	return &StaticSupervisor{id: id, message: message}
}

func (s *StaticSupervisor) ID() string                 { return s.id }
func (s *StaticSupervisor) CanHandle(*Escalation) bool { return true }

func (s *StaticSupervisor) Resolve(context.Context, *Escalation) (*Resolution, error) {
	return &Resolution{Message: s.message}, nil
}
