package eval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/voicelab/voicebench/agent"
	"github.com/voicelab/voicebench/config"
	"github.com/voicelab/voicebench/internal/metrics"
)

// Latency keys on a Result.
const (
	LatencyAgentCreation = "agent_creation"
	LatencyConversation  = "conversation"
	LatencyTotal         = "total"
)

// AgentFactory builds a fresh agent of the given kind for one scenario run.
// Construction is timed separately from the conversation.
type AgentFactory func(kind string) (agent.Agent, error)

// Result is the outcome of one scenario against one agent.
type Result struct {
	ScenarioID       string             `json:"scenario_id"`
	AgentKind        string             `json:"agent_kind"`
	Timestamp        time.Time          `json:"timestamp"`
	Latency          map[string]float64 `json:"latency"`
	Accuracy         map[string]float64 `json:"accuracy"`
	HandoffSuccess   bool               `json:"handoff_success"`
	ErrorOccurred    bool               `json:"error_occurred"`
	ErrorMessage     string             `json:"error_message,omitempty"`
	ResponseText     string             `json:"response_text"`
	NextSteps        []string           `json:"next_steps,omitempty"`
	ContextRetained  bool               `json:"context_retained"`
	IntentRecognized bool               `json:"intent_recognized"`
	Passed           bool               `json:"passed"`
}

// AgentMetrics aggregates one agent's results.
type AgentMetrics struct {
	AgentKind             string             `json:"agent_kind"`
	TotalTests            int                `json:"total_tests"`
	AvgLatency            map[string]float64 `json:"avg_latency"`
	AvgAccuracy           map[string]float64 `json:"avg_accuracy"`
	HandoffSuccessRate    float64            `json:"handoff_success_rate"`
	ErrorRate             float64            `json:"error_rate"`
	ContextRetentionRate  float64            `json:"context_retention_rate"`
	IntentRecognitionRate float64            `json:"intent_recognition_rate"`
	PassRate              float64            `json:"pass_rate"`
}

// Evaluator runs scenarios against agents with bounded concurrency, optional
// rate limiting, and per-scenario retries.
type Evaluator struct {
	cfg       config.EvalConfig
	factory   AgentFactory
	collector *metrics.Collector
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewEvaluator creates an evaluator. collector may be nil.
func NewEvaluator(cfg config.EvalConfig, factory AgentFactory, collector *metrics.Collector, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Evaluator{
		cfg:       cfg,
		factory:   factory,
		collector: collector,
		limiter:   limiter,
		logger:    logger.With(zap.String("component", "eval")),
	}
}

// Run evaluates every scenario against the given agent kind. Scenario
// failures become error results rather than aborting the run, unless
// StopOnFailure is set. Results come back in scenario order.
func (e *Evaluator) Run(ctx context.Context, kind string, scenarios []Scenario) ([]Result, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios to evaluate")
	}
	e.logger.Info("starting evaluation",
		zap.String("agent_kind", kind),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("concurrency", e.cfg.Concurrency))

	results := make([]Result, len(scenarios))
	sem := semaphore.NewWeighted(int64(e.cfg.Concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for i, scenario := range scenarios {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			res := e.runScenario(gctx, kind, scenario)
			results[i] = res
			e.record(scenario, res)

			if res.ErrorOccurred && e.cfg.StopOnFailure {
				return fmt.Errorf("scenario %s failed: %s", scenario.ID, res.ErrorMessage)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (e *Evaluator) runScenario(ctx context.Context, kind string, scenario Scenario) Result {
	start := time.Now()
	res := Result{
		ScenarioID: scenario.ID,
		AgentKind:  kind,
		Timestamp:  start,
		Latency:    map[string]float64{},
	}

	reply, creation, conversation, err := e.attempt(ctx, kind, scenario)
	res.Latency[LatencyAgentCreation] = creation.Seconds()
	res.Latency[LatencyConversation] = conversation.Seconds()
	res.Latency[LatencyTotal] = time.Since(start).Seconds()

	if err != nil {
		e.logger.Warn("scenario failed",
			zap.String("scenario", scenario.ID),
			zap.String("agent_kind", kind),
			zap.Error(err))
		res.ErrorOccurred = true
		res.ErrorMessage = err.Error()
		res.Accuracy = map[string]float64{ScoreOverall: 0}
		return res
	}

	res.ResponseText = reply.Response
	res.NextSteps = reply.NextSteps
	res.Accuracy = Accuracy(reply, scenario)
	res.HandoffSuccess = res.Accuracy[ScoreHandoff] >= 1
	res.ContextRetained = res.Accuracy[ScoreContext] >= 1
	res.IntentRecognized = res.Accuracy[ScoreIntent] >= 1
	res.Passed = res.Accuracy[ScoreOverall] >= e.cfg.PassThreshold
	return res
}

// attempt runs one scenario with retries. Construction and conversation are
// timed from the last attempt so retries do not inflate a success.
func (e *Evaluator) attempt(ctx context.Context, kind string, scenario Scenario) (reply *agent.SupportReply, creation, conversation time.Duration, err error) {
	attempts := e.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if e.limiter != nil {
			if werr := e.limiter.Wait(ctx); werr != nil {
				return nil, creation, conversation, werr
			}
		}

		reply, creation, conversation, err = e.once(ctx, kind, scenario)
		if err == nil {
			return reply, creation, conversation, nil
		}
		if ctx.Err() != nil {
			return nil, creation, conversation, ctx.Err()
		}
		if i+1 < attempts {
			e.logger.Debug("retrying scenario",
				zap.String("scenario", scenario.ID),
				zap.Int("attempt", i+1),
				zap.Error(err))
		}
	}
	return nil, creation, conversation, err
}

func (e *Evaluator) once(ctx context.Context, kind string, scenario Scenario) (*agent.SupportReply, time.Duration, time.Duration, error) {
	if e.cfg.ScenarioTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ScenarioTimeout)
		defer cancel()
	}

	createStart := time.Now()
	ag, err := e.factory(kind)
	creation := time.Since(createStart)
	if err != nil {
		return nil, creation, 0, fmt.Errorf("failed to create agent: %w", err)
	}

	convStart := time.Now()
	reply, err := ag.Respond(ctx, &agent.SupportRequest{Query: scenario.UserInput})
	conversation := time.Since(convStart)
	if err != nil {
		return nil, creation, conversation, err
	}
	return reply, creation, conversation, nil
}

func (e *Evaluator) record(scenario Scenario, res Result) {
	if e.collector == nil {
		return
	}
	status := "ok"
	if res.ErrorOccurred {
		status = "error"
	}
	e.collector.RecordEvalScenario(res.AgentKind, string(scenario.Complexity), status, res.Accuracy[ScoreOverall])
}

// Aggregate computes summary metrics for one agent kind from mixed results.
func Aggregate(results []Result, kind string) AgentMetrics {
	m := AgentMetrics{
		AgentKind:   kind,
		AvgLatency:  map[string]float64{},
		AvgAccuracy: map[string]float64{},
	}

	var own []Result
	for _, r := range results {
		if r.AgentKind == kind {
			own = append(own, r)
		}
	}
	m.TotalTests = len(own)
	if m.TotalTests == 0 {
		return m
	}

	for _, key := range []string{LatencyAgentCreation, LatencyConversation, LatencyTotal} {
		m.AvgLatency[key] = meanOf(own, func(r Result) (float64, bool) {
			v, ok := r.Latency[key]
			return v, ok
		})
	}
	for _, key := range []string{ScoreOverall, ScoreIntent, ScoreContext, ScoreHandoff} {
		m.AvgAccuracy[key] = meanOf(own, func(r Result) (float64, bool) {
			v, ok := r.Accuracy[key]
			return v, ok
		})
	}

	n := float64(m.TotalTests)
	m.HandoffSuccessRate = countOf(own, func(r Result) bool { return r.HandoffSuccess }) / n
	m.ErrorRate = countOf(own, func(r Result) bool { return r.ErrorOccurred }) / n
	m.ContextRetentionRate = countOf(own, func(r Result) bool { return r.ContextRetained }) / n
	m.IntentRecognitionRate = countOf(own, func(r Result) bool { return r.IntentRecognized }) / n
	m.PassRate = countOf(own, func(r Result) bool { return r.Passed }) / n
	return m
}

func meanOf(results []Result, pick func(Result) (float64, bool)) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if v, ok := pick(r); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func countOf(results []Result, pred func(Result) bool) float64 {
	var n float64
	for _, r := range results {
		if pred(r) {
			n++
		}
	}
	return n
}
