// Package metrics provides internal Prometheus metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector registers and records the voicebench metric vectors.
type Collector struct {
	// LLM
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	// Speech
	speechRequestsTotal   *prometheus.CounterVec
	speechRequestDuration *prometheus.HistogramVec

	// Pipeline
	pipelineSessionsTotal   *prometheus.CounterVec
	pipelineStageDuration   *prometheus.HistogramVec
	pipelineStateTransition *prometheus.CounterVec

	// Agents
	agentRepliesTotal  *prometheus.CounterVec
	agentReplyDuration *prometheus.HistogramVec
	escalationsTotal   *prometheus.CounterVec

	// Evaluation
	evalScenariosTotal *prometheus.CounterVec
	evalScenarioScore  *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates the collector, registering all vectors under the
// given namespace via promauto.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	c.speechRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_requests_total",
			Help:      "Total number of STT/TTS requests",
		},
		[]string{"provider", "operation", "status"}, // operation: stt, tts
	)

	c.speechRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speech_request_duration_seconds",
			Help:      "STT/TTS request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	c.pipelineSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_sessions_total",
			Help:      "Total number of voice pipeline sessions",
		},
		[]string{"agent_kind", "status"},
	)

	c.pipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Voice pipeline stage duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"agent_kind", "stage"}, // stage: stt, llm, tts
	)

	c.pipelineStateTransition = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_state_transitions_total",
			Help:      "Total number of pipeline state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	c.agentRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_replies_total",
			Help:      "Total number of agent replies",
		},
		[]string{"agent_kind", "status"},
	)

	c.agentReplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_reply_duration_seconds",
			Help:      "Agent reply duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"agent_kind"},
	)

	c.escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Total number of supervisor escalations",
		},
		[]string{"agent_kind", "outcome"}, // outcome: accepted, timeout, failed
	)

	c.evalScenariosTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eval_scenarios_total",
			Help:      "Total number of evaluated scenarios",
		},
		[]string{"agent_kind", "complexity", "status"},
	)

	c.evalScenarioScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eval_scenario_score",
			Help:      "Overall accuracy score per evaluated scenario",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"agent_kind"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordLLMRequest records one chat completion round trip.
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// RecordSpeechRequest records one STT or TTS round trip.
func (c *Collector) RecordSpeechRequest(provider, operation, status string, duration time.Duration) {
	c.speechRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	c.speechRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordPipelineSession records a completed pipeline session.
func (c *Collector) RecordPipelineSession(agentKind, status string) {
	c.pipelineSessionsTotal.WithLabelValues(agentKind, status).Inc()
}

// RecordPipelineStage records the duration of one pipeline stage.
func (c *Collector) RecordPipelineStage(agentKind, stage string, duration time.Duration) {
	c.pipelineStageDuration.WithLabelValues(agentKind, stage).Observe(duration.Seconds())
}

// RecordStateTransition records a pipeline state change.
func (c *Collector) RecordStateTransition(fromState, toState string) {
	c.pipelineStateTransition.WithLabelValues(fromState, toState).Inc()
}

// RecordAgentReply records one agent reply.
func (c *Collector) RecordAgentReply(agentKind, status string, duration time.Duration) {
	c.agentRepliesTotal.WithLabelValues(agentKind, status).Inc()
	c.agentReplyDuration.WithLabelValues(agentKind).Observe(duration.Seconds())
}

// RecordEscalation records a supervisor escalation outcome.
func (c *Collector) RecordEscalation(agentKind, outcome string) {
	c.escalationsTotal.WithLabelValues(agentKind, outcome).Inc()
}

// RecordEvalScenario records one evaluated scenario.
func (c *Collector) RecordEvalScenario(agentKind, complexity, status string, overallScore float64) {
	c.evalScenariosTotal.WithLabelValues(agentKind, complexity, status).Inc()
	c.evalScenarioScore.WithLabelValues(agentKind).Observe(overallScore)
}
