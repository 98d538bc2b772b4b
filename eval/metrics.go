package eval

import (
	"strings"

	"github.com/voicelab/voicebench/agent"
)

// Accuracy dimension keys.
const (
	ScoreOverall      = "overall"
	ScoreIntent       = "intent_recognition"
	ScoreContext      = "context_retention"
	ScoreHandoff      = "handoff_appropriate"
	passPartialCredit = 0.5
)

// Metric scores one accuracy dimension of a reply against its scenario.
// Scores must stay in [0, 1].
type Metric interface {
	Name() string
	Score(reply *agent.SupportReply, scenario Scenario) float64
}

// MetricFunc adapts a plain function into a Metric.
type MetricFunc struct {
	MetricName string
	Fn         func(reply *agent.SupportReply, scenario Scenario) float64
}

func (m MetricFunc) Name() string { return m.MetricName }

func (m MetricFunc) Score(reply *agent.SupportReply, scenario Scenario) float64 {
	return m.Fn(reply, scenario)
}

// Registry holds the metrics applied to every result. Score adds an overall
// entry that is the mean of the registered metrics.
type Registry struct {
	metrics []Metric
}

// NewRegistry builds a registry with the given metrics.
func NewRegistry(metrics ...Metric) *Registry {
	return &Registry{metrics: metrics}
}

// DefaultRegistry returns the builtin dimensions: intent recognition,
// context retention and handoff appropriateness.
func DefaultRegistry() *Registry {
	return NewRegistry(
		MetricFunc{MetricName: ScoreIntent, Fn: scoreIntent},
		MetricFunc{MetricName: ScoreContext, Fn: scoreContext},
		MetricFunc{MetricName: ScoreHandoff, Fn: scoreHandoff},
	)
}

// Register appends a metric. Metrics registered under an existing name
// overwrite the earlier score in the output map.
func (r *Registry) Register(m Metric) {
	r.metrics = append(r.metrics, m)
}

// Score runs every registered metric and adds the overall mean.
func (r *Registry) Score(reply *agent.SupportReply, scenario Scenario) map[string]float64 {
	out := make(map[string]float64, len(r.metrics)+1)
	sum := 0.0
	for _, m := range r.metrics {
		s := m.Score(reply, scenario)
		out[m.Name()] = s
		sum += s
	}
	if len(r.metrics) > 0 {
		out[ScoreOverall] = sum / float64(len(r.metrics))
	}
	return out
}

// Accuracy scores one reply against a scenario with the default metrics. All
// scores are in [0, 1] and overall is the mean of the three dimensions.
//
// Intent recognition checks that the reply engages with the request at all.
// Context retention expects a substantive reply when the scenario needs
// follow-up context. Handoff appropriateness rewards escalating exactly when
// the scenario calls for it.
func Accuracy(reply *agent.SupportReply, scenario Scenario) map[string]float64 {
	return DefaultRegistry().Score(reply, scenario)
}

func scoreIntent(reply *agent.SupportReply, _ Scenario) float64 {
	if reply == nil || strings.TrimSpace(reply.Response) == "" {
		return 0
	}
	return 1
}

func scoreContext(reply *agent.SupportReply, scenario Scenario) float64 {
	if reply == nil {
		return 0
	}
	if !scenario.RequiresContext {
		return 1
	}
	// Context-dependent scenarios need more than a one-liner: either a
	// substantive reply or concrete follow-up steps.
	if len(reply.Response) > 50 || len(reply.NextSteps) > 0 {
		return 1
	}
	return passPartialCredit
}

func scoreHandoff(reply *agent.SupportReply, scenario Scenario) float64 {
	if reply == nil {
		return 0
	}
	escalated := reply.Escalate || strings.Contains(strings.ToLower(reply.Response), "supervisor")
	if scenario.EscalationLikely {
		if escalated {
			return 1
		}
		return passPartialCredit
	}
	if escalated {
		// Escalating a routine question wastes a supervisor's time.
		return passPartialCredit
	}
	return 1
}
