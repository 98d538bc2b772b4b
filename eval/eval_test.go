package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicelab/voicebench/agent"
	"github.com/voicelab/voicebench/config"
)

// cannedAgent replies the same way to every request.
type cannedAgent struct {
	kind  string
	reply *agent.SupportReply
	err   error
	calls *atomic.Int32
}

func (a *cannedAgent) Kind() string { return a.kind }

func (a *cannedAgent) Respond(context.Context, *agent.SupportRequest) (*agent.SupportReply, error) {
	if a.calls != nil {
		a.calls.Add(1)
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.reply, nil
}

func factoryFor(a agent.Agent) AgentFactory {
	return func(string) (agent.Agent, error) { return a, nil }
}

func TestBuiltinScenarios(t *testing.T) {
	scenarios := BuiltinScenarios()
	require.Len(t, scenarios, 10)

	ids := map[string]bool{}
	for _, s := range scenarios {
		assert.NotEmpty(t, s.UserInput, s.ID)
		assert.False(t, ids[s.ID], "duplicate id %s", s.ID)
		ids[s.ID] = true
	}
	assert.True(t, ids["escalation_scenario"])
}

func TestFilterByComplexity(t *testing.T) {
	scenarios := BuiltinScenarios()

	assert.Len(t, FilterByComplexity(scenarios, "all"), 10)
	assert.Len(t, FilterByComplexity(scenarios, ""), 10)

	simple := FilterByComplexity(scenarios, "simple")
	require.NotEmpty(t, simple)
	for _, s := range simple {
		assert.Equal(t, ComplexitySimple, s.Complexity)
	}
	assert.Empty(t, FilterByComplexity(scenarios, "impossible"))
}

func TestAccuracy(t *testing.T) {
	t.Run("escalation expected and taken", func(t *testing.T) {
		reply := &agent.SupportReply{
			Response: "I understand, let me transfer you to our escalation team right away.",
			Escalate: true,
		}
		scores := Accuracy(reply, Scenario{RequiresContext: true, EscalationLikely: true})
		assert.Equal(t, 1.0, scores[ScoreIntent])
		assert.Equal(t, 1.0, scores[ScoreContext])
		assert.Equal(t, 1.0, scores[ScoreHandoff])
		assert.Equal(t, 1.0, scores[ScoreOverall])
	})

	t.Run("missed escalation docked", func(t *testing.T) {
		reply := &agent.SupportReply{Response: "Everything looks fine on my end, anything else I can help with today?"}
		scores := Accuracy(reply, Scenario{EscalationLikely: true})
		assert.Equal(t, 0.5, scores[ScoreHandoff])
	})

	t.Run("needless escalation docked", func(t *testing.T) {
		reply := &agent.SupportReply{Response: "Let me get a supervisor.", Escalate: true}
		scores := Accuracy(reply, Scenario{})
		assert.Equal(t, 0.5, scores[ScoreHandoff])
	})

	t.Run("terse reply fails context retention", func(t *testing.T) {
		reply := &agent.SupportReply{Response: "Sure."}
		scores := Accuracy(reply, Scenario{RequiresContext: true})
		assert.Equal(t, 0.5, scores[ScoreContext])
	})

	t.Run("next steps satisfy context retention", func(t *testing.T) {
		reply := &agent.SupportReply{Response: "Try this.", NextSteps: []string{"Reset your password"}}
		scores := Accuracy(reply, Scenario{RequiresContext: true})
		assert.Equal(t, 1.0, scores[ScoreContext])
	})

	t.Run("empty reply scores zero intent", func(t *testing.T) {
		scores := Accuracy(&agent.SupportReply{}, Scenario{})
		assert.Equal(t, 0.0, scores[ScoreIntent])
	})
}

func TestRegistry(t *testing.T) {
	t.Run("custom metric changes the overall mean", func(t *testing.T) {
		reg := DefaultRegistry()
		reg.Register(MetricFunc{
			MetricName: "politeness",
			Fn: func(reply *agent.SupportReply, _ Scenario) float64 {
				if strings.Contains(strings.ToLower(reply.Response), "please") {
					return 1
				}
				return 0
			},
		})

		reply := &agent.SupportReply{Response: "Please hold while I check your account details for you."}
		scores := reg.Score(reply, Scenario{})
		require.Contains(t, scores, "politeness")
		assert.Equal(t, 1.0, scores["politeness"])
		assert.Equal(t, 1.0, scores[ScoreOverall])
	})

	t.Run("empty registry yields no overall", func(t *testing.T) {
		scores := NewRegistry().Score(&agent.SupportReply{Response: "hi"}, Scenario{})
		assert.Empty(t, scores)
	})
}

func TestEvaluator_Run(t *testing.T) {
	cfg := config.EvalConfig{Concurrency: 2, PassThreshold: 0.7, ScenarioTimeout: time.Second}

	t.Run("all scenarios scored in order", func(t *testing.T) {
		ag := &cannedAgent{kind: "structured", reply: &agent.SupportReply{
			Response: "We are open Monday through Friday, nine to five Eastern time.",
		}}
		e := NewEvaluator(cfg, factoryFor(ag), nil, nil)

		scenarios := BuiltinScenarios()
		results, err := e.Run(context.Background(), "structured", scenarios)
		require.NoError(t, err)
		require.Len(t, results, len(scenarios))

		for i, res := range results {
			assert.Equal(t, scenarios[i].ID, res.ScenarioID)
			assert.Equal(t, "structured", res.AgentKind)
			assert.False(t, res.ErrorOccurred)
			assert.GreaterOrEqual(t, res.Accuracy[ScoreOverall], 0.0)
			assert.LessOrEqual(t, res.Accuracy[ScoreOverall], 1.0)
			assert.Contains(t, res.Latency, LatencyTotal)
		}
	})

	t.Run("failures become error results", func(t *testing.T) {
		ag := &cannedAgent{kind: "vanilla", err: fmt.Errorf("upstream exploded")}
		e := NewEvaluator(cfg, factoryFor(ag), nil, nil)

		results, err := e.Run(context.Background(), "vanilla", BuiltinScenarios()[:3])
		require.NoError(t, err)
		require.Len(t, results, 3)
		for _, res := range results {
			assert.True(t, res.ErrorOccurred)
			assert.Contains(t, res.ErrorMessage, "upstream exploded")
			assert.Equal(t, 0.0, res.Accuracy[ScoreOverall])
		}
	})

	t.Run("stop on failure aborts", func(t *testing.T) {
		stopCfg := cfg
		stopCfg.StopOnFailure = true
		stopCfg.Concurrency = 1
		ag := &cannedAgent{kind: "vanilla", err: fmt.Errorf("boom")}
		e := NewEvaluator(stopCfg, factoryFor(ag), nil, nil)

		_, err := e.Run(context.Background(), "vanilla", BuiltinScenarios()[:3])
		require.Error(t, err)
	})

	t.Run("retries count extra attempts", func(t *testing.T) {
		calls := &atomic.Int32{}
		flaky := &cannedAgent{kind: "structured", err: fmt.Errorf("always fails"), calls: calls}
		retryCfg := cfg
		retryCfg.MaxRetries = 2
		e := NewEvaluator(retryCfg, factoryFor(flaky), nil, nil)

		results, err := e.Run(context.Background(), "structured", BuiltinScenarios()[:1])
		require.NoError(t, err)
		assert.True(t, results[0].ErrorOccurred)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("empty scenario list rejected", func(t *testing.T) {
		e := NewEvaluator(cfg, factoryFor(&cannedAgent{}), nil, nil)
		_, err := e.Run(context.Background(), "structured", nil)
		assert.Error(t, err)
	})
}

func TestAggregate(t *testing.T) {
	results := []Result{
		{
			AgentKind:        "structured",
			Latency:          map[string]float64{LatencyTotal: 1.0, LatencyConversation: 0.8},
			Accuracy:         map[string]float64{ScoreOverall: 1.0, ScoreIntent: 1.0},
			HandoffSuccess:   true,
			ContextRetained:  true,
			IntentRecognized: true,
			Passed:           true,
		},
		{
			AgentKind:     "structured",
			Latency:       map[string]float64{LatencyTotal: 3.0},
			Accuracy:      map[string]float64{ScoreOverall: 0.0},
			ErrorOccurred: true,
		},
		{
			AgentKind: "vanilla",
			Latency:   map[string]float64{LatencyTotal: 2.0},
			Accuracy:  map[string]float64{ScoreOverall: 0.6},
		},
	}

	m := Aggregate(results, "structured")
	assert.Equal(t, 2, m.TotalTests)
	assert.InDelta(t, 2.0, m.AvgLatency[LatencyTotal], 1e-9)
	assert.InDelta(t, 0.5, m.AvgAccuracy[ScoreOverall], 1e-9)
	assert.InDelta(t, 0.5, m.ErrorRate, 1e-9)
	assert.InDelta(t, 0.5, m.HandoffSuccessRate, 1e-9)
	assert.InDelta(t, 0.5, m.PassRate, 1e-9)

	empty := Aggregate(results, "missing")
	assert.Zero(t, empty.TotalTests)
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, nil)
	require.NoError(t, err)

	results := []Result{{
		ScenarioID: "simple_query",
		AgentKind:  "structured",
		Timestamp:  time.Now(),
		Latency:    map[string]float64{LatencyTotal: 1.2},
		Accuracy:   map[string]float64{ScoreOverall: 0.9},
		Passed:     true,
	}}

	t.Run("results file", func(t *testing.T) {
		path, err := w.SaveResults("structured", results)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "structured_results.json"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var report Report
		require.NoError(t, json.Unmarshal(data, &report))
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, "structured", report.AgentKind)
		require.Len(t, report.Results, 1)
		assert.Equal(t, "simple_query", report.Results[0].ScenarioID)
	})

	t.Run("comparison report", func(t *testing.T) {
		structured := Aggregate(results, "structured")
		vanilla := AgentMetrics{
			AgentKind:   "vanilla",
			TotalTests:  1,
			AvgLatency:  map[string]float64{LatencyTotal: 2.0},
			AvgAccuracy: map[string]float64{ScoreOverall: 0.5},
			ErrorRate:   0.1,
		}

		path, err := w.SaveComparisonReport(structured, vanilla)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		report := string(data)
		assert.Contains(t, report, "# Structured vs. Vanilla Prompting")
		assert.Contains(t, report, "Structured prompting wins")
		assert.Contains(t, report, "| Overall |")
	})

	t.Run("no stray temp files", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".report-")
		}
	})
}
