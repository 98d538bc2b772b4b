package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Report bundles one evaluation run for serialization.
type Report struct {
	RunID     string    `json:"run_id"`
	AgentKind string    `json:"agent_kind"`
	CreatedAt time.Time `json:"created_at"`
	Results   []Result  `json:"results"`
}

// Writer persists results and comparison reports under a results directory.
// All writes go through a temp file and rename so readers never see a
// partial file.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates a writer rooted at dir, creating it if needed.
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results dir: %w", err)
	}
	return &Writer{dir: dir, logger: logger.With(zap.String("component", "eval.writer"))}, nil
}

// SaveResults writes <agentKind>_results.json and returns the path.
func (w *Writer) SaveResults(agentKind string, results []Result) (string, error) {
	report := Report{
		RunID:     uuid.NewString(),
		AgentKind: agentKind,
		CreatedAt: time.Now(),
		Results:   results,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	path := filepath.Join(w.dir, agentKind+"_results.json")
	if err := w.writeAtomic(path, data); err != nil {
		return "", err
	}
	w.logger.Info("results saved", zap.String("path", path), zap.Int("count", len(results)))
	return path, nil
}

// SaveComparisonReport writes comparison_report.md for the two agents and
// returns the path.
func (w *Writer) SaveComparisonReport(structured, vanilla AgentMetrics) (string, error) {
	path := filepath.Join(w.dir, "comparison_report.md")
	if err := w.writeAtomic(path, []byte(RenderComparison(structured, vanilla))); err != nil {
		return "", err
	}
	w.logger.Info("comparison report saved", zap.String("path", path))
	return path, nil
}

func (w *Writer) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(w.dir, ".report-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename into place: %w", err)
	}
	return nil
}

// RenderComparison produces the markdown comparison report.
func RenderComparison(structured, vanilla AgentMetrics) string {
	var b strings.Builder

	b.WriteString("# Structured vs. Vanilla Prompting: Evaluation Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	b.WriteString("## Latency (seconds)\n\n")
	b.WriteString("| Metric | Structured | Vanilla | Difference |\n")
	b.WriteString("|--------|------------|---------|------------|\n")
	latencyRows := []struct{ label, key string }{
		{"Agent Creation", LatencyAgentCreation},
		{"Conversation", LatencyConversation},
		{"Total", LatencyTotal},
	}
	for _, row := range latencyRows {
		s, v := structured.AvgLatency[row.key], vanilla.AvgLatency[row.key]
		fmt.Fprintf(&b, "| %s | %.3f | %.3f | %+.3f |\n", row.label, s, v, s-v)
	}

	b.WriteString("\n## Accuracy (0-1 scale)\n\n")
	b.WriteString("| Metric | Structured | Vanilla | Difference |\n")
	b.WriteString("|--------|------------|---------|------------|\n")
	accuracyRows := []struct{ label, key string }{
		{"Overall", ScoreOverall},
		{"Intent Recognition", ScoreIntent},
		{"Context Retention", ScoreContext},
		{"Handoff Appropriateness", ScoreHandoff},
	}
	for _, row := range accuracyRows {
		s, v := structured.AvgAccuracy[row.key], vanilla.AvgAccuracy[row.key]
		fmt.Fprintf(&b, "| %s | %.3f | %.3f | %+.3f |\n", row.label, s, v, s-v)
	}

	b.WriteString("\n## Success Rates\n\n")
	b.WriteString("| Metric | Structured | Vanilla | Difference |\n")
	b.WriteString("|--------|------------|---------|------------|\n")
	rateRows := []struct {
		label string
		s, v  float64
	}{
		{"Handoff Success Rate", structured.HandoffSuccessRate, vanilla.HandoffSuccessRate},
		{"Context Retention Rate", structured.ContextRetentionRate, vanilla.ContextRetentionRate},
		{"Intent Recognition Rate", structured.IntentRecognitionRate, vanilla.IntentRecognitionRate},
		{"Pass Rate", structured.PassRate, vanilla.PassRate},
		{"Error Rate", structured.ErrorRate, vanilla.ErrorRate},
	}
	for _, row := range rateRows {
		fmt.Fprintf(&b, "| %s | %.1f%% | %.1f%% | %+.1f%% |\n",
			row.label, row.s*100, row.v*100, (row.s-row.v)*100)
	}

	b.WriteString("\n## Verdict\n\n")
	fmt.Fprintf(&b, "- Structured agent score: %.1f/100\n", structured.AvgAccuracy[ScoreOverall]*100)
	fmt.Fprintf(&b, "- Vanilla agent score: %.1f/100\n\n", vanilla.AvgAccuracy[ScoreOverall]*100)

	if structured.AvgLatency[LatencyTotal] < vanilla.AvgLatency[LatencyTotal] {
		b.WriteString("1. Latency: the structured agent is faster.\n")
	} else {
		b.WriteString("1. Latency: the vanilla agent is faster.\n")
	}
	if structured.AvgAccuracy[ScoreOverall] > vanilla.AvgAccuracy[ScoreOverall] {
		b.WriteString("2. Accuracy: the structured agent is more accurate.\n")
	} else {
		b.WriteString("2. Accuracy: the vanilla agent is more accurate.\n")
	}
	if structured.ErrorRate < vanilla.ErrorRate {
		b.WriteString("3. Reliability: the structured agent is more reliable.\n")
	} else {
		b.WriteString("3. Reliability: the vanilla agent is more reliable.\n")
	}

	b.WriteString("\n")
	if structured.AvgAccuracy[ScoreOverall] > vanilla.AvgAccuracy[ScoreOverall] {
		b.WriteString("**Structured prompting wins**: schema-validated output produced measurably better replies on this suite.\n")
	} else {
		b.WriteString("**Vanilla prompting wins**: plain prompting was sufficient on this suite.\n")
	}

	fmt.Fprintf(&b, "\n## Scenarios\n\nScenarios evaluated per agent: %d (structured), %d (vanilla).\n",
		structured.TotalTests, vanilla.TotalTests)
	b.WriteString("\nBoth agents ran on the identical STT, LLM, and TTS pipeline; only the prompting strategy differed.\n")

	return b.String()
}
