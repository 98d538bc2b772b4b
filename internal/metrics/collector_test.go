package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// promauto registers into the default registry, so the collector is created
// once and shared across subtests.
var testCollector = NewCollector("voicebench_test", nil)

func TestCollector_RecordLLMRequest(t *testing.T) {
	testCollector.RecordLLMRequest("openai", "gpt-4o-mini", "ok", 250*time.Millisecond, 20, 8)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		testCollector.llmRequestsTotal.WithLabelValues("openai", "gpt-4o-mini", "ok")))
	assert.Equal(t, float64(20), testutil.ToFloat64(
		testCollector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini", "prompt")))
	assert.Equal(t, float64(8), testutil.ToFloat64(
		testCollector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini", "completion")))
}

func TestCollector_RecordSpeechAndPipeline(t *testing.T) {
	testCollector.RecordSpeechRequest("deepgram", "stt", "ok", 80*time.Millisecond)
	testCollector.RecordPipelineSession("structured", "completed")
	testCollector.RecordPipelineStage("structured", "llm", 900*time.Millisecond)
	testCollector.RecordStateTransition("listening", "processing")

	assert.Equal(t, float64(1), testutil.ToFloat64(
		testCollector.speechRequestsTotal.WithLabelValues("deepgram", "stt", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		testCollector.pipelineSessionsTotal.WithLabelValues("structured", "completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		testCollector.pipelineStateTransition.WithLabelValues("listening", "processing")))
}

func TestCollector_RecordAgentAndEval(t *testing.T) {
	testCollector.RecordAgentReply("vanilla", "ok", time.Second)
	testCollector.RecordEscalation("vanilla", "accepted")
	testCollector.RecordEvalScenario("vanilla", "simple", "ok", 0.9)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		testCollector.agentRepliesTotal.WithLabelValues("vanilla", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		testCollector.escalationsTotal.WithLabelValues("vanilla", "accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		testCollector.evalScenariosTotal.WithLabelValues("vanilla", "simple", "ok")))
}
