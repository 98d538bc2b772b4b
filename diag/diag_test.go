package diag

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicelab/voicebench/llm"
)

type fakeLLM struct {
	status *llm.HealthStatus
	err    error
}

func (f *fakeLLM) Completion(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, nil
}

func (f *fakeLLM) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, nil
}

func (f *fakeLLM) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return f.status, f.err
}

func (f *fakeLLM) Name() string { return "fake" }

func TestChecker_Run(t *testing.T) {
	c := NewChecker(nil)
	c.Add(Check{Service: "good", Probe: func(context.Context) error { return nil }})
	c.Add(Check{Service: "bad", Probe: func(context.Context) error { return fmt.Errorf("down") }})
	c.Add(Check{Service: "unconfigured"})

	results := c.Run(context.Background())
	require.Len(t, results, 3)

	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, "down", results[1].Detail)
	assert.Equal(t, StatusSkipped, results[2].Status)
	assert.Equal(t, "not configured", results[2].Detail)

	assert.False(t, AllOK(results))
	assert.True(t, AllOK([]Result{{Status: StatusOK}, {Status: StatusSkipped}}))
}

func TestLLMCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		check := LLMCheck(&fakeLLM{status: &llm.HealthStatus{Healthy: true}})
		assert.NoError(t, check.Probe(context.Background()))
	})

	t.Run("unhealthy surfaces the probe message", func(t *testing.T) {
		check := LLMCheck(&fakeLLM{status: &llm.HealthStatus{Healthy: false, Message: "status=401 msg=bad key"}})
		err := check.Probe(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad key")
	})

	t.Run("transport error", func(t *testing.T) {
		check := LLMCheck(&fakeLLM{status: &llm.HealthStatus{}, err: fmt.Errorf("dial refused")})
		assert.ErrorContains(t, check.Probe(context.Background()), "dial refused")
	})
}

func TestDeepgramCheck(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/projects", r.URL.Path)
			assert.Equal(t, "Token dg-key", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"projects":[]}`))
		}))
		defer srv.Close()

		check := DeepgramCheck("dg-key", srv.URL)
		require.NotNil(t, check.Probe)
		assert.NoError(t, check.Probe(context.Background()))
	})

	t.Run("bad key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		check := DeepgramCheck("bad", srv.URL)
		assert.Error(t, check.Probe(context.Background()))
	})

	t.Run("skipped without key", func(t *testing.T) {
		check := DeepgramCheck("", "")
		assert.Nil(t, check.Probe)
	})
}
