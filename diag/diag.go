// Package diag probes every upstream service the pipeline depends on and
// reports per-service status and latency. Backs the `check` command.
package diag

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voicelab/voicebench/internal/tlsutil"
	"github.com/voicelab/voicebench/llm"
	"github.com/voicelab/voicebench/speech"
	"github.com/voicelab/voicebench/transport/daily"
)

// Status of one service check.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is the outcome of one service probe.
type Result struct {
	Service string        `json:"service"`
	Status  Status        `json:"status"`
	Detail  string        `json:"detail,omitempty"`
	Latency time.Duration `json:"latency"`
}

// Check is one named probe. A nil probe marks the service skipped, used when
// the credentials for it are not configured.
type Check struct {
	Service string
	Probe   func(ctx context.Context) error
}

// Checker runs a set of service checks.
type Checker struct {
	checks []Check
	logger *zap.Logger
}

// NewChecker creates a checker.
func NewChecker(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{logger: logger.With(zap.String("component", "diag"))}
}

// Add appends a check.
func (c *Checker) Add(check Check) { c.checks = append(c.checks, check) }

// Run executes every check in order and returns all results.
func (c *Checker) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(c.checks))
	for _, check := range c.checks {
		if check.Probe == nil {
			results = append(results, Result{Service: check.Service, Status: StatusSkipped, Detail: "not configured"})
			continue
		}

		start := time.Now()
		err := check.Probe(ctx)
		res := Result{Service: check.Service, Latency: time.Since(start)}
		if err != nil {
			res.Status = StatusFailed
			res.Detail = err.Error()
			c.logger.Warn("service check failed",
				zap.String("service", check.Service),
				zap.Error(err))
		} else {
			res.Status = StatusOK
			c.logger.Info("service check passed",
				zap.String("service", check.Service),
				zap.Duration("latency", res.Latency))
		}
		results = append(results, res)
	}
	return results
}

// AllOK reports whether no check failed. Skipped checks do not count as
// failures.
func AllOK(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFailed {
			return false
		}
	}
	return true
}

// LLMCheck probes the chat provider's health endpoint.
func LLMCheck(p llm.Provider) Check {
	return Check{Service: "openai", Probe: func(ctx context.Context) error {
		status, err := p.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if !status.Healthy {
			return fmt.Errorf("unhealthy: %s", status.Message)
		}
		return nil
	}}
}

// DeepgramCheck verifies the API key against the projects endpoint.
func DeepgramCheck(apiKey, baseURL string) Check {
	if apiKey == "" {
		return Check{Service: "deepgram"}
	}
	if baseURL == "" {
		baseURL = "https://api.deepgram.com"
	}
	client := tlsutil.SecureHTTPClient(10 * time.Second)
	return Check{Service: "deepgram", Probe: func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			strings.TrimRight(baseURL, "/")+"/v1/projects", nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Token "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status=%d", resp.StatusCode)
		}
		return nil
	}}
}

// CartesiaCheck verifies the API key by listing voices.
func CartesiaCheck(p speech.TTSProvider, configured bool) Check {
	if !configured {
		return Check{Service: "cartesia"}
	}
	return Check{Service: "cartesia", Probe: func(ctx context.Context) error {
		voices, err := p.ListVoices(ctx)
		if err != nil {
			return err
		}
		if len(voices) == 0 {
			return fmt.Errorf("no voices available")
		}
		return nil
	}}
}

// DailyCheck verifies the API key and room by fetching the room.
func DailyCheck(client *daily.Client, roomURL string) Check {
	if client == nil || roomURL == "" {
		return Check{Service: "daily"}
	}
	return Check{Service: "daily", Probe: func(ctx context.Context) error {
		name, err := daily.RoomNameFromURL(roomURL)
		if err != nil {
			return err
		}
		_, err = client.GetRoom(ctx, name)
		return err
	}}
}
