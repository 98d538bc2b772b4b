package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/voicelab/voicebench/internal/tlsutil"
)

// DeepgramTTSProvider implements TTS using the Deepgram Aura speak API.
type DeepgramTTSProvider struct {
	cfg    DeepgramConfig
	client *http.Client
}

// NewDeepgramTTSProvider creates a Deepgram TTS provider.
func NewDeepgramTTSProvider(cfg DeepgramConfig) *DeepgramTTSProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepgram.com"
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = "aura-asteria-en"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &DeepgramTTSProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(timeout),
	}
}

func (p *DeepgramTTSProvider) Name() string { return "deepgram-tts" }

// Synthesize converts text to speech via POST /v1/speak. The voice is
// selected through the aura model name.
func (p *DeepgramTTSProvider) Synthesize(ctx context.Context, req *TTSRequest) (*TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	model := req.Model
	if model == "" {
		model = p.cfg.TTSModel
	}
	format := req.ResponseFormat
	if format == "" {
		format = "mp3"
	}

	params := url.Values{}
	params.Set("model", model)
	params.Set("encoding", deepgramEncoding(format))

	payload, _ := json.Marshal(map[string]string{"text": req.Text})
	endpoint := fmt.Sprintf("%s/v1/speak?%s", strings.TrimRight(p.cfg.BaseURL, "/"), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepgram tts request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("deepgram tts error: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	return &TTSResponse{
		Provider:  p.Name(),
		Model:     model,
		Audio:     resp.Body,
		Format:    format,
		CharCount: len(req.Text),
		CreatedAt: time.Now(),
	}, nil
}

// SynthesizeToFile converts text to speech and saves it to a file.
func (p *DeepgramTTSProvider) SynthesizeToFile(ctx context.Context, req *TTSRequest, filepath string) error {
	resp, err := p.Synthesize(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Audio.Close()

	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	_, err = io.Copy(file, resp.Audio)
	return err
}

// ListVoices returns the aura voices this project uses.
func (p *DeepgramTTSProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return []Voice{
		{ID: "aura-asteria-en", Name: "Asteria", Language: "en", Gender: "female"},
		{ID: "aura-luna-en", Name: "Luna", Language: "en", Gender: "female"},
		{ID: "aura-stella-en", Name: "Stella", Language: "en", Gender: "female"},
		{ID: "aura-athena-en", Name: "Athena", Language: "en", Gender: "female"},
		{ID: "aura-orion-en", Name: "Orion", Language: "en", Gender: "male"},
		{ID: "aura-arcas-en", Name: "Arcas", Language: "en", Gender: "male"},
		{ID: "aura-perseus-en", Name: "Perseus", Language: "en", Gender: "male"},
	}, nil
}

// deepgramEncoding maps generic formats onto Deepgram encoding names.
func deepgramEncoding(format string) string {
	switch format {
	case "pcm", "wav":
		return "linear16"
	case "opus":
		return "opus"
	default:
		return "mp3"
	}
}
