package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/voicelab/voicebench/internal/tlsutil"
)

// cartesiaVersion is the API version header Cartesia requires.
const cartesiaVersion = "2024-06-10"

// CartesiaProvider implements TTS using the Cartesia bytes API.
type CartesiaProvider struct {
	cfg    CartesiaConfig
	client *http.Client
}

// NewCartesiaProvider creates a Cartesia TTS provider.
func NewCartesiaProvider(cfg CartesiaConfig) *CartesiaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cartesia.ai"
	}
	if cfg.Model == "" {
		cfg.Model = "sonic-english"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &CartesiaProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(timeout),
	}
}

func (p *CartesiaProvider) Name() string { return "cartesia" }

type cartesiaTTSRequest struct {
	ModelID    string              `json:"model_id"`
	Transcript string              `json:"transcript"`
	Voice      cartesiaVoiceRef    `json:"voice"`
	OutputFmt  cartesiaOutputBlock `json:"output_format"`
	Language   string              `json:"language,omitempty"`
}

type cartesiaVoiceRef struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputBlock struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize converts text to speech via POST /tts/bytes.
func (p *CartesiaProvider) Synthesize(ctx context.Context, req *TTSRequest) (*TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	voice := req.Voice
	if voice == "" {
		voice = p.cfg.VoiceID
	}
	if voice == "" {
		return nil, fmt.Errorf("voice id is required")
	}
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	format := req.ResponseFormat
	if format == "" {
		format = "pcm"
	}

	body := cartesiaTTSRequest{
		ModelID:    model,
		Transcript: req.Text,
		Voice:      cartesiaVoiceRef{Mode: "id", ID: voice},
		OutputFmt:  cartesiaOutput(format, p.cfg.SampleRate),
		Language:   req.Language,
	}

	payload, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/tts/bytes",
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", p.cfg.APIKey)
	httpReq.Header.Set("Cartesia-Version", cartesiaVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cartesia request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia error: status=%d body=%s", resp.StatusCode, string(errBody))
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
func (p *CartesiaProvider) SynthesizeToFile(ctx context.Context, req *TTSRequest, filepath string) error {
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

// ListVoices queries GET /voices.
func (p *CartesiaProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", p.cfg.APIKey)
	httpReq.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cartesia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia error: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var raw []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Language    string `json:"language"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}

	voices := make([]Voice, 0, len(raw))
	for _, v := range raw {
		voices = append(voices, Voice{
			ID: v.ID, Name: v.Name, Language: v.Language, Description: v.Description,
		})
	}
	return voices, nil
}

// cartesiaOutput builds the output_format block for the requested container.
func cartesiaOutput(format string, sampleRate int) cartesiaOutputBlock {
	switch format {
	case "wav":
		return cartesiaOutputBlock{Container: "wav", Encoding: "pcm_s16le", SampleRate: sampleRate}
	case "mp3":
		return cartesiaOutputBlock{Container: "mp3", Encoding: "mp3", SampleRate: sampleRate}
	default:
		// raw PCM for the realtime pipeline
		return cartesiaOutputBlock{Container: "raw", Encoding: "pcm_s16le", SampleRate: sampleRate}
	}
}
