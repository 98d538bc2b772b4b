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

// DeepgramSTTProvider implements STT using the Deepgram prerecorded API.
type DeepgramSTTProvider struct {
	cfg    DeepgramConfig
	client *http.Client
}

// NewDeepgramSTTProvider creates a Deepgram STT provider.
func NewDeepgramSTTProvider(cfg DeepgramConfig) *DeepgramSTTProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepgram.com"
	}
	if cfg.STTModel == "" {
		cfg.STTModel = "nova-2"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &DeepgramSTTProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(timeout),
	}
}

func (p *DeepgramSTTProvider) Name() string { return "deepgram" }

func (p *DeepgramSTTProvider) SupportedFormats() []string {
	return []string{"mp3", "mp4", "mp2", "aac", "wav", "flac", "pcm", "m4a", "ogg", "opus", "webm"}
}

type deepgramListenResponse struct {
	Metadata struct {
		RequestID string  `json:"request_id"`
		Duration  float64 `json:"duration"`
		Channels  int     `json:"channels"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word       string  `json:"word"`
					Start      float64 `json:"start"`
					End        float64 `json:"end"`
					Confidence float64 `json:"confidence"`
					Speaker    int     `json:"speaker,omitempty"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe converts speech to text via POST /v1/listen. Accepts either a
// raw audio body or a URL reference.
func (p *DeepgramSTTProvider) Transcribe(ctx context.Context, req *STTRequest) (*STTResponse, error) {
	if req.Audio == nil && req.AudioURL == "" {
		return nil, fmt.Errorf("audio input or URL is required")
	}

	model := req.Model
	if model == "" {
		model = p.cfg.STTModel
	}

	params := url.Values{}
	params.Set("model", model)
	params.Set("smart_format", "true")
	params.Set("punctuate", "true")
	language := req.Language
	if language == "" {
		language = p.cfg.Language
	}
	if language != "" {
		params.Set("language", language)
	}
	if req.Diarization {
		params.Set("diarize", "true")
	}

	endpoint := fmt.Sprintf("%s/v1/listen?%s", strings.TrimRight(p.cfg.BaseURL, "/"), params.Encode())

	var httpReq *http.Request
	var err error

	if req.AudioURL != "" {
		payload, _ := json.Marshal(map[string]string{"url": req.AudioURL})
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
	} else {
		audioData, readErr := io.ReadAll(req.Audio)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read audio: %w", readErr)
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audioData))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "audio/mpeg")
	}

	httpReq.Header.Set("Authorization", "Token "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepgram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("deepgram error: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var dResp deepgramListenResponse
	if err := json.NewDecoder(resp.Body).Decode(&dResp); err != nil {
		return nil, fmt.Errorf("failed to decode deepgram response: %w", err)
	}

	result := &STTResponse{
		Provider:  p.Name(),
		Model:     model,
		Language:  language,
		Duration:  time.Duration(dResp.Metadata.Duration * float64(time.Second)),
		CreatedAt: time.Now(),
	}

	if len(dResp.Results.Channels) > 0 && len(dResp.Results.Channels[0].Alternatives) > 0 {
		alt := dResp.Results.Channels[0].Alternatives[0]
		result.Text = alt.Transcript
		result.Confidence = alt.Confidence

		for _, w := range alt.Words {
			word := Word{
				Word:       w.Word,
				Start:      time.Duration(w.Start * float64(time.Second)),
				End:        time.Duration(w.End * float64(time.Second)),
				Confidence: w.Confidence,
			}
			if w.Speaker > 0 {
				word.Speaker = fmt.Sprintf("speaker_%d", w.Speaker)
			}
			result.Words = append(result.Words, word)
		}
	}

	return result, nil
}

// TranscribeFile transcribes an audio file.
func (p *DeepgramSTTProvider) TranscribeFile(ctx context.Context, filepath string, opts *STTRequest) (*STTResponse, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if opts == nil {
		opts = &STTRequest{}
	}
	opts.Audio = file

	return p.Transcribe(ctx, opts)
}
