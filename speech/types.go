// Package speech provides unified TTS and STT provider interfaces for the
// voice pipeline.
package speech

import (
	"context"
	"io"
	"time"
)

// TTSRequest represents a text-to-speech request.
type TTSRequest struct {
	Text           string            `json:"text"`
	Model          string            `json:"model,omitempty"`
	Voice          string            `json:"voice,omitempty"`
	Speed          float64           `json:"speed,omitempty"`           // 0.25-4.0
	ResponseFormat string            `json:"response_format,omitempty"` // mp3, wav, pcm, ...
	Language       string            `json:"language,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// TTSResponse represents the response to a TTS request. Audio is a stream
// the caller must close.
type TTSResponse struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Audio     io.ReadCloser `json:"-"`
	Format    string        `json:"format"`
	Duration  time.Duration `json:"duration,omitempty"`
	CharCount int           `json:"char_count,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// TTSProvider defines the text-to-speech provider interface.
type TTSProvider interface {
	// Synthesize converts text to speech.
	Synthesize(ctx context.Context, req *TTSRequest) (*TTSResponse, error)

	// SynthesizeToFile converts text to speech and saves it to a file.
	SynthesizeToFile(ctx context.Context, req *TTSRequest, filepath string) error

	// ListVoices returns the available voices.
	ListVoices(ctx context.Context) ([]Voice, error)

	// Name returns the provider name.
	Name() string
}

// Voice represents an available TTS voice.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language,omitempty"`
	Gender      string `json:"gender,omitempty"` // male, female, neutral
	Description string `json:"description,omitempty"`
}

// STTRequest represents a speech-to-text request.
type STTRequest struct {
	Audio          io.Reader         `json:"-"`
	AudioURL       string            `json:"audio_url,omitempty"`
	Model          string            `json:"model,omitempty"`
	Language       string            `json:"language,omitempty"`        // ISO-639-1 code
	Prompt         string            `json:"prompt,omitempty"`          // context hint
	ResponseFormat string            `json:"response_format,omitempty"` // json, text, verbose_json
	Diarization    bool              `json:"diarization,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// STTResponse represents the response to an STT request.
type STTResponse struct {
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	Text       string        `json:"text"`
	Language   string        `json:"language,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Words      []Word        `json:"words,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Word is a transcribed word with timing.
type Word struct {
	Word       string        `json:"word"`
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Confidence float64       `json:"confidence,omitempty"`
	Speaker    string        `json:"speaker,omitempty"`
}

// STTProvider defines the speech-to-text provider interface.
type STTProvider interface {
	// Transcribe converts speech to text.
	Transcribe(ctx context.Context, req *STTRequest) (*STTResponse, error)

	// TranscribeFile transcribes an audio file.
	TranscribeFile(ctx context.Context, filepath string, opts *STTRequest) (*STTResponse, error)

	// Name returns the provider name.
	Name() string

	// SupportedFormats returns the audio formats the provider accepts.
	SupportedFormats() []string
}
