package speech

import (
	"fmt"
	"time"
)

// OpenAITTSConfig configures the OpenAI TTS provider.
type OpenAITTSConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // tts-1, tts-1-hd
	Voice   string        `json:"voice,omitempty" yaml:"voice,omitempty"` // alloy, echo, fable, onyx, nova, shimmer
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OpenAISTTConfig configures the OpenAI Whisper STT provider.
type OpenAISTTConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // whisper-1
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DeepgramConfig configures the Deepgram STT and TTS providers.
type DeepgramConfig struct {
	APIKey   string        `json:"api_key" yaml:"api_key"`
	BaseURL  string        `json:"base_url" yaml:"base_url"`
	STTModel string        `json:"stt_model,omitempty" yaml:"stt_model,omitempty"` // nova-2
	TTSModel string        `json:"tts_model,omitempty" yaml:"tts_model,omitempty"` // aura-asteria-en
	Language string        `json:"language,omitempty" yaml:"language,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// CartesiaConfig configures the Cartesia TTS provider.
type CartesiaConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"` // sonic-english
	VoiceID    string        `json:"voice_id,omitempty" yaml:"voice_id,omitempty"`
	SampleRate int           `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultOpenAITTSConfig returns the default OpenAI TTS configuration.
func DefaultOpenAITTSConfig() OpenAITTSConfig {
	return OpenAITTSConfig{
		BaseURL: "https://api.openai.com",
		Model:   "tts-1-hd",
		Voice:   "alloy",
		Timeout: 60 * time.Second,
	}
}

// DefaultOpenAISTTConfig returns the default OpenAI STT configuration.
func DefaultOpenAISTTConfig() OpenAISTTConfig {
	return OpenAISTTConfig{
		BaseURL: "https://api.openai.com",
		Model:   "whisper-1",
		Timeout: 120 * time.Second,
	}
}

// DefaultDeepgramConfig returns the default Deepgram configuration.
func DefaultDeepgramConfig() DeepgramConfig {
	return DeepgramConfig{
		BaseURL:  "https://api.deepgram.com",
		STTModel: "nova-2",
		TTSModel: "aura-asteria-en",
		Language: "en",
		Timeout:  120 * time.Second,
	}
}

// NewSTTProvider selects a batch STT provider by name: deepgram or openai.
func NewSTTProvider(name string, deepgram DeepgramConfig, openai OpenAISTTConfig) (STTProvider, error) {
	switch name {
	case "deepgram":
		return NewDeepgramSTTProvider(deepgram), nil
	case "openai":
		return NewOpenAISTTProvider(openai), nil
	default:
		return nil, fmt.Errorf("unknown stt provider: %s", name)
	}
}

// DefaultCartesiaConfig returns the default Cartesia configuration.
func DefaultCartesiaConfig() CartesiaConfig {
	return CartesiaConfig{
		BaseURL:    "https://api.cartesia.ai",
		Model:      "sonic-english",
		SampleRate: 24000,
		Timeout:    60 * time.Second,
	}
}
