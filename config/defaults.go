package config

import "time"

// DefaultConfig returns the baseline configuration every load starts from.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Speech: SpeechConfig{
			STTProvider: "deepgram",
			TTSProvider: "cartesia",
			Deepgram: DeepgramConfig{
				BaseURL:  "https://api.deepgram.com",
				STTModel: "nova-2",
				TTSModel: "aura-asteria-en",
				Language: "en",
			},
			Cartesia: CartesiaConfig{
				Model: "sonic-english",
				// "clara" is the project's historical default voice.
				VoiceID: "clara",
			},
		},
		Transport: TransportConfig{
			TokenTTL: time.Hour,
		},
		Agent: AgentConfig{
			Temperature: 0.7,
			MaxTokens:   300,
			ReplyBudget: 80,
			MaxAttempts: 3,
			Timeout:     30 * time.Second,
		},
		Eval: EvalConfig{
			Concurrency:     2,
			MaxRetries:      1,
			ScenarioTimeout: 60 * time.Second,
			PassThreshold:   0.7,
			ResultsDir:      "results",
			RatePerSecond:   2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "voicebench",
			SampleRate:   1.0,
		},
	}
}
