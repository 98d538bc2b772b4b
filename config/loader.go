// =============================================================================
// voicebench configuration loader
// =============================================================================
// Unified configuration loading: defaults → YAML file → environment override.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("VOICEBENCH").
//	    Load()
//
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete voicebench configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Speech    SpeechConfig    `yaml:"speech" env:"SPEECH"`
	Transport TransportConfig `yaml:"transport" env:"TRANSPORT"`
	Agent     AgentConfig     `yaml:"agent" env:"AGENT"`
	Eval      EvalConfig      `yaml:"eval" env:"EVAL"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// LLMConfig configures the chat model both agents run on.
type LLMConfig struct {
	APIKey       string        `yaml:"api_key" env:"API_KEY"`
	BaseURL      string        `yaml:"base_url" env:"BASE_URL"`
	Model        string        `yaml:"model" env:"MODEL"`
	Organization string        `yaml:"organization" env:"ORGANIZATION"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// SpeechConfig selects and configures the STT/TTS providers.
type SpeechConfig struct {
	// STTProvider: deepgram, openai
	STTProvider string `yaml:"stt_provider" env:"STT_PROVIDER"`
	// TTSProvider: cartesia, deepgram, openai
	TTSProvider string         `yaml:"tts_provider" env:"TTS_PROVIDER"`
	Deepgram    DeepgramConfig `yaml:"deepgram" env:"DEEPGRAM"`
	Cartesia    CartesiaConfig `yaml:"cartesia" env:"CARTESIA"`
}

// DeepgramConfig configures Deepgram STT and TTS.
type DeepgramConfig struct {
	APIKey   string `yaml:"api_key" env:"API_KEY"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL"`
	STTModel string `yaml:"stt_model" env:"STT_MODEL"`
	TTSModel string `yaml:"tts_model" env:"TTS_MODEL"`
	Language string `yaml:"language" env:"LANGUAGE"`
}

// CartesiaConfig configures Cartesia TTS.
type CartesiaConfig struct {
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	VoiceID string `yaml:"voice_id" env:"VOICE_ID"`
	Model   string `yaml:"model" env:"MODEL"`
}

// TransportConfig configures the Daily WebRTC transport.
type TransportConfig struct {
	DailyAPIKey string        `yaml:"daily_api_key" env:"DAILY_API_KEY"`
	RoomURL     string        `yaml:"room_url" env:"ROOM_URL"`
	Token       string        `yaml:"token" env:"TOKEN"`
	TokenTTL    time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
}

// AgentConfig configures agent behavior shared by both prompting strategies.
type AgentConfig struct {
	Temperature  float64       `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens    int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	SystemPrompt string        `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	ReplyBudget  int           `yaml:"reply_budget" env:"REPLY_BUDGET"`
	MaxAttempts  int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// EvalConfig configures the evaluation harness.
type EvalConfig struct {
	Concurrency     int           `yaml:"concurrency" env:"CONCURRENCY"`
	MaxRetries      int           `yaml:"max_retries" env:"MAX_RETRIES"`
	ScenarioTimeout time.Duration `yaml:"scenario_timeout" env:"SCENARIO_TIMEOUT"`
	PassThreshold   float64       `yaml:"pass_threshold" env:"PASS_THRESHOLD"`
	ResultsDir      string        `yaml:"results_dir" env:"RESULTS_DIR"`
	// RatePerSecond throttles upstream calls; zero disables throttling.
	RatePerSecond float64 `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	StopOnFailure bool    `yaml:"stop_on_failure" env:"STOP_ON_FAILURE"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format       string `yaml:"format" env:"FORMAT"`
	EnableCaller bool   `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// TelemetryConfig configures OTel export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader loads configuration with a builder API.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the VOICEBENCH env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "VOICEBENCH",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads configuration. Priority: defaults → YAML file → env vars →
// legacy env aliases.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	applyLegacyEnv(cfg, l.envPrefix)

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile loads YAML over the current values. A missing file keeps
// defaults.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks struct fields recursively, composing env keys from
// the prefix and env tags.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// legacyEnvAliases maps the unprefixed variables the project historically
// used to their config fields. An alias applies only when its prefixed
// counterpart is unset.
var legacyEnvAliases = []struct {
	env      string
	prefixed string
	apply    func(cfg *Config, v string)
}{
	{"OPENAI_API_KEY", "LLM_API_KEY", func(c *Config, v string) { c.LLM.APIKey = v }},
	{"DEEPGRAM_API_KEY", "SPEECH_DEEPGRAM_API_KEY", func(c *Config, v string) { c.Speech.Deepgram.APIKey = v }},
	{"CARTESIA_API_KEY", "SPEECH_CARTESIA_API_KEY", func(c *Config, v string) { c.Speech.Cartesia.APIKey = v }},
	{"CARTESIA_VOICE_ID", "SPEECH_CARTESIA_VOICE_ID", func(c *Config, v string) { c.Speech.Cartesia.VoiceID = v }},
	{"DAILY_API_KEY", "TRANSPORT_DAILY_API_KEY", func(c *Config, v string) { c.Transport.DailyAPIKey = v }},
	{"DAILY_TOKEN", "TRANSPORT_TOKEN", func(c *Config, v string) { c.Transport.Token = v }},
	{"DAILY_ROOM_URL", "TRANSPORT_ROOM_URL", func(c *Config, v string) { c.Transport.RoomURL = v }},
}

func applyLegacyEnv(cfg *Config, prefix string) {
	for _, alias := range legacyEnvAliases {
		if os.Getenv(prefix+"_"+alias.prefixed) != "" {
			continue
		}
		if v := os.Getenv(alias.env); v != "" {
			alias.apply(cfg, v)
		}
	}
}

// MustLoad loads configuration and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks the configuration for values no run could work with.
func (c *Config) Validate() error {
	var errs []string

	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		errs = append(errs, "agent temperature must be between 0 and 2")
	}
	if c.Agent.MaxTokens <= 0 {
		errs = append(errs, "agent max_tokens must be positive")
	}
	if c.Agent.MaxAttempts <= 0 {
		errs = append(errs, "agent max_attempts must be positive")
	}
	if c.Eval.Concurrency <= 0 {
		errs = append(errs, "eval concurrency must be positive")
	}
	if c.Eval.PassThreshold < 0 || c.Eval.PassThreshold > 1 {
		errs = append(errs, "eval pass_threshold must be within [0,1]")
	}
	if c.Eval.ResultsDir == "" {
		errs = append(errs, "eval results_dir must not be empty")
	}
	switch c.Speech.STTProvider {
	case "deepgram", "openai":
	default:
		errs = append(errs, fmt.Sprintf("unknown stt_provider %q", c.Speech.STTProvider))
	}
	switch c.Speech.TTSProvider {
	case "cartesia", "deepgram", "openai":
	default:
		errs = append(errs, fmt.Sprintf("unknown tts_provider %q", c.Speech.TTSProvider))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
