// =============================================================================
// voicebench entry point
// =============================================================================
// Compares structured prompting against vanilla string prompting on the same
// voice pipeline (Deepgram STT -> OpenAI -> Cartesia TTS, Daily transport).
//
// Usage:
//
//	voicebench run <structured|vanilla>     # live voice session (PCM from stdin)
//	voicebench evaluate --agent both        # run the scenario suite
//	voicebench transcribe <file>            # batch speech-to-text
//	voicebench token --room <url|name>      # mint a Daily meeting token
//	voicebench check                        # probe all upstream services
//	voicebench version
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/voicelab/voicebench/agent"
	"github.com/voicelab/voicebench/config"
	"github.com/voicelab/voicebench/diag"
	"github.com/voicelab/voicebench/eval"
	"github.com/voicelab/voicebench/internal/metrics"
	"github.com/voicelab/voicebench/internal/telemetry"
	"github.com/voicelab/voicebench/llm"
	"github.com/voicelab/voicebench/speech"
	"github.com/voicelab/voicebench/transport/daily"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runLive(os.Args[2:])
	case "evaluate":
		runEvaluate(os.Args[2:])
	case "transcribe":
		runTranscribe(os.Args[2:])
	case "token":
		runToken(os.Args[2:])
	case "check":
		runCheck(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// run command
// =============================================================================

func runLive(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	audioPath := fs.String("audio", "-", "Raw PCM audio source (16kHz mono s16le): file path or - for stdin")
	fs.Parse(args)

	kind := fs.Arg(0)
	if kind != "structured" && kind != "vanilla" {
		fmt.Fprintln(os.Stderr, "run requires an agent kind: structured or vanilla")
		os.Exit(1)
	}

	cfg, logger := mustSetup(*configPath)
	defer logger.Sync()

	if cfg.Speech.STTProvider != "deepgram" {
		logger.Fatal("live transcription is only available with the deepgram stt provider",
			zap.String("stt_provider", cfg.Speech.STTProvider))
	}

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := buildProvider(cfg)
	ag, err := buildAgent(kind, provider, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build agent", zap.Error(err))
	}
	tts, err := buildTTS(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build TTS provider", zap.Error(err))
	}
	transcriber := speech.NewLiveTranscriber(speech.DeepgramConfig{
		APIKey:   cfg.Speech.Deepgram.APIKey,
		BaseURL:  cfg.Speech.Deepgram.BaseURL,
		STTModel: cfg.Speech.Deepgram.STTModel,
		Language: cfg.Speech.Deepgram.Language,
	}, logger)

	audioSrc := os.Stdin
	if *audioPath != "-" {
		f, err := os.Open(*audioPath)
		if err != nil {
			logger.Fatal("failed to open audio source", zap.Error(err))
		}
		defer f.Close()
		audioSrc = f
	}

	handoff := agent.NewHandoffManager(cfg.Agent.Timeout, logger)
	handoff.Register(agent.NewStaticSupervisor("", ""))

	collector := metrics.NewCollector("voicebench", logger)
	pipeline := agent.NewPipeline(transcriber, ag, tts, collector, logger).WithHandoff(handoff)

	logger.Info("starting live session",
		zap.String("version", Version),
		zap.String("agent_kind", kind),
		zap.String("daily_room", cfg.Transport.RoomURL),
		zap.String("audio_source", *audioPath))

	go func() {
		for utt := range pipeline.Utterances() {
			fmt.Printf("[%s] %s\n", kind, utt.Text)
			if utt.Escalate {
				fmt.Println("  -> escalation requested")
			}
		}
	}()

	// Pump audio once the pipeline is past Connect.
	go func() {
		for pipeline.State() == agent.StateIdle {
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
		if err := speech.StreamPCM(ctx, audioSrc, speech.PCMStreamConfig{}, pipeline.SendAudio); err != nil && ctx.Err() == nil {
			logger.Warn("audio stream ended", zap.Error(err))
		}
	}()

	if err := pipeline.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("pipeline failed", zap.Error(err))
	}

	shutdownTelemetry(otelProviders, logger)
	logger.Info("session ended")
}

// =============================================================================
// evaluate command
// =============================================================================

func runEvaluate(args []string) {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	agentSel := fs.String("agent", "both", "Agent to evaluate: structured, vanilla, both")
	scenarioSel := fs.String("scenarios", "all", "Scenario subset: all, simple, medium, complex")
	fs.Parse(args)

	if *agentSel != "structured" && *agentSel != "vanilla" && *agentSel != "both" {
		fmt.Fprintf(os.Stderr, "Invalid --agent value: %s\n", *agentSel)
		os.Exit(1)
	}

	cfg, logger := mustSetup(*configPath)
	defer logger.Sync()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scenarios := eval.FilterByComplexity(eval.BuiltinScenarios(), *scenarioSel)
	if len(scenarios) == 0 {
		fmt.Fprintf(os.Stderr, "No scenarios match selector %q\n", *scenarioSel)
		os.Exit(1)
	}

	provider := buildProvider(cfg)
	factory := func(kind string) (agent.Agent, error) {
		return buildAgent(kind, provider, cfg, logger)
	}

	collector := metrics.NewCollector("voicebench", logger)
	evaluator := eval.NewEvaluator(cfg.Eval, factory, collector, logger)
	writer, err := eval.NewWriter(cfg.Eval.ResultsDir, logger)
	if err != nil {
		logger.Fatal("failed to prepare results dir", zap.Error(err))
	}

	kinds := []string{"structured", "vanilla"}
	if *agentSel != "both" {
		kinds = []string{*agentSel}
	}

	var all []eval.Result
	for _, kind := range kinds {
		fmt.Printf("Evaluating %s agent on %d scenarios...\n", kind, len(scenarios))
		results, err := evaluator.Run(ctx, kind, scenarios)
		if err != nil {
			logger.Fatal("evaluation failed", zap.String("agent_kind", kind), zap.Error(err))
		}
		all = append(all, results...)

		path, err := writer.SaveResults(kind, results)
		if err != nil {
			logger.Fatal("failed to save results", zap.Error(err))
		}
		m := eval.Aggregate(results, kind)
		fmt.Printf("  %s: overall %.1f%%, errors %.1f%%, results at %s\n",
			kind, m.AvgAccuracy[eval.ScoreOverall]*100, m.ErrorRate*100, path)
	}

	if *agentSel == "both" {
		structuredMetrics := eval.Aggregate(all, "structured")
		vanillaMetrics := eval.Aggregate(all, "vanilla")
		path, err := writer.SaveComparisonReport(structuredMetrics, vanillaMetrics)
		if err != nil {
			logger.Fatal("failed to save comparison report", zap.Error(err))
		}
		fmt.Printf("Comparison report at %s\n", path)
	}

	shutdownTelemetry(otelProviders, logger)
}

// =============================================================================
// transcribe command
// =============================================================================

func runTranscribe(args []string) {
	fs := flag.NewFlagSet("transcribe", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	path := fs.Arg(0)
	if path == "" {
		fmt.Fprintln(os.Stderr, "transcribe requires an audio file argument")
		os.Exit(1)
	}

	cfg, logger := mustSetup(*configPath)
	defer logger.Sync()

	stt, err := buildSTT(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build STT provider: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	resp, err := stt.TranscribeFile(ctx, path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transcription failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(resp.Text)
}

// =============================================================================
// token command
// =============================================================================

func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	room := fs.String("room", "", "Daily room URL or name (defaults to configured room)")
	owner := fs.Bool("owner", false, "Mint an owner token")
	fs.Parse(args)

	cfg, logger := mustSetup(*configPath)
	defer logger.Sync()

	roomRef := *room
	if roomRef == "" {
		roomRef = cfg.Transport.RoomURL
	}
	if roomRef == "" {
		fmt.Fprintln(os.Stderr, "No room given: pass --room or set the room URL in config")
		os.Exit(1)
	}
	roomName := roomRef
	if name, err := daily.RoomNameFromURL(roomRef); err == nil {
		roomName = name
	}

	client, err := daily.NewClient(daily.Config{APIKey: cfg.Transport.DailyAPIKey}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create Daily client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	props := daily.TokenProperties{RoomName: roomName, IsOwner: *owner}
	if cfg.Transport.TokenTTL > 0 {
		props.Exp = time.Now().Add(cfg.Transport.TokenTTL).Unix()
	}

	token, err := client.CreateMeetingToken(ctx, props)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create token: %v\n", err)
		os.Exit(1)
	}
	// Printed as export lines so the output can be eval'd into a shell.
	fmt.Printf("export DAILY_ROOM_URL=%s\n", roomRef)
	fmt.Printf("export DAILY_TOKEN=%s\n", token)
}

// =============================================================================
// check command
// =============================================================================

func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, logger := mustSetup(*configPath)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	checker := diag.NewChecker(logger)
	checker.Add(diag.LLMCheck(buildProvider(cfg)))
	checker.Add(diag.DeepgramCheck(cfg.Speech.Deepgram.APIKey, cfg.Speech.Deepgram.BaseURL))

	cartesia := speech.NewCartesiaProvider(speech.CartesiaConfig{
		APIKey:  cfg.Speech.Cartesia.APIKey,
		Model:   cfg.Speech.Cartesia.Model,
		VoiceID: cfg.Speech.Cartesia.VoiceID,
	})
	checker.Add(diag.CartesiaCheck(cartesia, cfg.Speech.Cartesia.APIKey != ""))

	var dailyClient *daily.Client
	if cfg.Transport.DailyAPIKey != "" {
		dailyClient, _ = daily.NewClient(daily.Config{APIKey: cfg.Transport.DailyAPIKey}, logger)
	}
	checker.Add(diag.DailyCheck(dailyClient, cfg.Transport.RoomURL))

	results := checker.Run(ctx)
	for _, r := range results {
		switch r.Status {
		case diag.StatusOK:
			fmt.Printf("  ok      %-10s %s\n", r.Service, r.Latency.Round(time.Millisecond))
		case diag.StatusSkipped:
			fmt.Printf("  skip    %-10s %s\n", r.Service, r.Detail)
		default:
			fmt.Printf("  FAILED  %-10s %s\n", r.Service, r.Detail)
		}
	}
	if !diag.AllOK(results) {
		os.Exit(1)
	}
	fmt.Println("All configured services are reachable.")
}

// =============================================================================
// wiring helpers
// =============================================================================

func mustSetup(configPath string) (*config.Config, *zap.Logger) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg, initLogger(cfg.Log)
}

func buildProvider(cfg *config.Config) llm.Provider {
	return llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		Organization: cfg.LLM.Organization,
		Timeout:      cfg.LLM.Timeout,
	}, nil)
}

func buildAgent(kind string, provider llm.Provider, cfg *config.Config, logger *zap.Logger) (agent.Agent, error) {
	switch kind {
	case "structured":
		return agent.NewStructuredAgent(provider, cfg.Agent, logger)
	case "vanilla":
		return agent.NewVanillaAgent(provider, cfg.Agent, logger), nil
	default:
		return nil, fmt.Errorf("unknown agent kind: %s", kind)
	}
}

func buildSTT(cfg *config.Config) (speech.STTProvider, error) {
	return speech.NewSTTProvider(cfg.Speech.STTProvider,
		speech.DeepgramConfig{
			APIKey:   cfg.Speech.Deepgram.APIKey,
			BaseURL:  cfg.Speech.Deepgram.BaseURL,
			STTModel: cfg.Speech.Deepgram.STTModel,
			Language: cfg.Speech.Deepgram.Language,
		},
		speech.OpenAISTTConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
		})
}

func buildTTS(cfg *config.Config, logger *zap.Logger) (speech.TTSProvider, error) {
	switch cfg.Speech.TTSProvider {
	case "cartesia":
		return speech.NewCartesiaProvider(speech.CartesiaConfig{
			APIKey:  cfg.Speech.Cartesia.APIKey,
			Model:   cfg.Speech.Cartesia.Model,
			VoiceID: cfg.Speech.Cartesia.VoiceID,
		}), nil
	case "deepgram":
		return speech.NewDeepgramTTSProvider(speech.DeepgramConfig{
			APIKey:   cfg.Speech.Deepgram.APIKey,
			TTSModel: cfg.Speech.Deepgram.TTSModel,
		}), nil
	case "openai":
		return speech.NewOpenAITTSProvider(speech.OpenAITTSConfig{
			APIKey: cfg.LLM.APIKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown tts provider: %s", cfg.Speech.TTSProvider)
	}
}

func shutdownTelemetry(providers *telemetry.Providers, logger *zap.Logger) {
	if providers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
}

// =============================================================================
// version and help
// =============================================================================

func printVersion() {
	fmt.Printf("voicebench %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`voicebench - structured vs. vanilla prompting on a voice pipeline

Usage:
  voicebench <command> [options]

Commands:
  run         Run a live voice session with one agent
  evaluate    Run the scenario suite and write results
  transcribe  Transcribe an audio file with the configured STT provider
  token       Mint a Daily meeting token
  check       Probe every configured upstream service
  version     Show version information
  help        Show this help message

Options for 'run':
  voicebench run <structured|vanilla> [--config <path>] [--audio <file|->]
  Audio is raw PCM, 16kHz mono s16le. Pipe a microphone, e.g.:
    sox -d -t raw -r 16000 -e signed -b 16 -c 1 - | voicebench run structured

Options for 'evaluate':
  --agent <structured|vanilla|both>   Which agent(s) to evaluate (default both)
  --scenarios <all|simple|medium|complex>
  --config <path>

Options for 'token':
  --room <url|name>   Room to mint the token for
  --owner             Mint an owner token

Examples:
  voicebench run structured --audio call.raw
  voicebench evaluate --agent both --scenarios all
  voicebench transcribe call.wav
  voicebench token --room https://example.daily.co/support-room
  voicebench check`)
}

// =============================================================================
// logging
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
