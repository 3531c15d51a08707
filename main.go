package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-actor/audio_source"
	"voice-actor/audio_source/microphone"
	"voice-actor/capture"
	"voice-actor/clients/ai_bot"
	"voice-actor/command"
	"voice-actor/config"
	"voice-actor/metrics"
	"voice-actor/monitor"
	"voice-actor/speech_to_text"
	"voice-actor/speech_to_text/whisper_engine"
	"voice-actor/wakeword"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFlag := flag.String("config", "", "path to a yaml config file")
	modelFlag := flag.String("m", "", "model file for whisper, also used for commands unless -slow-model is set")
	slowModelFlag := flag.String("slow-model", "", "model file for whisper, used for the final command transcription")
	inputFlag := flag.String("input", "", "wav file to replay instead of the microphone")

	flag.Parse()

	fileSys := afero.NewOsFs()

	cfg := config.Default()
	if *configFlag != "" {
		var err error

		cfg, err = config.Load(fileSys, *configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	slowFromFast := cfg.Models.ApplyFlags(*modelFlag, *slowModelFlag)

	if *inputFlag != "" {
		cfg.Audio.Input = *inputFlag
	}

	logger, closeLog := initLogger(cfg.Logging)
	slog.SetDefault(logger)

	if slowFromFast {
		logger.Info("no slow model given, using the -m model for commands too", slog.String("model", cfg.Models.Slow))
	}

	if err := run(cfg, fileSys, logger); err != nil {
		logger.Error("exiting with error", slog.String("error", err.Error()))
		closeLog()
		os.Exit(1)
	}

	logger.Info("stopped")
	closeLog()
}

func run(cfg *config.Config, fileSys afero.Fs, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	fastEngine, slowEngine, closeModels, err := loadEngines(cfg.Models, logger)
	if err != nil {
		return err
	}
	defer closeModels()

	source, err := openSource(cfg.Audio, fileSys, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	capt, err := capture.New(&capture.Config{
		Source:        source,
		ChunkDuration: cfg.Audio.ChunkDuration,
		Window:        cfg.Audio.Window,
		Metrics:       appMetrics,
		Logger:        logger.With(slog.String("component", "capture")),
	})
	if err != nil {
		return fmt.Errorf("error with capture.New: %w", err)
	}

	handler, err := newHandler(cfg.Command, logger)
	if err != nil {
		return err
	}

	collector, err := monitor.NewCollector(&monitor.CollectorConfig{
		Source:           capt,
		FastEngine:       fastEngine,
		SlowEngine:       slowEngine,
		Handler:          handler,
		SilenceThreshold: cfg.Collector.SilenceThreshold,
		Timeout:          cfg.Collector.Timeout,
		Metrics:          appMetrics,
		Logger:           logger.With(slog.String("component", "collector")),
	})
	if err != nil {
		return fmt.Errorf("error with monitor.NewCollector: %w", err)
	}

	predicate := wakeword.NewPhrase(cfg.Wakeword.Phrases...)
	predicate.MaxNoSpeech = cfg.Wakeword.MaxNoSpeech

	mon, err := monitor.New(&monitor.Config{
		Source:          capt,
		Engine:          fastEngine,
		Predicate:       predicate,
		Collector:       collector,
		LivenessTimeout: cfg.Monitor.LivenessTimeout,
		Metrics:         appMetrics,
		Logger:          logger.With(slog.String("component", "monitor")),
	})
	if err != nil {
		return fmt.Errorf("error with monitor.New: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return capt.Run(ctx)
	})

	g.Go(func() error {
		return mon.Run(ctx)
	})

	if cfg.Metrics.Address != "" {
		serveMetrics(ctx, g, cfg.Metrics.Address, registry, logger)
	}

	logger.Info("starting to listen", slog.Any("phrases", cfg.Wakeword.Phrases))

	return g.Wait()
}

// loadEngines loads the fast and slow whisper models, sharing the model when
// both tiers point at the same file.
func loadEngines(cfg config.ModelsConfig, logger *slog.Logger) (fast, slow speech_to_text.Interface, closeModels func(), err error) {
	fastModel, err := whisper.New(cfg.Fast)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error loading model %s: %w", cfg.Fast, err)
	}

	slowModel := fastModel
	if cfg.Slow != cfg.Fast {
		slowModel, err = whisper.New(cfg.Slow)
		if err != nil {
			_ = fastModel.Close()

			return nil, nil, nil, fmt.Errorf("error loading model %s: %w", cfg.Slow, err)
		}
	}

	logger.Info("models loaded", slog.String("fast", cfg.Fast), slog.String("slow", cfg.Slow))

	closeModels = func() {
		_ = fastModel.Close()

		if slowModel != fastModel {
			_ = slowModel.Close()
		}
	}

	fast, err = whisper_engine.New(&whisper_engine.Config{Model: fastModel, Language: cfg.Language})
	if err != nil {
		closeModels()

		return nil, nil, nil, fmt.Errorf("error with whisper_engine.New: %w", err)
	}

	slow, err = whisper_engine.New(&whisper_engine.Config{Model: slowModel, Language: cfg.Language})
	if err != nil {
		closeModels()

		return nil, nil, nil, fmt.Errorf("error with whisper_engine.New: %w", err)
	}

	return fast, slow, closeModels, nil
}

func openSource(cfg config.AudioConfig, fileSys afero.Fs, logger *slog.Logger) (audio_source.Interface, error) {
	logger = logger.With(slog.String("component", "audio_source"))

	if cfg.Input != "" {
		source, err := audio_source.NewFile(&audio_source.FileConfig{
			FileSys:  fileSys,
			Path:     cfg.Input,
			Realtime: cfg.Realtime,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("error with audio_source.NewFile: %w", err)
		}

		return source, nil
	}

	source, err := microphone.New(&microphone.Config{
		FramesPerBuffer: audio_source.SamplesFor(cfg.ChunkDuration),
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("error with microphone.New: %w", err)
	}

	return source, nil
}

func newHandler(cfg config.CommandConfig, logger *slog.Logger) (monitor.CommandHandler, error) {
	logger = logger.With(slog.String("component", "command"))

	if cfg.BotHost == "" {
		return command.LogHandler{Logger: logger}, nil
	}

	client, err := ai_bot.NewClient(&ai_bot.Config{
		ApiHost: cfg.BotHost,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("error with ai_bot.NewClient: %w", err)
	}

	return command.BotHandler{Client: client, Logger: logger}, nil
}

func serveMetrics(ctx context.Context, g *errgroup.Group, address string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("serving metrics", slog.String("address", address))

		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})
}

// initLogger creates the structured logger from the logging config. The
// returned func closes the log file, if one was opened.
func initLogger(cfg config.LoggingConfig) (*slog.Logger, func()) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	closeLog := func() {}
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
			closeLog = func() { _ = file.Close() }
		}
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(output, opts)), closeLog
	}

	return slog.New(slog.NewTextHandler(output, opts)), closeLog
}
