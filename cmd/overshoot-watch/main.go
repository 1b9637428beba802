package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	overshoot "github.com/Overshoot-ai/overshoot-go"
	"github.com/Overshoot-ai/overshoot-go/internal/config"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "overshoot-watch"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Starting",
		slog.String("service", serviceName),
		slog.String("version", overshoot.Version),
		slog.String("config_path", *configPath),
		slog.String("source_type", cfg.Stream.Source.Type),
		slog.String("mode", cfg.Stream.Mode),
	)

	opts := []overshoot.Option{
		overshoot.WithLogger(logger),
		overshoot.WithTimeout(cfg.API.GetTimeoutDuration()),
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, overshoot.WithBaseURL(cfg.API.BaseURL))
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		opts = append(opts, overshoot.WithRegisterer(registry))
	}

	client, err := overshoot.New(cfg.API.APIKey, opts...)
	if err != nil {
		logger.Error("Failed to create client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Close()

	if registry != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("Metrics endpoint listening", slog.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				logger.Error("Metrics endpoint failed", slog.String("error", err.Error()))
			}
		}()
	}

	source, err := buildSource(cfg.Stream.Source)
	if err != nil {
		logger.Error("Invalid source", slog.String("error", err.Error()))
		os.Exit(1)
	}

	streamErrs := make(chan error, 1)

	stream, err := client.Streams.Create(context.Background(), overshoot.CreateStreamOptions{
		Source: source,
		Prompt: cfg.Stream.Prompt,
		OnResult: func(r overshoot.StreamInferenceResult) {
			if !r.OK {
				logger.Warn("Inference failed",
					slog.String("result_id", r.ID),
					slog.String("error", r.Error),
				)
				return
			}
			logger.Info("Result",
				slog.String("result_id", r.ID),
				slog.String("model", r.ModelName),
				slog.Float64("latency_ms", r.TotalLatencyMS),
			)
			fmt.Println(r.Result)
		},
		OnError: func(err error) {
			select {
			case streamErrs <- err:
			default:
			}
		},
		Mode:              overshoot.StreamMode(cfg.Stream.Mode),
		Backend:           overshoot.ModelBackend(cfg.Stream.Backend),
		Model:             cfg.Stream.Model,
		TargetFPS:         cfg.Stream.TargetFPS,
		ClipLengthSeconds: cfg.Stream.ClipLengthSeconds,
		DelaySeconds:      cfg.Stream.DelaySeconds,
		IntervalSeconds:   cfg.Stream.IntervalSeconds,
	})
	if err != nil {
		logger.Error("Failed to create stream", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Stream running, waiting for results...",
		slog.String("stream_id", stream.ID()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-streamErrs:
		logger.Error("Stream failed", slog.String("error", err.Error()))
	}

	if err := stream.Close(); err != nil {
		logger.Error("Error closing stream", slog.String("error", err.Error()))
	}

	logger.Info("Stopped")
}

// buildSource converts the source section into an SDK source value.
func buildSource(cfg config.SourceConfig) (overshoot.Source, error) {
	switch cfg.Type {
	case "camera":
		return overshoot.CameraSource{Device: cfg.Device}, nil
	case "file":
		return overshoot.FileSource{Path: cfg.Path, Loop: cfg.Loop}, nil
	case "livekit":
		return overshoot.LiveKitSource{URL: cfg.URL, Token: cfg.Token}, nil
	case "webrtc":
		return overshoot.WebRTCSource{SDP: cfg.SDP}, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

// initLogger creates the structured logger from configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
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
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
