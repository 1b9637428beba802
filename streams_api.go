package overshoot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/Overshoot-ai/overshoot-go/internal/metrics"
)

// StreamsAPI is the namespace for stream operations on Client, accessed via
// Client.Streams.
type StreamsAPI struct {
	http       transport
	logger     *slog.Logger
	metrics    *metrics.Metrics
	iceServers []webrtc.ICEServer
}

// CreateStreamOptions configures Streams.Create. Source, Prompt and OnResult
// are required.
type CreateStreamOptions struct {
	// Source is the video source: CameraSource, FileSource, LiveKitSource
	// or WebRTCSource.
	Source Source
	// Prompt is the analysis task to run on each video segment.
	Prompt string
	// OnResult is invoked for each inference result, on the stream's own
	// delivery goroutine. It must not call Stream.Close directly, which
	// would wait for the goroutine it runs on; close from a new goroutine
	// instead.
	OnResult func(StreamInferenceResult)
	// OnError, if set, receives background failures (keepalive failure,
	// WebSocket errors). Without it such failures are only logged. The same
	// Close restriction as OnResult applies.
	OnError func(error)

	// Mode is "clip" or "frame". Detected from the parameters when unset.
	Mode StreamMode
	// Backend selects the model backend. Defaults to BackendOvershoot.
	Backend ModelBackend
	// Model is the model name for inference. Defaults to DefaultModel.
	Model string
	// OutputSchema is an optional JSON schema for structured output.
	OutputSchema map[string]any
	// MaxOutputTokens caps the model output length when positive.
	MaxOutputTokens int

	// Clip mode: target frame sampling rate (1-30). Preferred over the
	// legacy FPS and SamplingRatio pair. Zero selects the default of 10.
	TargetFPS int
	// Clip mode: duration of each clip in seconds. Zero selects the default
	// of 1.0; there is no way to request a zero-length clip.
	ClipLengthSeconds float64
	// Clip mode: delay between clips in seconds. Zero selects the default
	// of 1.0; there is no way to request back-to-back clips.
	DelaySeconds float64

	// Deprecated: use TargetFPS. Clip mode: fraction of frames to sample.
	SamplingRatio float64
	// Deprecated: use TargetFPS. Clip mode: frames per second.
	FPS int

	// Frame mode: seconds between frame captures. Zero selects the default
	// of 2.0.
	IntervalSeconds float64
}

// Create creates and starts a new analysis stream.
//
// It resolves the source (creating a WebRTC peer connection if needed),
// calls the API, starts the background keepalive and result-delivery
// goroutines, and returns a running Stream.
func (api *StreamsAPI) Create(ctx context.Context, opts CreateStreamOptions) (*Stream, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if opts.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if opts.OnResult == nil {
		return nil, fmt.Errorf("OnResult is required")
	}

	resolved, err := resolveSource(opts.Source, api.iceServers, api.logger)
	if err != nil {
		return nil, err
	}

	processing, mode := buildProcessing(opts)

	backend := opts.Backend
	if backend == "" {
		backend = DefaultBackend
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	inference := InferenceConfig{
		Prompt:          opts.Prompt,
		Backend:         backend,
		Model:           model,
		OutputSchema:    opts.OutputSchema,
		MaxOutputTokens: opts.MaxOutputTokens,
	}

	body, err := createStreamBody(resolved.wireSource, processing, inference, mode)
	if err != nil {
		resolved.close()
		return nil, err
	}

	data, err := api.http.request(ctx, "POST", "/streams", body)
	if err != nil {
		resolved.close()
		return nil, err
	}

	var resp StreamCreateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		resolved.close()
		return nil, fmt.Errorf("failed to parse create response: %w", err)
	}

	api.logger.Info("stream created", slog.String("stream_id", resp.StreamID))

	if resp.WebRTC != nil {
		if err := resolved.applyAnswer(resp.WebRTC); err != nil {
			resolved.close()
			return nil, err
		}
	}

	ttl := 0
	if resp.Lease != nil {
		ttl = resp.Lease.TTLSeconds
	}

	stream := newStream(resp.StreamID, api.http, resolved, ttl,
		opts.OnResult, opts.OnError, api.logger, api.metrics)
	stream.start()

	return stream, nil
}

// buildProcessing derives the processing config and effective mode from the
// flat create options. Legacy FPS/SamplingRatio are only sent when the
// caller set them explicitly.
func buildProcessing(opts CreateStreamOptions) (ProcessingConfig, StreamMode) {
	if opts.Mode == ModeFrame || (opts.Mode == "" && opts.IntervalSeconds > 0) {
		interval := opts.IntervalSeconds
		if interval <= 0 {
			interval = defaultIntervalSeconds
		}
		return FrameProcessingConfig{IntervalSeconds: interval}, ModeFrame
	}

	clipLength := opts.ClipLengthSeconds
	if clipLength <= 0 {
		clipLength = defaultClipLengthSeconds
	}
	delay := opts.DelaySeconds
	if delay <= 0 {
		delay = defaultDelaySeconds
	}

	if opts.SamplingRatio > 0 || opts.FPS > 0 {
		ratio := opts.SamplingRatio
		if ratio <= 0 {
			ratio = defaultSamplingRatio
		}
		fps := opts.FPS
		if fps <= 0 {
			fps = defaultFPS
		}
		return ClipProcessingConfig{
			SamplingRatio:     ratio,
			FPS:               fps,
			ClipLengthSeconds: clipLength,
			DelaySeconds:      delay,
		}, ModeClip
	}

	targetFPS := opts.TargetFPS
	if targetFPS <= 0 {
		targetFPS = defaultTargetFPS
	}
	return ClipProcessingConfig{
		TargetFPS:         targetFPS,
		ClipLengthSeconds: clipLength,
		DelaySeconds:      delay,
	}, ModeClip
}
