package overshoot

import (
	"encoding/json"
	"fmt"
)

// StreamMode selects how video is sampled for inference.
type StreamMode string

const (
	// ModeClip analyzes short clips of consecutive frames (temporal analysis).
	ModeClip StreamMode = "clip"
	// ModeFrame analyzes periodic single-frame snapshots.
	ModeFrame StreamMode = "frame"
)

// ModelBackend identifies the inference backend serving a stream.
type ModelBackend string

const (
	BackendOvershoot ModelBackend = "overshoot"
	BackendGemini    ModelBackend = "gemini"
)

// FinishReason values reported with an inference result.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)

// ModelStatus describes the availability of a model.
type ModelStatus string

const (
	ModelStatusUnavailable ModelStatus = "unavailable"
	ModelStatusReady       ModelStatus = "ready"
	ModelStatusDegraded    ModelStatus = "degraded"
	ModelStatusSaturated   ModelStatus = "saturated"
)

// StreamStopReason values the server reports when a stream ends.
const (
	StopReasonClientRequested     = "client_requested"
	StopReasonWebRTCDisconnected  = "webrtc_disconnected"
	StopReasonLiveKitDisconnected = "livekit_disconnected"
	StopReasonLeaseExpired        = "lease_expired"
	StopReasonInsufficientCredits = "insufficient_credits"
)

// Source is a video source descriptor accepted by Streams.Create and
// APIClient.CreateStream. The set of implementations is closed:
// LiveKitSource, WebRTCSource, FileSource and CameraSource.
type Source interface {
	isSource()
}

// LiveKitSource uses a LiveKit room as the video source. No local media
// resources are created.
type LiveKitSource struct {
	URL   string
	Token string
}

// WebRTCSource is a raw SDP offer. The caller manages their own peer
// connection.
type WebRTCSource struct {
	SDP string
}

// FileSource streams a local video file over a locally-created WebRTC peer
// connection. Requires ffmpeg on PATH.
type FileSource struct {
	Path string
	Loop bool
}

// CameraSource captures from a local camera device over a locally-created
// WebRTC peer connection. Requires ffmpeg on PATH. An empty Device selects
// the platform default.
type CameraSource struct {
	Device string
}

func (LiveKitSource) isSource() {}
func (WebRTCSource) isSource()  {}
func (FileSource) isSource()    {}
func (CameraSource) isSource()  {}

// ProcessingConfig configures video sampling. Either ClipProcessingConfig or
// FrameProcessingConfig.
type ProcessingConfig interface {
	isProcessingConfig()
}

// ClipProcessingConfig holds processing parameters for clip mode.
//
// TargetFPS is the preferred knob; SamplingRatio and FPS form the legacy
// parameter pair and are only sent when explicitly set.
type ClipProcessingConfig struct {
	TargetFPS         int     `json:"target_fps,omitempty"`
	SamplingRatio     float64 `json:"sampling_ratio,omitempty"`
	FPS               int     `json:"fps,omitempty"`
	ClipLengthSeconds float64 `json:"clip_length_seconds,omitempty"`
	DelaySeconds      float64 `json:"delay_seconds,omitempty"`
}

// FrameProcessingConfig holds processing parameters for frame mode.
type FrameProcessingConfig struct {
	IntervalSeconds float64 `json:"interval_seconds,omitempty"`
}

func (ClipProcessingConfig) isProcessingConfig()  {}
func (FrameProcessingConfig) isProcessingConfig() {}

// InferenceConfig configures model inference for a stream.
type InferenceConfig struct {
	Prompt          string         `json:"prompt"`
	Backend         ModelBackend   `json:"backend,omitempty"`
	Model           string         `json:"model,omitempty"`
	OutputSchema    map[string]any `json:"output_schema_json,omitempty"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
}

// WebRTCAnswer is the SDP answer returned from the server.
type WebRTCAnswer struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// TurnServer describes a TURN/TURNS server offered by the API for the local
// peer connection.
type TurnServer struct {
	URLs       string `json:"urls"`
	Username   string `json:"username"`
	Credential string `json:"credential"`
}

// Lease is the stream lease grant.
type Lease struct {
	TTLSeconds int `json:"ttl_seconds"`
}

// StreamCreateResponse is the response from POST /streams.
type StreamCreateResponse struct {
	StreamID    string        `json:"stream_id"`
	WebRTC      *WebRTCAnswer `json:"webrtc,omitempty"`
	Lease       *Lease        `json:"lease,omitempty"`
	TurnServers []TurnServer  `json:"turn_servers,omitempty"`
}

// KeepaliveResponse is the response from POST /streams/{id}/keepalive.
type KeepaliveResponse struct {
	Status                string  `json:"status"`
	StreamID              string  `json:"stream_id"`
	TTLSeconds            int     `json:"ttl_seconds"`
	CreditsRemainingCents float64 `json:"credits_remaining_cents,omitempty"`
	CostCents             float64 `json:"cost_cents,omitempty"`
	SecondsCharged        float64 `json:"seconds_charged,omitempty"`
}

// StreamConfigResponse is the response from PATCH /streams/{id}/config/prompt.
type StreamConfigResponse struct {
	ID           string         `json:"id"`
	StreamID     string         `json:"stream_id"`
	Prompt       string         `json:"prompt"`
	Backend      ModelBackend   `json:"backend"`
	Model        string         `json:"model"`
	OutputSchema map[string]any `json:"output_schema_json,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
}

// StatusResponse is a generic status acknowledgment.
type StatusResponse struct {
	Status string `json:"status"`
}

// StreamInferenceResult is a single inference outcome pushed over the
// WebSocket. Result is the raw model output; when the stream was created
// with an output schema it is a JSON document, see ResultJSON.
type StreamInferenceResult struct {
	ID                 string       `json:"id"`
	StreamID           string       `json:"stream_id"`
	Mode               StreamMode   `json:"mode"`
	ModelBackend       ModelBackend `json:"model_backend"`
	ModelName          string       `json:"model_name"`
	Prompt             string       `json:"prompt"`
	Result             string       `json:"result"`
	InferenceLatencyMS float64      `json:"inference_latency_ms"`
	TotalLatencyMS     float64      `json:"total_latency_ms"`
	OK                 bool         `json:"ok"`
	Error              string       `json:"error,omitempty"`
	FinishReason       string       `json:"finish_reason,omitempty"`
}

// ResultJSON decodes the Result payload into v. Use this when the stream was
// created with an output schema. Returns an error if Result is not valid
// JSON.
func (r StreamInferenceResult) ResultJSON(v any) error {
	if err := json.Unmarshal([]byte(r.Result), v); err != nil {
		return fmt.Errorf("result is not valid JSON: %w", err)
	}
	return nil
}

// ModelInfo describes an available model.
type ModelInfo struct {
	Model  string      `json:"model"`
	Ready  bool        `json:"ready"`
	Status ModelStatus `json:"status"`
}

// FeedbackCreateRequest is the body for submitting feedback on a stream.
type FeedbackCreateRequest struct {
	Rating   int    `json:"rating"`
	Category string `json:"category"`
	Feedback string `json:"feedback"`
}

// FeedbackResponse is a stored feedback entry.
type FeedbackResponse struct {
	ID        string `json:"id"`
	StreamID  string `json:"stream_id"`
	Rating    int    `json:"rating"`
	Category  string `json:"category"`
	Feedback  string `json:"feedback"`
	CreatedAt string `json:"created_at,omitempty"`
}

// decodeInferenceResult parses a WebSocket text frame into a
// StreamInferenceResult, rejecting frames that are not JSON objects or that
// omit a required field.
func decodeInferenceResult(raw []byte) (StreamInferenceResult, error) {
	var probe struct {
		ID                 *string       `json:"id"`
		StreamID           *string       `json:"stream_id"`
		Mode               *StreamMode   `json:"mode"`
		ModelBackend       *ModelBackend `json:"model_backend"`
		ModelName          *string       `json:"model_name"`
		Prompt             *string       `json:"prompt"`
		Result             *string       `json:"result"`
		InferenceLatencyMS *float64      `json:"inference_latency_ms"`
		TotalLatencyMS     *float64      `json:"total_latency_ms"`
		OK                 *bool         `json:"ok"`
		Error              string        `json:"error"`
		FinishReason       string        `json:"finish_reason"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return StreamInferenceResult{}, fmt.Errorf("malformed result frame: %w", err)
	}

	required := map[string]bool{
		"id":                   probe.ID != nil,
		"stream_id":            probe.StreamID != nil,
		"mode":                 probe.Mode != nil,
		"model_backend":        probe.ModelBackend != nil,
		"model_name":           probe.ModelName != nil,
		"prompt":               probe.Prompt != nil,
		"result":               probe.Result != nil,
		"inference_latency_ms": probe.InferenceLatencyMS != nil,
		"total_latency_ms":     probe.TotalLatencyMS != nil,
		"ok":                   probe.OK != nil,
	}
	for field, present := range required {
		if !present {
			return StreamInferenceResult{}, fmt.Errorf("result frame missing required field %q", field)
		}
	}

	return StreamInferenceResult{
		ID:                 *probe.ID,
		StreamID:           *probe.StreamID,
		Mode:               *probe.Mode,
		ModelBackend:       *probe.ModelBackend,
		ModelName:          *probe.ModelName,
		Prompt:             *probe.Prompt,
		Result:             *probe.Result,
		InferenceLatencyMS: *probe.InferenceLatencyMS,
		TotalLatencyMS:     *probe.TotalLatencyMS,
		OK:                 *probe.OK,
		Error:              probe.Error,
		FinishReason:       probe.FinishReason,
	}, nil
}
