package overshoot

import (
	"context"
	"encoding/json"
	"fmt"
)

// APIClient is the low-level client for the Overshoot Media Gateway API. It
// maps 1:1 to endpoints and returns typed responses. No background tasks, no
// WebSocket, no callbacks.
//
// For the high-level experience with automatic keepalive and result
// streaming, use Client instead.
type APIClient struct {
	http *httpClient
}

// NewAPIClient creates an APIClient authenticated with apiKey. It accepts
// the same options as New; stream- and WebRTC-related options are ignored.
func NewAPIClient(apiKey string, opts ...Option) (*APIClient, error) {
	client, err := New(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &APIClient{http: client.http}, nil
}

// serializeSource converts a wire-ready source to the API payload format.
// File and camera sources must be resolved into a WebRTCSource first.
func serializeSource(source Source) (map[string]any, error) {
	switch s := source.(type) {
	case LiveKitSource:
		return map[string]any{"type": "livekit", "url": s.URL, "token": s.Token}, nil
	case WebRTCSource:
		return map[string]any{"type": "webrtc", "sdp": s.SDP}, nil
	case FileSource, CameraSource:
		return nil, fmt.Errorf("source type %T must be resolved before sending", source)
	default:
		return nil, fmt.Errorf("unsupported source type %T", source)
	}
}

// createStreamBody builds the POST /streams request body.
func createStreamBody(source Source, processing ProcessingConfig, inference InferenceConfig, mode StreamMode) (map[string]any, error) {
	wireSource, err := serializeSource(source)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"source":     wireSource,
		"processing": processing,
		"inference":  inference,
	}
	if mode != "" {
		body["mode"] = mode
	}
	return body, nil
}

// CreateStream calls POST /streams. The source must be wire-ready
// (LiveKitSource or WebRTCSource).
func (a *APIClient) CreateStream(ctx context.Context, source Source, processing ProcessingConfig, inference InferenceConfig, mode StreamMode) (*StreamCreateResponse, error) {
	body, err := createStreamBody(source, processing, inference, mode)
	if err != nil {
		return nil, err
	}

	data, err := a.http.request(ctx, "POST", "/streams", body)
	if err != nil {
		return nil, err
	}

	var resp StreamCreateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse create response: %w", err)
	}
	return &resp, nil
}

// Keepalive calls POST /streams/{id}/keepalive to renew the stream lease.
func (a *APIClient) Keepalive(ctx context.Context, streamID string) (*KeepaliveResponse, error) {
	data, err := a.http.request(ctx, "POST", "/streams/"+streamID+"/keepalive", nil)
	if err != nil {
		return nil, err
	}

	var resp KeepaliveResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse keepalive response: %w", err)
	}
	if resp.Status == "" {
		resp.Status = "ok"
	}
	return &resp, nil
}

// UpdatePrompt calls PATCH /streams/{id}/config/prompt.
func (a *APIClient) UpdatePrompt(ctx context.Context, streamID, prompt string) (*StreamConfigResponse, error) {
	return updatePrompt(ctx, a.http, streamID, prompt)
}

// updatePrompt is shared with Stream.UpdatePrompt.
func updatePrompt(ctx context.Context, t transport, streamID, prompt string) (*StreamConfigResponse, error) {
	data, err := t.request(ctx, "PATCH", "/streams/"+streamID+"/config/prompt", map[string]any{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	var resp StreamConfigResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse config response: %w", err)
	}
	return &resp, nil
}

// CloseStream calls DELETE /streams/{id}, releasing the stream and
// triggering final billing.
func (a *APIClient) CloseStream(ctx context.Context, streamID string) (*StatusResponse, error) {
	data, err := a.http.request(ctx, "DELETE", "/streams/"+streamID, nil)
	if err != nil {
		return nil, err
	}
	return parseStatus(data)
}

// Models calls GET /models and returns the available models and their
// status.
func (a *APIClient) Models(ctx context.Context) ([]ModelInfo, error) {
	data, err := a.http.request(ctx, "GET", "/models", nil)
	if err != nil {
		return nil, err
	}

	// The endpoint has returned both a bare list and a wrapped object.
	var list []ModelInfo
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}
	return wrapped.Models, nil
}

// Health calls GET /healthz and returns the reported status.
func (a *APIClient) Health(ctx context.Context) (string, error) {
	data, err := a.http.request(ctx, "GET", "/healthz", nil)
	if err != nil {
		return "", err
	}
	resp, err := parseStatus(data)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// SubmitFeedback calls POST /streams/{id}/feedback.
func (a *APIClient) SubmitFeedback(ctx context.Context, streamID string, req FeedbackCreateRequest) (*StatusResponse, error) {
	data, err := a.http.request(ctx, "POST", "/streams/"+streamID+"/feedback", req)
	if err != nil {
		return nil, err
	}
	return parseStatus(data)
}

// ListFeedback calls GET /streams/feedback and returns all submitted
// feedback entries.
func (a *APIClient) ListFeedback(ctx context.Context) ([]FeedbackResponse, error) {
	data, err := a.http.request(ctx, "GET", "/streams/feedback", nil)
	if err != nil {
		return nil, err
	}

	var list []FeedbackResponse
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Feedback []FeedbackResponse `json:"feedback"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse feedback response: %w", err)
	}
	return wrapped.Feedback, nil
}

// Close releases idle transport connections.
func (a *APIClient) Close() error {
	a.http.client.CloseIdleConnections()
	return nil
}

func parseStatus(data json.RawMessage) (*StatusResponse, error) {
	var resp StatusResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	if resp.Status == "" {
		resp.Status = "ok"
	}
	return &resp, nil
}
