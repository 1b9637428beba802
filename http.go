package overshoot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Overshoot-ai/overshoot-go/internal/metrics"
)

const userAgent = "overshoot-go/" + Version

// transport is the request/response and duplex-connection surface the Stream
// and APIClient depend on. Implemented by httpClient; tests substitute fakes.
type transport interface {
	request(ctx context.Context, method, path string, body any) (json.RawMessage, error)
	dialResults(ctx context.Context, streamID string) (*websocket.Conn, error)
	key() string
}

// httpClient issues authenticated requests against the API and opens result
// WebSocket connections. It maps non-2xx responses to the SDK error types.
type httpClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	dialer  *websocket.Dialer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newHTTPClient(apiKey, baseURL string, timeout time.Duration, underlying *http.Client, logger *slog.Logger, m *metrics.Metrics) (*httpClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key cannot be empty")
	}

	if underlying == nil {
		underlying = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &httpClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  underlying,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
		logger:  logger,
		metrics: m,
	}, nil
}

func (h *httpClient) key() string { return h.apiKey }

// errorEnvelope is the error body shape returned by the API.
type errorEnvelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Details   any    `json:"details"`
}

// request performs one HTTP call and returns the raw JSON response body.
// A 204 is reported as {"status":"ok"}.
func (h *httpClient) request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	url := h.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)

	h.logger.Debug("API request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := h.client.Do(req)
	h.metrics.HTTPRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.HTTPRequests.WithLabelValues(method, "network_error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &NetworkError{Message: "request timed out", Cause: err}
		}
		return nil, &NetworkError{Message: fmt.Sprintf("request failed: %v", err), Cause: err}
	}
	defer resp.Body.Close()

	h.metrics.HTTPRequests.WithLabelValues(method, statusOutcome(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNoContent {
		return json.RawMessage(`{"status":"ok"}`), nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return json.RawMessage(respBody), nil
	}

	return nil, h.statusError(resp.StatusCode, respBody)
}

// statusError maps a non-2xx response to a typed SDK error.
func (h *httpClient) statusError(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		env = errorEnvelope{Error: "unknown", Message: string(body)}
	}

	message := env.Message
	if message == "" {
		message = env.Error
	}
	if message == "" {
		message = "unknown error"
	}

	base := APIError{
		StatusCode: status,
		Message:    message,
		RequestID:  env.RequestID,
		Details:    env.Details,
	}

	switch {
	case status == http.StatusUnauthorized:
		return &AuthenticationError{APIError: base}
	case status == http.StatusPaymentRequired:
		return &InsufficientCreditsError{APIError: base}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &ValidationError{APIError: base}
	case status == http.StatusNotFound:
		return &NotFoundError{APIError: base}
	case status == http.StatusTooManyRequests:
		return &RateLimitError{APIError: base}
	case status >= 500:
		return &ServerError{APIError: base}
	default:
		return &base
	}
}

// wsURL derives the result-subscription URL for a stream from the base URL.
func (h *httpClient) wsURL(streamID string) string {
	base := h.baseURL
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/streams/" + streamID
}

// dialResults opens the result WebSocket for a stream. Authentication
// happens in-band: the caller sends the API key as the first frame.
func (h *httpClient) dialResults(ctx context.Context, streamID string) (*websocket.Conn, error) {
	url := h.wsURL(streamID)
	conn, resp, err := h.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	h.logger.Debug("WebSocket connected", slog.String("url", url))
	return conn, nil
}

func statusOutcome(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "success"
	case status >= 400 && status < 500:
		return "client_error"
	case status >= 500:
		return "server_error"
	default:
		return "other"
	}
}
