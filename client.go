package overshoot

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Overshoot-ai/overshoot-go/internal/metrics"
)

// Client is the high-level Overshoot API client. Use Streams.Create to start
// a stream with automatic keepalive and WebSocket result delivery.
type Client struct {
	http    *httpClient
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Streams is the namespace for stream operations.
	Streams *StreamsAPI
}

type clientOptions struct {
	baseURL    string
	timeout    time.Duration
	logger     *slog.Logger
	httpClient *http.Client
	registerer prometheus.Registerer
	iceServers []webrtc.ICEServer
}

// Option configures a Client.
type Option func(*clientOptions)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) { o.baseURL = url }
}

// WithTimeout sets the per-request HTTP timeout. The default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithLogger sets the structured logger used by the client and its streams.
// Without it the SDK logs nothing.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithHTTPClient substitutes the underlying *http.Client, e.g. to add a
// proxy or custom TLS configuration.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithRegisterer registers the SDK's Prometheus metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *clientOptions) { o.registerer = reg }
}

// WithICEServers sets the STUN/TURN servers used when resolving file and
// camera sources into local peer connections.
func WithICEServers(servers []webrtc.ICEServer) Option {
	return func(o *clientOptions) { o.iceServers = servers }
}

// New creates a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	options := clientOptions{
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	logger := options.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reg := options.registerer
	if reg == nil {
		// Metrics are always collected; without a registerer they stay on a
		// private registry and are never exposed.
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)

	httpc, err := newHTTPClient(apiKey, options.baseURL, options.timeout, options.httpClient, logger, m)
	if err != nil {
		return nil, err
	}

	c := &Client{
		http:    httpc,
		logger:  logger,
		metrics: m,
	}
	c.Streams = &StreamsAPI{
		http:       httpc,
		logger:     logger,
		metrics:    m,
		iceServers: options.iceServers,
	}
	return c, nil
}

// Close releases idle transport connections. Active streams are not closed;
// close them individually first.
func (c *Client) Close() error {
	c.http.client.CloseIdleConnections()
	return nil
}
