package overshoot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Overshoot-ai/overshoot-go/internal/metrics"
)

// closeNotifyTimeout bounds the best-effort DELETE issued during Close.
const closeNotifyTimeout = 10 * time.Second

// Stream is a running Overshoot analysis stream. Created by Streams.Create,
// not directly.
//
// Two background goroutines serve a stream: one consumes the result
// WebSocket and invokes the result callback, the other renews the lease
// every half TTL. Close stops both, releases any local media resources, and
// notifies the server. If the lease cannot be renewed, the stream emits the
// failure and closes itself.
type Stream struct {
	id        string
	transport transport
	source    *resolvedSource
	ttl       int
	onResult  func(StreamInferenceResult)
	onError   func(error)
	logger    *slog.Logger
	metrics   *metrics.Metrics

	// keepaliveInterval defaults to half the lease TTL.
	keepaliveInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed   atomic.Bool
	done     chan struct{} // closed when teardown has fully completed
	closeReq chan struct{} // signalled by the keepalive loop on failure

	connMu sync.Mutex
	conn   *websocket.Conn

	startedAt time.Time
}

func newStream(id string, t transport, source *resolvedSource, ttlSeconds int,
	onResult func(StreamInferenceResult), onError func(error),
	logger *slog.Logger, m *metrics.Metrics) *Stream {

	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{
		id:                id,
		transport:         t,
		source:            source,
		ttl:               ttlSeconds,
		onResult:          onResult,
		onError:           onError,
		logger:            logger,
		metrics:           m,
		keepaliveInterval: time.Duration(ttlSeconds) * time.Second / 2,
		ctx:               ctx,
		cancel:            cancel,
		done:              make(chan struct{}),
		closeReq:          make(chan struct{}, 1),
	}
}

// ID returns the server-assigned stream identifier.
func (s *Stream) ID() string { return s.id }

// IsActive reports whether the stream is running and not closed.
func (s *Stream) IsActive() bool { return !s.closed.Load() }

// start launches the background goroutines. Called exactly once by
// Streams.Create after construction.
func (s *Stream) start() {
	s.startedAt = time.Now()
	s.metrics.StreamsCreated.Inc()
	s.metrics.ActiveStreams.Inc()

	s.wg.Add(1)
	go s.resultLoop()

	if s.ttl > 0 {
		s.wg.Add(1)
		go s.keepaliveLoop()
	}

	// Supervisor: performs the close requested by the keepalive loop, so
	// that the loop never waits for its own termination.
	go func() {
		select {
		case <-s.closeReq:
			_ = s.Close()
		case <-s.done:
		}
	}()
}

// Close stops all background goroutines and releases resources: the
// WebSocket, the keepalive loop, any local peer connection and media
// pipeline, and finally the stream on the server (triggering final
// billing). Safe to call multiple times and from multiple goroutines; only
// the first call performs the teardown, later callers wait for it to
// complete.
//
// Close waits for the background goroutines, so it must not be called from
// inside OnResult or OnError; spawn a goroutine to close from a callback.
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		<-s.done
		return nil
	}

	s.logger.Info("closing stream", slog.String("stream_id", s.id))

	s.cancel()

	// Closing the connection unblocks the result loop's pending read.
	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}

	s.wg.Wait()

	// Local resources are released even if the server notification fails.
	s.source.close()

	ctx, cancel := context.WithTimeout(context.Background(), closeNotifyTimeout)
	defer cancel()
	if _, err := s.transport.request(ctx, "DELETE", "/streams/"+s.id, nil); err != nil {
		s.logger.Warn("failed to close stream on server",
			slog.String("stream_id", s.id),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.StreamsClosed.Inc()
	s.metrics.ActiveStreams.Dec()
	s.metrics.StreamDuration.Observe(time.Since(s.startedAt).Seconds())

	close(s.done)
	return nil
}

// UpdatePrompt updates the inference prompt while the stream is running.
func (s *Stream) UpdatePrompt(ctx context.Context, prompt string) (*StreamConfigResponse, error) {
	if s.closed.Load() {
		return nil, &StreamClosedError{StreamID: s.id}
	}
	return updatePrompt(ctx, s.transport, s.id, prompt)
}

// resultLoop connects to the result WebSocket, authenticates, and delivers
// decoded results to the result callback until the connection ends. It never
// reconnects.
func (s *Stream) resultLoop() {
	defer s.wg.Done()

	conn, err := s.transport.dialResults(s.ctx, s.id)
	if err != nil {
		if s.closing() {
			return
		}
		s.metrics.WebSocketFailures.Inc()
		s.emitError(&WebSocketError{Message: "connection failed", Cause: err})
		return
	}

	s.connMu.Lock()
	if s.closed.Load() {
		s.connMu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.connMu.Unlock()

	if err := conn.WriteJSON(map[string]string{"api_key": s.transport.key()}); err != nil {
		if !s.closing() {
			s.metrics.WebSocketFailures.Inc()
			s.emitError(&WebSocketError{Message: "failed to send auth frame", Cause: err})
		}
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if s.closing() {
				return
			}
			s.handleReadError(err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.handleFrame(data)
	}
}

// handleReadError classifies a terminal read error. A close frame with code
// 1008 is an authentication failure; other close codes end the loop
// silently; anything else is a transport error.
func (s *Stream) handleReadError(err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Code == websocket.ClosePolicyViolation {
			s.metrics.WebSocketFailures.Inc()
			s.emitError(&WebSocketError{
				Message: "authentication failed: invalid API key",
				Code:    closeErr.Code,
				Cause:   err,
			})
		}
		return
	}
	s.metrics.WebSocketFailures.Inc()
	s.emitError(&WebSocketError{Message: "connection error", Cause: err})
}

// handleFrame decodes one text frame and invokes the result callback.
// Malformed frames are dropped; a single bad frame must not end the stream.
func (s *Stream) handleFrame(data []byte) {
	result, err := decodeInferenceResult(data)
	if err != nil {
		s.metrics.MalformedFrames.Inc()
		s.logger.Warn("malformed WebSocket message",
			slog.String("stream_id", s.id),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.ResultsReceived.Inc()
	s.onResult(result)
}

// keepaliveLoop renews the lease every half TTL. A failed renewal means the
// stream no longer holds a protected lease, so the loop reports the failure
// and requests a full close rather than leaving local resources dangling.
func (s *Stream) keepaliveLoop() {
	defer s.wg.Done()

	timer := time.NewTimer(s.keepaliveInterval)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		if s.closed.Load() {
			return
		}

		if _, err := s.transport.request(s.ctx, "POST", "/streams/"+s.id+"/keepalive", nil); err != nil {
			if s.closing() {
				return
			}
			s.metrics.KeepaliveFailures.Inc()
			s.logger.Error("keepalive failed",
				slog.String("stream_id", s.id),
				slog.String("error", err.Error()),
			)
			s.emitError(err)
			s.requestClose()
			return
		}

		s.metrics.KeepalivesSent.Inc()
		s.logger.Debug("lease renewed", slog.String("stream_id", s.id))
		timer.Reset(s.keepaliveInterval)
	}
}

// requestClose asks the supervisor to close the stream. Non-blocking.
func (s *Stream) requestClose() {
	select {
	case s.closeReq <- struct{}{}:
	default:
	}
}

// closing reports whether teardown has begun, so loops can tell expected
// cancellation from genuine failures.
func (s *Stream) closing() bool {
	return s.closed.Load() || s.ctx.Err() != nil
}

// emitError funnels an internally-detected failure to the error callback,
// or logs it when none is registered.
func (s *Stream) emitError(err error) {
	if s.onError != nil {
		s.onError(err)
		return
	}
	s.logger.Error("stream error (no error handler)",
		slog.String("stream_id", s.id),
		slog.String("error", err.Error()),
	)
}
