package overshoot

import "fmt"

// APIError is an HTTP API error with the server-reported status code and
// optional request correlation details. The specific error types below embed
// it; match them with errors.As.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
	Details    any
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("overshoot: %s (status %d, request %s)", e.Message, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("overshoot: %s (status %d)", e.Message, e.StatusCode)
}

// AuthenticationError reports a 401: invalid or revoked API key.
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Unwrap() error { return &e.APIError }

// ValidationError reports a 400 or 422: invalid request parameters.
type ValidationError struct {
	APIError
}

func (e *ValidationError) Unwrap() error { return &e.APIError }

// NotFoundError reports a 404: stream or resource not found.
type NotFoundError struct {
	APIError
}

func (e *NotFoundError) Unwrap() error { return &e.APIError }

// InsufficientCreditsError reports a 402: not enough credits to create or
// maintain a stream.
type InsufficientCreditsError struct {
	APIError
}

func (e *InsufficientCreditsError) Unwrap() error { return &e.APIError }

// RateLimitError reports a 429.
type RateLimitError struct {
	APIError
}

func (e *RateLimitError) Unwrap() error { return &e.APIError }

// ServerError reports a 5xx server-side failure.
type ServerError struct {
	APIError
}

func (e *ServerError) Unwrap() error { return &e.APIError }

// NetworkError is a connection or transport-level failure (DNS, timeout,
// socket reset) before any HTTP status was received.
type NetworkError struct {
	Message string
	Cause   error
}

func (e *NetworkError) Error() string { return "overshoot: " + e.Message }

func (e *NetworkError) Unwrap() error { return e.Cause }

// StreamClosedError reports an operation attempted on a stream that is
// already closed.
type StreamClosedError struct {
	StreamID string
}

func (e *StreamClosedError) Error() string {
	return fmt.Sprintf("overshoot: stream %s is closed", e.StreamID)
}

// WebSocketError is a result-subscription connection or protocol failure.
// Code carries the WebSocket close code when one was received; close code
// 1008 denotes an authentication failure.
type WebSocketError struct {
	Message string
	Code    int
	Cause   error
}

func (e *WebSocketError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("overshoot: %s (close code %d)", e.Message, e.Code)
	}
	return "overshoot: " + e.Message
}

func (e *WebSocketError) Unwrap() error { return e.Cause }
