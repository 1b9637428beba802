package overshoot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestHTTPClient(t *testing.T, baseURL string) *httpClient {
	t.Helper()
	h, err := newHTTPClient("sk-test", baseURL, 5*time.Second, nil, testLogger(), testMetrics())
	if err != nil {
		t.Fatalf("newHTTPClient failed: %v", err)
	}
	return h
}

func TestNewHTTPClientRequiresKey(t *testing.T) {
	_, err := newHTTPClient("", "https://api.example.com", 5*time.Second, nil, testLogger(), testMetrics())
	if err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotAgent, gotRequestID, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	h := newTestHTTPClient(t, srv.URL)
	if _, err := h.request(context.Background(), "POST", "/streams", map[string]string{"a": "b"}); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("expected Bearer auth header, got %q", gotAuth)
	}
	if !strings.HasPrefix(gotAgent, "overshoot-go/") {
		t.Errorf("expected overshoot-go user agent, got %q", gotAgent)
	}
	if gotRequestID == "" {
		t.Error("expected X-Request-ID header to be set")
	}
	if gotContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotContentType)
	}
}

func TestRequestNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := newTestHTTPClient(t, srv.URL)
	data, err := h.request(context.Background(), "DELETE", "/streams/st-1", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if string(data) != `{"status":"ok"}` {
		t.Errorf("expected synthesized ok body for 204, got %s", data)
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", 401, func(err error) bool {
			var e *AuthenticationError
			return errors.As(err, &e)
		}},
		{"payment required", 402, func(err error) bool {
			var e *InsufficientCreditsError
			return errors.As(err, &e)
		}},
		{"bad request", 400, func(err error) bool {
			var e *ValidationError
			return errors.As(err, &e)
		}},
		{"unprocessable", 422, func(err error) bool {
			var e *ValidationError
			return errors.As(err, &e)
		}},
		{"not found", 404, func(err error) bool {
			var e *NotFoundError
			return errors.As(err, &e)
		}},
		{"rate limited", 429, func(err error) bool {
			var e *RateLimitError
			return errors.As(err, &e)
		}},
		{"server error", 500, func(err error) bool {
			var e *ServerError
			return errors.As(err, &e)
		}},
		{"bad gateway", 502, func(err error) bool {
			var e *ServerError
			return errors.As(err, &e)
		}},
		{"unmapped status", 418, func(err error) bool {
			var e *APIError
			return errors.As(err, &e)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"test_error","message":"something failed","request_id":"req-1"}`))
			}))
			defer srv.Close()

			h := newTestHTTPClient(t, srv.URL)
			_, err := h.request(context.Background(), "GET", "/models", nil)
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if !tt.check(err) {
				t.Errorf("status %d mapped to wrong error type: %T", tt.status, err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error does not carry APIError: %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d in error, got %d", tt.status, apiErr.StatusCode)
			}
			if apiErr.Message != "something failed" {
				t.Errorf("expected server message in error, got %q", apiErr.Message)
			}
			if apiErr.RequestID != "req-1" {
				t.Errorf("expected request id in error, got %q", apiErr.RequestID)
			}
		})
	}
}

func TestStatusErrorNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream gone"))
	}))
	defer srv.Close()

	h := newTestHTTPClient(t, srv.URL)
	_, err := h.request(context.Background(), "GET", "/models", nil)

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.Message != "upstream gone" {
		t.Errorf("expected raw body as message, got %q", serverErr.Message)
	}
}

func TestRequestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	h := newTestHTTPClient(t, url)
	_, err := h.request(context.Background(), "GET", "/healthz", nil)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError for unreachable server, got %v", err)
	}
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "https becomes wss",
			baseURL: "https://api.overshoot.ai/api/v0.2",
			want:    "wss://api.overshoot.ai/api/v0.2/ws/streams/st-1",
		},
		{
			name:    "http becomes ws",
			baseURL: "http://localhost:8080/api/v0.2",
			want:    "ws://localhost:8080/api/v0.2/ws/streams/st-1",
		},
		{
			name:    "trailing slash trimmed",
			baseURL: "https://api.overshoot.ai/api/v0.2/",
			want:    "wss://api.overshoot.ai/api/v0.2/ws/streams/st-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHTTPClient(t, tt.baseURL)
			if got := h.wsURL("st-1"); got != tt.want {
				t.Errorf("wsURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
