package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/taskwise/internal/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{name: "GET without content type", method: "GET", wantStatus: http.StatusOK},
		{name: "POST json", method: "POST", contentType: "application/json", body: `{}`, wantStatus: http.StatusOK},
		{name: "PUT json with charset", method: "PUT", contentType: "application/json; charset=utf-8", body: `{}`, wantStatus: http.StatusOK},
		{name: "bodiless POST", method: "POST", wantStatus: http.StatusOK},
		{name: "POST body without content type", method: "POST", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "POST form", method: "POST", contentType: "application/x-www-form-urlencoded", body: "a=b", wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			var req *http.Request
			if body != nil {
				req = httptest.NewRequest(tt.method, "/api/v1/tasks", body)
			} else {
				req = httptest.NewRequest(tt.method, "/api/v1/tasks", nil)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()

			ContentType(okHandler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	handler := MaxRequestSize(8)(okHandler)

	req := httptest.NewRequest("POST", "/", strings.NewReader("0123456789"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader("0123"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	SecurityHeaders(true)(okHandler).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if w.Header().Get(h) == "" {
			t.Errorf("Expected header %s", h)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("Expected no HSTS header over plain http")
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.RequestID(r)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if seen == "" || w.Header().Get(request.RequestIDHeader) != seen {
		t.Errorf("Expected generated id echoed, got %q / %q", seen, w.Header().Get(request.RequestIDHeader))
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(request.RequestIDHeader, "client-id-1")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if seen != "client-id-1" {
		t.Errorf("Expected incoming id to be reused, got %q", seen)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(request.RequestIDHeader, "bad id\nwith newline")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if seen == "bad id\nwith newline" {
		t.Error("Expected malformed incoming id to be replaced")
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	handler := CORS([]string{"http://app.test"}, zap.NewNop())(okHandler)

	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	req.Header.Set("Origin", "http://app.test")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://app.test" {
		t.Errorf("Expected allowed origin echoed, got %q", got)
	}

	req = httptest.NewRequest("GET", "/api/v1/tasks", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS header for unknown origin, got %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/api/v1/tasks", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent && w.Code != http.StatusOK {
		t.Errorf("Expected preflight to succeed, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PUT") {
		t.Errorf("Expected PUT in allowed methods, got %q", w.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	mw, err := RateLimit("2-M", nil)
	if err != nil {
		t.Fatalf("RateLimit failed: %v", err)
	}
	handler := Audit(zap.New(core))(mw(okHandler))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
		if i == 0 && w.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("Expected X-RateLimit-Limit 2, got %q", w.Header().Get("X-RateLimit-Limit"))
		}
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK || statuses[2] != http.StatusTooManyRequests {
		t.Errorf("Expected [200 200 429], got %v", statuses)
	}
	if logs.FilterMessage("rate_limit_violation").Len() != 1 {
		t.Error("Expected rate limit violation to be audited")
	}

	// Different client has its own budget
	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	req.RemoteAddr = "192.0.2.11:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected other client to pass, got %d", w.Code)
	}
}

func TestRateLimit_InvalidRate(t *testing.T) {
	t.Parallel()

	if _, err := RateLimit("fast", nil); err == nil {
		t.Error("Expected error for invalid rate")
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		}
	})

	core, logs := observer.New(zapcore.WarnLevel)
	handler := RequestID(Timeout(20*time.Millisecond, zap.New(core))(slow))

	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	req.Header.Set(request.RequestIDHeader, "slow-req-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 on timeout, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON timeout body, got %q: %v", w.Body.String(), err)
	}
	if body.Success || body.Error != "Service Unavailable" {
		t.Errorf("Unexpected timeout body %+v", body)
	}
	if body.RequestID != "slow-req-1" || body.Path != "/api/v1/tasks" {
		t.Errorf("Expected request id and path in body, got %+v", body)
	}

	entries := logs.FilterMessage("request_timed_out").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one request_timed_out log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "slow-req-1" {
		t.Errorf("Expected logged request id slow-req-1, got %v", got)
	}
}

func TestTimeout_FastHandlerPassesThrough(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	w := httptest.NewRecorder()
	Timeout(time.Second, zap.New(core))(okHandler).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if logs.Len() != 0 {
		t.Errorf("Expected no logs for a fast handler, got %d", logs.Len())
	}
}
