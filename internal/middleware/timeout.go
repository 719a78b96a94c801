package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/taskwise/internal/request"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds every handler
const DefaultRequestTimeout = 30 * time.Second

const fallbackTimeoutBody = `{"success":false,"error":"Service Unavailable","message":"Request timed out"}`

// Timeout answers 503 with an ErrorResponse once a handler runs past timeout.
// The body names the path and request id so a client can correlate it with logs.
func Timeout(timeout time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// TimeoutHandler puts the deadline on the request context itself
			start := time.Now()
			http.TimeoutHandler(next, timeout, timeoutBody(r)).ServeHTTP(w, r)

			if time.Since(start) >= timeout {
				logger.Warn("request_timed_out",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", request.RequestID(r)),
					zap.Duration("timeout", timeout),
				)
			}
		})
	}
}

func timeoutBody(r *http.Request) string {
	body, err := json.Marshal(newErrorResponse(r, "Service Unavailable", "Request timed out"))
	if err != nil {
		return fallbackTimeoutBody
	}
	return string(body)
}
