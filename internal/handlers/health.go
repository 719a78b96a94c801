package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is a backend that can report whether it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueChecker is an event transport that can report its health
type QueueChecker interface {
	HealthCheck(ctx context.Context) error
}

// SaveErrorReporter exposes the outcome of the most recent save
type SaveErrorReporter interface {
	LastSaveError() error
}

// HealthChecker handles health check requests
type HealthChecker struct {
	storage Pinger
	queue   QueueChecker
	saves   SaveErrorReporter
}

// NewHealthChecker creates a new health checker. queue may be nil when change
// events are disabled.
func NewHealthChecker(storage Pinger, queue QueueChecker, saves SaveErrorReporter) *HealthChecker {
	return &HealthChecker{storage: storage, queue: queue, saves: saves}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if mode == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := make(map[string]string)
		record := func(name string, err error) {
			if err != nil {
				response.Status = "unhealthy"
				checks[name] = "unhealthy: " + sanitizeErrorMessage(err.Error())
				return
			}
			checks[name] = "healthy"
		}

		if h.storage != nil {
			record("storage", h.storage.Ping(ctx))
		}
		if h.queue != nil {
			record("queue", h.queue.HealthCheck(ctx))
		} else {
			checks["queue"] = "disabled"
		}
		// A failed save leaves memory ahead of storage
		if h.saves != nil {
			record("last_save", h.saves.LastSaveError())
		}

		response.Checks = checks
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
