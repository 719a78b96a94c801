package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type mockQueue struct {
	err error
}

func (m *mockQueue) HealthCheck(ctx context.Context) error {
	return m.err
}

type mockSaves struct {
	err error
}

func (m *mockSaves) LastSaveError() error {
	return m.err
}

func TestHealthChecker_HealthCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mode       string
		storage    Pinger
		queue      QueueChecker
		saves      SaveErrorReporter
		wantStatus int
		wantHealth string
		wantChecks map[string]string
	}{
		{
			name:       "basic mode ignores backends",
			storage:    &mockPinger{err: errors.New("down")},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name:       "extended all healthy",
			mode:       "extended",
			storage:    &mockPinger{},
			queue:      &mockQueue{},
			saves:      &mockSaves{},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
			wantChecks: map[string]string{"storage": "healthy", "queue": "healthy", "last_save": "healthy"},
		},
		{
			name:       "extended queue disabled",
			mode:       "extended",
			storage:    &mockPinger{},
			saves:      &mockSaves{},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
			wantChecks: map[string]string{"storage": "healthy", "queue": "disabled", "last_save": "healthy"},
		},
		{
			name:       "extended storage down",
			mode:       "extended",
			storage:    &mockPinger{err: errors.New("connection refused")},
			saves:      &mockSaves{},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
			wantChecks: map[string]string{"storage": "unhealthy: connection refused", "queue": "disabled", "last_save": "healthy"},
		},
		{
			name:       "extended last save failed",
			mode:       "extended",
			storage:    &mockPinger{},
			queue:      &mockQueue{},
			saves:      &mockSaves{err: errors.New("disk full")},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
			wantChecks: map[string]string{"storage": "healthy", "queue": "healthy", "last_save": "unhealthy: disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(tt.storage, tt.queue, tt.saves)
			path := "/healthz"
			if tt.mode != "" {
				path += "?mode=" + tt.mode
			}
			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("Expected status %q, got %q", tt.wantHealth, resp.Status)
			}
			if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
				t.Errorf("Timestamp %q is not RFC3339: %v", resp.Timestamp, err)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Fatalf("Expected checks %v, got %v", tt.wantChecks, resp.Checks)
			}
			for k, v := range tt.wantChecks {
				if resp.Checks[k] != v {
					t.Errorf("Check %s: expected %q, got %q", k, v, resp.Checks[k])
				}
			}
		})
	}
}
