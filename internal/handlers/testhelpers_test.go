package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benvon/taskwise/internal/models"
	"github.com/benvon/taskwise/internal/persistence"
	"github.com/benvon/taskwise/internal/store"
	"github.com/gorilla/mux"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// envelope mirrors the JSON response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// newTestAPI wires the task and view handlers over a memory-backed store
func newTestAPI(t *testing.T) (*mux.Router, *store.Store) {
	t.Helper()

	adapter := persistence.NewAdapter(persistence.NewMemoryStore(), "", time.UTC)
	s := store.New(adapter, nil,
		store.WithClock(func() time.Time { return testNow }),
		store.WithLocation(time.UTC),
	)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	NewTaskHandler(s, nil).RegisterRoutes(api.PathPrefix("/tasks").Subrouter())
	NewViewHandler(s).RegisterRoutes(api)
	return r, s
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("Failed to decode data %s: %v", env.Data, err)
	}
	return out
}

func mustCreate(t *testing.T, s *store.Store, in models.TaskInput) models.Task {
	t.Helper()
	task, err := s.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return task
}

func dueAt(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
