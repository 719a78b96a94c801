package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/taskwise/api/openapi"
	"github.com/gorilla/mux"
)

func TestOpenAPIHandler(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	NewOpenAPIHandler(openapi.Spec).RegisterRoutes(r)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.yaml", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-yaml" {
		t.Errorf("Expected application/x-yaml, got %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "openapi:") {
		t.Error("Expected YAML document")
	}

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var doc map[string]any
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("Failed to decode JSON document: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Errorf("Expected openapi 3.0.3, got %v", doc["openapi"])
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatal("Expected paths object")
	}
	for _, p := range []string{"/tasks", "/tasks/{id}", "/tasks/{id}/toggle", "/views/calendar.ics"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("Missing path %s", p)
		}
	}
}

func TestOpenAPIHandler_Missing(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	NewOpenAPIHandler(nil).RegisterRoutes(r)

	for _, path := range []string{"/api/v1/openapi.yaml", "/api/v1/openapi.json"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}
