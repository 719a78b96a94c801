package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installTestProvider swaps the global provider for one backed by an in-memory exporter
func installTestProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return tp, exporter
}

func TestStartEndSpan(t *testing.T) {
	_, exporter := installTestProvider(t)

	_, span := StartSpan(context.Background(), "persistence.save", attribute.Int("task.count", 3))
	EndSpan(span, nil)

	_, failed := StartSpan(context.Background(), "persistence.load")
	EndSpan(failed, errors.New("backend unreachable"))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}

	ok := spans[0]
	if ok.Name != "persistence.save" || ok.Status.Code == codes.Error {
		t.Errorf("Unexpected first span %s status %v", ok.Name, ok.Status.Code)
	}
	if ok.InstrumentationScope.Name != InstrumentationName {
		t.Errorf("Expected scope %s, got %s", InstrumentationName, ok.InstrumentationScope.Name)
	}

	bad := spans[1]
	if bad.Status.Code != codes.Error || bad.Status.Description != "backend unreachable" {
		t.Errorf("Expected error status, got %+v", bad.Status)
	}
	if len(bad.Events) == 0 {
		t.Error("Expected the error to be recorded as a span event")
	}
}

// TestTraceContextPropagation verifies that trace context is properly propagated
func TestTraceContextPropagation(t *testing.T) {
	tp, exporter := installTestProvider(t)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(DefaultServiceName))
	r.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		_, span := StartSpan(r.Context(), "handler.child")
		EndSpan(span, nil)
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		traceParent string
		wantTraceID string
	}{
		{
			name: "without existing trace ID",
		},
		{
			name:        "with existing trace ID",
			traceParent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantTraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("Expected status OK, got %d", rr.Code)
			}
			if err := tp.ForceFlush(context.Background()); err != nil {
				t.Errorf("Failed to flush tracer provider: %v", err)
			}

			spans := exporter.GetSpans()
			if len(spans) != 2 {
				t.Fatalf("Expected server and child spans, got %d", len(spans))
			}
			// Child ends first
			child, server := spans[0], spans[1]
			if child.Parent.SpanID() != server.SpanContext.SpanID() {
				t.Error("Expected child span to be parented by the server span")
			}
			if tt.wantTraceID != "" && server.SpanContext.TraceID().String() != tt.wantTraceID {
				t.Errorf("Expected trace ID %s, got %s", tt.wantTraceID, server.SpanContext.TraceID())
			}
		})
	}
}
