package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/taskwise/internal/handlers"
	"github.com/benvon/taskwise/internal/middleware"
	"github.com/benvon/taskwise/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// RouterConfig carries the HTTP-only settings
type RouterConfig struct {
	OpenAPISpec []byte
	Tracing     bool
	Version     string
}

// NewRouter builds the HTTP API over the app's store
func NewRouter(a *App, rc RouterConfig) (http.Handler, error) {
	cfg := a.Config
	log := a.Logger

	rateLimitMW, err := middleware.RateLimit(cfg.RateLimit, a.RedisClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	r := mux.NewRouter()

	// gorilla/mux applies middleware in registration order, first is outermost
	if rc.Tracing {
		r.Use(otelmux.Middleware(telemetry.DefaultServiceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.AllowedOrigins(), log))
	r.Use(middleware.RequestID)
	// Audit sits outside the size and content type checks so their rejections are seen
	r.Use(middleware.Audit(log))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout, log))
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.Logging(log))

	var queueChecker handlers.QueueChecker
	if a.Events != nil {
		queueChecker = a.Events
	}
	health := handlers.NewHealthChecker(a.Storage, queueChecker, a.Store)
	r.HandleFunc("/healthz", health.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo(rc.Version)).Methods("GET")

	handlers.NewOpenAPIHandler(rc.OpenAPISpec).RegisterRoutes(r)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(rateLimitMW)
	handlers.NewTaskHandler(a.Store, log).RegisterRoutes(api.PathPrefix("/tasks").Subrouter())
	handlers.NewViewHandler(a.Store).RegisterRoutes(api)

	// Preflight requests need a matching route for the CORS middleware to run
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	log.Info("router_ready",
		zap.Bool("tracing", rc.Tracing),
		zap.String("rate_limit", cfg.RateLimit),
	)
	return r, nil
}

func versionInfo(version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"version":%q,"timestamp":%q}`, version, time.Now().UTC().Format(time.RFC3339))
	}
}
