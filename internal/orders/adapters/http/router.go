package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dejobratic/orderflow/internal/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	ServiceName string
	Logger      *slog.Logger
	// Metrics is optional.
	Metrics *httpx.Metrics
	Checks  map[string]Check
}

// NewRouter assembles the order service HTTP surface: middleware, probes and order routes.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.WithRecovery(cfg.Logger))
	r.Use(httpx.WithLogging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(httpx.WithMetrics(cfg.Metrics))
	}

	r.Get("/health", Health(cfg.ServiceName, time.Now))
	r.Get("/readyz", Ready(cfg.Checks, cfg.Logger))
	h.Register(r)

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
