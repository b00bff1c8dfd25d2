package gateway

import (
	"log/slog"
	"net/http"

	"github.com/dejobratic/orderflow/internal/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	ServiceName   string
	AllowedOrigin string
	Logger        *slog.Logger
	// Metrics is optional.
	Metrics *httpx.Metrics
}

// NewRouter registers the proxy's route table in order behind CORS and the
// shared middleware, plus a locally answered /health.
func NewRouter(p *Proxy, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.WithRecovery(cfg.Logger))
	r.Use(httpx.WithLogging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(httpx.WithMetrics(cfg.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": cfg.ServiceName})
	})

	for _, route := range p.Routes() {
		r.Method(route.Method, route.Pattern, route.Handler)
	}

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
