package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/devaloi/toastbox/internal/hub"
	"github.com/devaloi/toastbox/internal/metrics"
	"github.com/devaloi/toastbox/internal/middleware"
	"github.com/devaloi/toastbox/internal/store"
)

// RouterConfig holds the dependencies of the HTTP API.
type RouterConfig struct {
	Hub          *hub.Hub
	History      store.History
	HistoryLimit int
	Logger       *slog.Logger
}

// NewRouter builds the HTTP API and WebSocket endpoint.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = 50
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.Metrics)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.CORS)

	r.Get("/health", Health())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/ws", ServeWS(cfg.Hub, cfg.Logger))

	r.Route("/api/providers", func(r chi.Router) {
		r.Get("/", ListProviders(cfg.Hub))
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", ProviderInfo(cfg.Hub))
			r.Get("/toasts", ListToasts(cfg.Hub))
			r.Post("/toasts", AddToast(cfg.Hub, cfg.Logger))
			r.Delete("/toasts/{id}", CloseToast(cfg.Hub))
			if cfg.History != nil {
				r.Get("/history", History(cfg.History, cfg.HistoryLimit))
			}
		})
	})

	return r
}
