package api

import (
	"net/http"

	"github.com/dom/gifbox/internal/api/handlers"
	"github.com/dom/gifbox/internal/api/middleware"
	"github.com/dom/gifbox/internal/config"
	"github.com/dom/gifbox/internal/dispatch"
	"github.com/dom/gifbox/internal/logging"
	"github.com/dom/gifbox/internal/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(dispatcher *dispatch.Dispatcher, cfg *config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(logging.Middleware(log.Named("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	rpcHandler := handlers.NewRPCHandler(dispatcher, log)
	wsHandler := handlers.NewWebSocketHandler(dispatcher, cfg.AllowedOrigins, log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/rpc", rpcHandler.Handle)

		r.With(middleware.QueryToken).Get("/ws", wsHandler.Handle)
	})

	return r
}
