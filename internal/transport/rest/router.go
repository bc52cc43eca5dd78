package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/aaed-cleaner/internal/config"
	"github.com/heartmarshall/aaed-cleaner/internal/transport/middleware"
)

// RouterConfig collects the dependencies of the HTTP router.
type RouterConfig struct {
	Logger    *slog.Logger
	Review    ReviewService
	Store     Pinger
	CORS      config.CORSConfig
	Version   string
	MaxUpload int64
}

// Pinger is the store health-check dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the HTTP handler tree with the standard middleware
// chain applied: RequestID, Logger, Recovery, CORS.
func NewRouter(cfg RouterConfig) http.Handler {
	reviewHandler := NewReviewHandler(cfg.Review, cfg.Logger, cfg.MaxUpload)
	healthHandler := NewHealthHandler(cfg.Store, cfg.Version)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/dataset", reviewHandler.Upload)
	mux.HandleFunc("GET /api/session", reviewHandler.Session)
	mux.HandleFunc("POST /api/session/resolve", reviewHandler.Resolve)
	mux.HandleFunc("POST /api/session/manual", reviewHandler.BeginManual)
	mux.HandleFunc("DELETE /api/session/manual", reviewHandler.CancelManual)
	mux.HandleFunc("POST /api/session/manual/submit", reviewHandler.SubmitManual)
	mux.HandleFunc("POST /api/session/skip", reviewHandler.Skip)
	mux.HandleFunc("GET /api/export", reviewHandler.Export)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.HandleFunc("GET /ready", healthHandler.Ready)

	chain := middleware.Chain(
		middleware.RequestID,
		middleware.Logger(cfg.Logger),
		middleware.Recovery(cfg.Logger),
		middleware.CORS(cfg.CORS),
	)

	return chain(mux)
}
