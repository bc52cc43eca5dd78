package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/heartmarshall/aaed-cleaner/internal/adapter/sqlite"
	"github.com/heartmarshall/aaed-cleaner/internal/adapter/sqlite/records"
	"github.com/heartmarshall/aaed-cleaner/internal/config"
	"github.com/heartmarshall/aaed-cleaner/internal/service/review"
	"github.com/heartmarshall/aaed-cleaner/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, initializes
// the logger, opens the in-memory session database, wires the review
// service and REST transport, and serves HTTP until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	db, err := sqlite.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session database: %w", err)
	}
	defer db.Close()

	recordRepo := records.New(db)
	reviewSvc := review.NewService(logger, recordRepo, cfg.Review)

	router := rest.NewRouter(rest.RouterConfig{
		Logger:    logger,
		Review:    reviewSvc,
		Store:     recordRepo,
		CORS:      cfg.CORS,
		Version:   BuildVersion(),
		MaxUpload: cfg.Review.MaxUploadBytes,
	})

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Closing the database ends the working session; nothing persists,
	// the exported spreadsheet is the only artifact.
	logger.Info("stopped")
	return nil
}
