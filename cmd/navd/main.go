package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/storenav/internal/content"
	"finitefield.org/storenav/internal/handlers"
	"finitefield.org/storenav/internal/platform/config"
	"finitefield.org/storenav/internal/platform/observability"
	"finitefield.org/storenav/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("navd")

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newHandler(cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storenav listening",
			zap.Bool("dev", cfg.Site.Dev),
			zap.String("sections_file", cfg.Content.SectionsFile),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newHandler wires the content sources, views and middleware stack.
func newHandler(cfg config.Config, logger *zap.Logger) http.Handler {
	ttl := cfg.Content.CacheTTL
	if cfg.Site.Dev {
		// reread content on every request while editing
		ttl = 0
	}
	sections := content.FallbackSource{
		Primary:  content.NewFileSource(cfg.Content.SectionsFile, content.WithCacheTTL(ttl)),
		Fallback: content.DefaultSections,
	}

	navHandlers := handlers.NewNavHandlers(sections,
		handlers.WithPages(content.NewPageStore(cfg.Content.PagesDir)),
		handlers.WithNavOptions(view.NavOptions{
			Label:         cfg.Nav.Label,
			SelectedClass: cfg.Nav.SelectedClass,
		}),
		handlers.WithSiteName(cfg.Site.Name),
	)

	return handlers.NewRouter(navHandlers, handlers.WithMiddlewares(
		observability.InjectLoggerMiddleware(logger),
		observability.TraceMiddleware(cfg.Trace.ProjectID),
		observability.RequestLoggerMiddleware,
		observability.RecoveryMiddleware(logger),
	))
}
