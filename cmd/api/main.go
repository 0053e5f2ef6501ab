// Command api serves matches over HTTP and websockets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pefman/mechduel/internal/ai"
	"github.com/pefman/mechduel/internal/catalog"
	"github.com/pefman/mechduel/internal/config"
	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/logging"
	"github.com/pefman/mechduel/internal/server"
	"github.com/pefman/mechduel/internal/stats"
	"github.com/pefman/mechduel/internal/store"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	// Prefer Cloud Run's PORT env var when present
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctrl := game.NewController(cat, append(ai.Planners(), game.WithLogger(logger))...)
	srv := server.New(ctrl,
		server.WithStore(st),
		server.WithStats(stats.NewTracker()),
		server.WithLogger(logger),
		server.WithOrigin(cfg.AllowedOrigin),
		server.WithSeed(cfg.Seed),
	)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http: listening", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath),
			zap.String("version", buildVersion), zap.String("built", buildTime))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("http: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
