package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := BuildApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	cfg := app.Config
	slog.Info("starting levelranks server",
		"environment", cfg.Environment,
		"profile", cfg.Profile,
		"address", cfg.Server.Address,
		"storage_adapter", cfg.Storage.Adapter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Session.Run(gctx) })
	if app.Analytics != nil {
		g.Go(func() error {
			app.Analytics.Start(gctx)
			return nil
		})
	}
	g.Go(func() error {
		slog.Info("server listening", "address", cfg.Server.Address)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return app.Server.Shutdown(shutdownCtx)
	})

	exit := 0
	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		exit = 1
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Session.Close(closeCtx); err != nil {
		slog.Error("failed to write players on shutdown", "error", err)
		exit = 1
	}
	if err := exportAnalytics(app.Analytics, cfg.Analytics.ExportDir); err != nil {
		slog.Error("analytics export failed", "error", err)
	}
	if err := closeStorage(app.Storage); err != nil {
		slog.Error("failed to close storage", "error", err)
	}

	slog.Info("server stopped")
	if exit != 0 {
		os.Exit(exit)
	}
}
