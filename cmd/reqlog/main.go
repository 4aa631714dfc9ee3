package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"reqlog/internal/app"
	"reqlog/internal/items"
	"reqlog/internal/platform/config"
	"reqlog/internal/platform/server"
	"reqlog/internal/platform/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	// Logging
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	shutdown, err := telemetry.Setup(context.Background(), "reqlog")
	if err != nil {
		slog.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		slog.Error("metrics initialization failed", "error", err)
		os.Exit(1)
	}

	store := items.NewStore("widget", "gadget")
	srv := server.New(cfg.Addr, app.New(cfg, logger, store, metrics), logger)

	slog.Info("reqlog starting",
		"addr", cfg.Addr,
		"auth", cfg.Auth.Secret != "",
		"expose_error_details", cfg.Capture.ExposeErrorDetails,
		"max_body_bytes", cfg.MaxBodyBytes,
	)

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
	}

	if err := shutdown(context.Background()); err != nil {
		slog.Error("telemetry shutdown error", "error", err)
	}
}
