// Package app assembles the reqlog HTTP handler from configuration.
package app

import (
	"log/slog"
	"net/http"

	"reqlog/internal/items"
	"reqlog/internal/pipeline"
	"reqlog/internal/pipeline/middleware"
	"reqlog/internal/platform/config"
	"reqlog/internal/platform/telemetry"
)

// New returns the root handler: /metrics is served directly, everything else
// goes through the request ID, body limit and capture layers to the items API.
// Capture wraps the whole router so unmatched routes are logged too; routes
// report their errors to it through HandleErrors.
// Bearer auth is enforced only when cfg.Auth.Secret is set. m may be nil.
func New(cfg config.Config, logger *slog.Logger, store *items.Store, m *telemetry.Metrics) http.Handler {
	capture := middleware.NewCapture(logger, m, middleware.CaptureOptions{
		ExposeErrorDetails: cfg.Capture.ExposeErrorDetails,
		MaxLoggedBody:      cfg.Capture.MaxLoggedBody,
		RedactHeaders:      cfg.Capture.RedactHeaders,
	})

	var guards []pipeline.Guard
	if cfg.Auth.Secret != "" {
		guards = append(guards, middleware.RequireBearer([]byte(cfg.Auth.Secret), cfg.Auth.PublicPaths, m))
	}

	api := items.NewServer(store, func(h pipeline.Handler) http.Handler {
		return middleware.HandleErrors(middleware.Guarded(h, guards...))
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.MetricsHandler())
	mux.Handle("/", middleware.Chain(
		api,
		middleware.Metrics(m),
		middleware.RequestID,
		middleware.MaxBodySize(cfg.MaxBodyBytes),
		capture.Middleware(),
	))
	return mux
}
