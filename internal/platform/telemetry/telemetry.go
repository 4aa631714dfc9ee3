package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ShutdownFunc releases telemetry resources.
type ShutdownFunc func(ctx context.Context) error

// Setup initializes OpenTelemetry with a Prometheus exporter.
// Returns a shutdown function that must be called on exit.
func Setup(ctx context.Context, serviceName string) (ShutdownFunc, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Metrics holds the OTel instruments recorded by the request pipeline.
type Metrics struct {
	httpRequestsTotal     otelmetric.Int64Counter
	httpRequestDuration   otelmetric.Float64Histogram
	authValidationsTotal  otelmetric.Int64Counter
	errorsTranslatedTotal otelmetric.Int64Counter
	capturedBytesTotal    otelmetric.Int64Counter
}

// NewMetrics creates and registers all pipeline metrics.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("reqlog")
	m := &Metrics{}
	var err error

	latencyBuckets := otelmetric.WithExplicitBucketBoundaries(
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
	)

	if m.httpRequestsTotal, err = meter.Int64Counter("reqlog_http_requests_total",
		otelmetric.WithDescription("Total HTTP requests")); err != nil {
		return nil, fmt.Errorf("creating http_requests_total: %w", err)
	}
	if m.httpRequestDuration, err = meter.Float64Histogram("reqlog_http_request_duration_seconds",
		otelmetric.WithDescription("HTTP request duration"), latencyBuckets); err != nil {
		return nil, fmt.Errorf("creating http_request_duration: %w", err)
	}
	if m.authValidationsTotal, err = meter.Int64Counter("reqlog_auth_validations_total",
		otelmetric.WithDescription("Total bearer token validations")); err != nil {
		return nil, fmt.Errorf("creating auth_validations_total: %w", err)
	}
	if m.errorsTranslatedTotal, err = meter.Int64Counter("reqlog_errors_translated_total",
		otelmetric.WithDescription("Handler failures converted to error responses")); err != nil {
		return nil, fmt.Errorf("creating errors_translated_total: %w", err)
	}
	if m.capturedBytesTotal, err = meter.Int64Counter("reqlog_captured_bytes_total",
		otelmetric.WithDescription("Body bytes buffered for logging")); err != nil {
		return nil, fmt.Errorf("creating captured_bytes_total: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, durationSec float64) {
	attrs := otelmetric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(status),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, durationSec, attrs)
}

// RecordAuthValidation records a bearer token validation result.
func (m *Metrics) RecordAuthValidation(ctx context.Context, result string) {
	m.authValidationsTotal.Add(ctx, 1, otelmetric.WithAttributes(resultAttr(result)))
}

// RecordTranslatedError records a failure turned into an error response.
func (m *Metrics) RecordTranslatedError(ctx context.Context, kind string, status int) {
	m.errorsTranslatedTotal.Add(ctx, 1, otelmetric.WithAttributes(
		kindAttr(kind),
		statusAttr(status),
	))
}

// RecordCapturedBytes records body bytes buffered in the given direction
// ("request" or "response").
func (m *Metrics) RecordCapturedBytes(ctx context.Context, direction string, n int) {
	m.capturedBytesTotal.Add(ctx, int64(n), otelmetric.WithAttributes(directionAttr(direction)))
}
