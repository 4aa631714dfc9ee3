package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"reqlog/internal/domain"
	"reqlog/internal/pipeline"
	"reqlog/internal/platform/telemetry"
)

// CaptureOptions tunes what Capture writes to logs and clients.
type CaptureOptions struct {
	// ExposeErrorDetails puts the failure's stack trace in the ErrorDetails
	// field of error responses. When false the field is null.
	ExposeErrorDetails bool
	// MaxLoggedBody truncates logged bodies to this many bytes. Zero logs
	// bodies in full. Client-visible bytes are never truncated.
	MaxLoggedBody int
	// RedactHeaders lists header names whose values are masked in logs.
	RedactHeaders []string
}

// Capture logs every request and response with their bodies and turns
// handler failures into a JSON error envelope. The response is buffered
// until the handler returns so that the logged body is exactly what the
// client receives.
type Capture struct {
	logger  *slog.Logger
	metrics *telemetry.Metrics
	opts    CaptureOptions
	redact  map[string]struct{}
}

// NewCapture creates a Capture. A nil logger means slog.Default().
// The metrics parameter is optional; pass nil to skip metric recording.
func NewCapture(logger *slog.Logger, m *telemetry.Metrics, opts CaptureOptions) *Capture {
	if logger == nil {
		logger = slog.Default()
	}
	redact := make(map[string]struct{}, len(opts.RedactHeaders))
	for _, h := range opts.RedactHeaders {
		redact[http.CanonicalHeaderKey(h)] = struct{}{}
	}
	return &Capture{
		logger:  logger,
		metrics: m,
		opts:    opts,
		redact:  redact,
	}
}

// Wrap returns an http.Handler that runs next behind the capture buffer and
// the error boundary.
func (c *Capture) Wrap(next pipeline.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		buf := acquireBuffer()
		defer releaseBuffer(buf)
		bw := newBufferedWriter(w, buf)

		c.logRequest(r)

		slot := &failureSlot{}
		err := invoke(next, bw.Writer(), r.WithContext(context.WithValue(r.Context(), failureKey{}, slot)))
		if err == nil {
			err = slot.err
		}
		if err != nil {
			c.translate(bw, r, domain.WithStack(err))
		}

		if bw.hijacked {
			c.logger.LogAttrs(r.Context(), slog.LevelDebug, "connection hijacked",
				slog.String("path", r.URL.Path),
				slog.String("request_id", pipeline.RequestIDFromContext(r.Context())),
			)
			return
		}

		c.logResponse(r, bw, time.Since(start))
		if err := bw.copyTo(w); err != nil {
			c.logger.LogAttrs(r.Context(), slog.LevelWarn, "writing buffered response",
				slog.String("error", err.Error()),
				slog.String("request_id", pipeline.RequestIDFromContext(r.Context())),
			)
		}
	})
}

// Middleware returns Capture as a Middleware for plain http.Handler chains.
// Only panics are translated there, since http.Handler cannot return errors.
func (c *Capture) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return c.Wrap(pipeline.Adapt(next))
	}
}

type failureKey struct{}

// failureSlot receives the error of a handler mounted with HandleErrors
// somewhere below a Capture, such as a single route of a router.
type failureSlot struct {
	err error
}

// HandleErrors mounts an error-returning handler in a plain http.Handler tree
// that sits behind Capture. A returned error is handed to the nearest
// enclosing Capture, which writes the error response once the tree returns.
// Outside any Capture the error is raised as a panic.
func HandleErrors(h pipeline.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.ServeHTTP(w, r)
		if err == nil {
			return
		}
		slot, ok := r.Context().Value(failureKey{}).(*failureSlot)
		if !ok {
			panic(err)
		}
		if slot.err == nil {
			slot.err = domain.WithStack(err)
		}
	})
}
