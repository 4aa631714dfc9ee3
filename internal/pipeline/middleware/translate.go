package middleware

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"reqlog/internal/domain"
	"reqlog/internal/pipeline"
)

// fallbackErrorBody is written if the envelope cannot be encoded.
var fallbackErrorBody = []byte(`{"Success":false,"Message":"internal error","ErrorDetails":null,"Payload":null}`)

// StatusFor maps a failure kind to the status code written to the client.
func StatusFor(kind domain.Kind) int {
	if kind == domain.KindAccessDenied {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// translate replaces whatever the downstream handler buffered with the JSON
// error envelope for err.
func (c *Capture) translate(bw *bufferedWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)
	trace := domain.Trace(err)

	c.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
		slog.String("error", err.Error()),
		slog.String("kind", kind.String()),
		slog.Int("status_code", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", trace),
		slog.String("request_id", pipeline.RequestIDFromContext(r.Context())),
	)
	if c.metrics != nil {
		c.metrics.RecordTranslatedError(r.Context(), kind.String(), status)
	}

	resp := domain.ErrorResponse{
		Success: false,
		Message: err.Error(),
	}
	if c.opts.ExposeErrorDetails {
		resp.ErrorDetails = &trace
	}

	body, encErr := json.Marshal(resp)
	if encErr != nil {
		c.logger.Error("encoding error response", "error", encErr)
		body = fallbackErrorBody
	}

	bw.reset(status)
	h := bw.Header()
	h.Del("Content-Length")
	h.Del("Content-Encoding")
	h.Set("Content-Type", "application/json")
	bw.buf.Write(body)
}
