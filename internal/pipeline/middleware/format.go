package middleware

import (
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"reqlog/internal/pipeline"
)

const redactedValue = "[REDACTED]"

func (c *Capture) logRequest(r *http.Request) {
	body, err := ReadRequestBody(r)
	if err != nil {
		c.logger.LogAttrs(r.Context(), slog.LevelWarn, "request body incomplete",
			slog.String("error", err.Error()),
			slog.String("request_id", pipeline.RequestIDFromContext(r.Context())),
		)
	}
	if c.metrics != nil {
		c.metrics.RecordCapturedBytes(r.Context(), "request", len(body))
	}

	attrs := []slog.Attr{
		slog.String("type", "Request"),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("headers", c.headers(r.Header)),
	}
	attrs = append(attrs, c.bodyAttrs(body)...)
	attrs = append(attrs, slog.String("request_id", pipeline.RequestIDFromContext(r.Context())))
	c.logger.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
}

func (c *Capture) logResponse(r *http.Request, bw *bufferedWriter, elapsed time.Duration) {
	body := ResponseBody(bw.buf)
	if c.metrics != nil {
		c.metrics.RecordCapturedBytes(r.Context(), "response", len(body))
	}

	attrs := []slog.Attr{
		slog.String("type", "Response"),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status_code", bw.status),
		slog.Any("headers", c.headers(bw.Header())),
	}
	attrs = append(attrs, c.bodyAttrs(body)...)
	attrs = append(attrs,
		slog.Float64("duration_ms", float64(elapsed.Microseconds())/1000.0),
		slog.String("request_id", pipeline.RequestIDFromContext(r.Context())),
	)
	c.logger.LogAttrs(r.Context(), slog.LevelInfo, "response", attrs...)
}

// headers returns h with the values of redacted headers masked. h itself is
// never modified.
func (c *Capture) headers(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return http.Header{}
	}
	for name := range out {
		if _, ok := c.redact[http.CanonicalHeaderKey(name)]; ok {
			out[name] = []string{redactedValue}
		}
	}
	return out
}

func (c *Capture) bodyAttrs(body string) []slog.Attr {
	if c.opts.MaxLoggedBody > 0 && len(body) > c.opts.MaxLoggedBody {
		return []slog.Attr{
			slog.String("body", truncate(body, c.opts.MaxLoggedBody)),
			slog.Bool("body_truncated", true),
			slog.Int("body_size", len(body)),
		}
	}
	return []slog.Attr{slog.String("body", body)}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	cut := n
	for cut > 0 && cut > n-utf8.UTFMax && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if !utf8.RuneStart(s[cut]) {
		// Not valid UTF-8 around the cut; keep the byte limit.
		return s[:n]
	}
	return s[:cut]
}
