package middleware

import (
	"net/http"
)

// MaxBodySize returns middleware that limits request body size to maxBytes.
// Reads past the limit fail with *http.MaxBytesError. A maxBytes of zero or
// less disables the limit.
//
// Install it outside Capture so the limit applies to the logged read too.
func MaxBodySize(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
