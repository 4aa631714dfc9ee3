package middleware

import (
	"net/http"
	"runtime/debug"

	"reqlog/internal/domain"
	"reqlog/internal/pipeline"
)

// invoke runs next and converts a panic into a domain error carrying the
// panicking goroutine's stack. http.ErrAbortHandler keeps its net/http
// meaning and is re-raised.
func invoke(next pipeline.Handler, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			err = domain.FromPanic(p, debug.Stack())
		}
	}()
	return next.ServeHTTP(w, r)
}
