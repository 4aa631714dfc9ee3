package middleware

import (
	"net/http"

	"reqlog/internal/pipeline"
)

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in order: the first middleware is the outermost wrapper.
func Chain(handler http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// Guarded applies guards to an error-returning handler. The first guard runs first.
func Guarded(handler pipeline.Handler, guards ...pipeline.Guard) pipeline.Handler {
	for i := len(guards) - 1; i >= 0; i-- {
		handler = guards[i](handler)
	}
	return handler
}
