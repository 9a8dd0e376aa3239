// Package middleware provides Handler-wrapping middleware for the http11
// package: structured logging, panic recovery, CORS, and request timing.
package middleware

import "github.com/watt-toolkit/shockwave/pkg/shockwave/http11"

// Middleware wraps a Handler to produce another Handler, the same
// decorator shape the teacher's web-framework layer uses for its own
// middleware stack, generalized to operate directly on http11's
// Request/FreshResponse pair instead of a higher-level routing Context.
type Middleware func(http11.Handler) http11.Handler

// Chain applies middlewares to h in order, so the first middleware listed
// is the outermost wrapper (the first to see the request).
func Chain(h http11.Handler, middlewares ...Middleware) http11.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
