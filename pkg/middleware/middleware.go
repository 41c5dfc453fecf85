// Package middleware provides reusable net/http middleware and their
// configuration types. Everything here operates on plain http.Handler
// values, so the package works with any router or framework.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware to handler so that the first element of
// mws observes the request first.
func Chain(handler http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}
