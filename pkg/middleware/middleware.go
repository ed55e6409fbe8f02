// Package middleware provides the HTTP middleware of the record store:
// correlation ids, CORS, request logging, and request metrics.
package middleware

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain is an ordered middleware stack. The first entry sees the request
// first.
type Chain []Middleware

// Use appends mw to the chain.
func (c *Chain) Use(mw ...Middleware) {
	*c = append(*c, mw...)
}

// Then wraps h with every middleware of the chain.
func (c Chain) Then(h http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i](h)
	}
	return h
}
