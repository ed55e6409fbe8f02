package middleware

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
)

// CorrelationHeader carries the request correlation id between services.
const CorrelationHeader = "X-Correlation-Id"

type correlationKey struct{}

// Correlation returns middleware that reuses the inbound correlation id or
// assigns a new ULID, echoes it on the response, and stores it on the context.
func Correlation() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(CorrelationHeader)
			if id == "" {
				id = ulid.Make().String()
			}
			w.Header().Set(CorrelationHeader, id)
			ctx := context.WithValue(r.Context(), correlationKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CorrelationID returns the id stored by Correlation, or "" outside a request.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
