// Package correlation propagates a per-request correlation ID through a
// context.Context, the Go equivalent of the original service's ContextVar
// + logging.Filter combination.
package correlation

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey struct{}

// HeaderName is the HTTP header a correlation ID is read from and echoed
// back on.
const HeaderName = "X-Correlation-ID"

// New generates a fresh correlation ID.
func New() string {
	return uuid.NewString()
}

// WithID returns a context carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the correlation ID stored in ctx, or "" if none was
// set.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// FromRequest reads the correlation ID from the incoming request header,
// generating one if the caller didn't supply it.
func FromRequest(r *http.Request) string {
	if id := r.Header.Get(HeaderName); id != "" {
		return id
	}
	return New()
}
