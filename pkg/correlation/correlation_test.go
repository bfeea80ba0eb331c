package correlation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithID_RoundTrips(t *testing.T) {
	ctx := WithID(context.Background(), "abc-123")
	if got := FromContext(ctx); got != "abc-123" {
		t.Errorf("FromContext = %q, want %q", got, "abc-123")
	}
}

func TestFromContext_EmptyWhenUnset(t *testing.T) {
	if got := FromContext(context.Background()); got != "" {
		t.Errorf("FromContext = %q, want empty", got)
	}
}

func TestFromRequest_UsesExistingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderName, "caller-supplied-id")

	if got := FromRequest(req); got != "caller-supplied-id" {
		t.Errorf("FromRequest = %q, want %q", got, "caller-supplied-id")
	}
}

func TestFromRequest_GeneratesWhenAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	id := FromRequest(req)
	if id == "" {
		t.Fatal("expected a generated correlation ID, got empty string")
	}
}
