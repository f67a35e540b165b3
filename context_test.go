package goVerify

import (
	"context"
	"testing"
)

func TestClientIPContext(t *testing.T) {
	ctx := context.Background()

	if got := clientIPFromContext(ctx); got != "" {
		t.Fatalf("expected empty IP from a bare context, got %q", got)
	}

	ctx = WithClientIP(ctx, "203.0.113.7")
	if got := clientIPFromContext(ctx); got != "203.0.113.7" {
		t.Fatalf("expected the attached IP, got %q", got)
	}
}
