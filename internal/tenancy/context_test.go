package tenancy

import (
	"context"
	"testing"
)

func TestWithOrgIDAndOrgIDFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithOrgID(ctx, "org-123")

	got, ok := OrgIDFromContext(ctx)
	if !ok {
		t.Fatalf("expected org id to be present")
	}
	if got != "org-123" {
		t.Fatalf("expected org-123, got %s", got)
	}
}

func TestOrgIDFromContext_EmptyOrMissing(t *testing.T) {
	ctx := context.Background()
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatalf("expected no org id on empty context")
	}

	ctx = WithOrgID(ctx, "")
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatalf("expected empty org id to be treated as missing")
	}
}
