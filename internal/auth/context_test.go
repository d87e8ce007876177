package auth

import (
	"context"
	"testing"
	"time"
)

func TestViewerContextRoundTrip(t *testing.T) {
	v := Authenticated(
		User{ID: "u1", Email: "a@b.c"},
		AccessToken{Digest: "d", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)},
	)
	ctx := ContextWithViewer(context.Background(), v)
	got, ok := ViewerFromContext(ctx)
	if !ok {
		t.Fatal("viewer not found in context")
	}
	if got.UserID() != "u1" {
		t.Fatalf("UserID = %q, want u1", got.UserID())
	}
}

func TestViewerFromContextMissing(t *testing.T) {
	v, ok := ViewerFromContext(context.Background())
	if ok {
		t.Fatal("expected no viewer in a bare context")
	}
	if v.IsAuthenticated() {
		t.Fatal("zero viewer must be anonymous")
	}
}

func TestAnonymousViewerAccessors(t *testing.T) {
	v := Anonymous()
	if v.IsAuthenticated() {
		t.Fatal("anonymous viewer reports authenticated")
	}
	if _, ok := v.User(); ok {
		t.Fatal("anonymous viewer exposed a user")
	}
	if _, ok := v.AccessToken(); ok {
		t.Fatal("anonymous viewer exposed a token")
	}
	if v.UserID() != "" {
		t.Fatal("anonymous viewer has a user id")
	}
}
