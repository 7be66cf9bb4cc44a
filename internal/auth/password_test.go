package auth

import (
	"context"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", hash)
	}
	if err := VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordRejectsEmptyHash(t *testing.T) {
	if err := VerifyPassword("", "anything"); err == nil {
		t.Fatal("expected error for empty hash")
	}
}

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := ContextWithIdentity(context.Background(), Identity{UserID: "user-1"})
	ident, ok := IdentityFromContext(ctx)
	if !ok || ident.UserID != "user-1" {
		t.Fatalf("unexpected identity: %+v ok=%v", ident, ok)
	}

	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("empty context should carry no identity")
	}
	if _, ok := IdentityFromContext(ContextWithIdentity(context.Background(), Identity{})); ok {
		t.Fatal("blank identity should not be retrievable")
	}
}

func TestTokenContextRoundTrip(t *testing.T) {
	ctx := ContextWithToken(context.Background(), "raw-token")
	token, ok := TokenFromContext(ctx)
	if !ok || token != "raw-token" {
		t.Fatalf("unexpected token: %q ok=%v", token, ok)
	}

	if _, ok := TokenFromContext(context.Background()); ok {
		t.Fatal("empty context should carry no token")
	}
	// Attaching an empty token is a no-op.
	if _, ok := TokenFromContext(ContextWithToken(context.Background(), "")); ok {
		t.Fatal("empty token should not be stored")
	}
}
