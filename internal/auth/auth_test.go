package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticAPIKeyValidatorParsing(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k-frontend:frontend, k-ops:ops")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	identity, ok := validator.Validate(context.Background(), "k-frontend")
	if !ok {
		t.Fatal("expected key to be valid")
	}
	if identity.Label != "frontend" {
		t.Fatalf("Label = %q", identity.Label)
	}
	if _, ok := validator.Validate(context.Background(), "unknown"); ok {
		t.Fatal("unknown key must not validate")
	}
}

func TestStaticAPIKeyValidatorRejectsBadSpec(t *testing.T) {
	for _, spec := range []string{"no-label", "k1:", ":frontend", "k1:a:b"} {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("spec %q should not parse", spec)
		}
	}
}

func TestStaticAPIKeyValidatorEmptySpecRejectsEverything(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	if _, ok := validator.Validate(context.Background(), "anything"); ok {
		t.Fatal("empty spec must reject all keys")
	}
}

func TestMiddlewareRequiresKey(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:frontend")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	mw := Middleware(slog.New(slog.NewJSONHandler(io.Discard, nil)), validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareInjectsIdentity(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:frontend")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	mw := Middleware(nil, validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("expected identity in context")
		}
		if identity.Label != "frontend" {
			t.Fatalf("Label = %q", identity.Label)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
	req.Header.Set("X-API-Key", "k1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:frontend")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	mw := Middleware(nil, validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rr.Code)
	}
}
