package authgw

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orbitalworks/foundry/internal/clock"
	"github.com/orbitalworks/foundry/internal/config"
	"go.uber.org/zap"
)

func TestAuthorizeResolvesIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			fmt.Fprint(w, `{"account":"acct-1","privileged":false}`)
		case "Bearer admin-token":
			fmt.Fprint(w, `{"account":"acct-admin","privileged":true}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	client := NewClient(config.Config{AuthURL: srv.URL}, clock.NewFakeClock(time.Now()), zap.NewNop())

	identity, err := client.Authorize(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if identity.AccountID != "acct-1" || identity.Privileged {
		t.Fatalf("unexpected identity %+v", identity)
	}

	identity, err = client.Authorize(context.Background(), "admin-token")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !identity.Privileged {
		t.Fatal("expected privileged identity")
	}

	if _, err := client.Authorize(context.Background(), "bad-token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := client.Authorize(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty credential, got %v", err)
	}
}

func TestServiceTokenIsCachedUntilExpiry(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	issued := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/token" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		issued++
		expires := clk.Now().Add(time.Hour).Unix()
		fmt.Fprintf(w, `{"token":"svc-%d","expires_at":%d}`, issued, expires)
	}))
	defer srv.Close()

	client := NewClient(config.Config{AuthURL: srv.URL}, clk, zap.NewNop())

	token, err := client.ServiceToken(context.Background())
	if err != nil {
		t.Fatalf("service token: %v", err)
	}
	if token != "svc-1" {
		t.Fatalf("expected svc-1, got %s", token)
	}

	// Within the expiry window the cached token is reused.
	token, err = client.ServiceToken(context.Background())
	if err != nil {
		t.Fatalf("service token: %v", err)
	}
	if token != "svc-1" || issued != 1 {
		t.Fatalf("expected cached token, got %s after %d issues", token, issued)
	}

	// Past expiry a fresh token is fetched.
	clk.Advance(2 * time.Hour)
	token, err = client.ServiceToken(context.Background())
	if err != nil {
		t.Fatalf("service token: %v", err)
	}
	if token != "svc-2" || issued != 2 {
		t.Fatalf("expected refreshed token, got %s after %d issues", token, issued)
	}
}

func TestServiceTokenUnavailableGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(config.Config{AuthURL: srv.URL}, clock.NewFakeClock(time.Now()), zap.NewNop())

	if _, err := client.ServiceToken(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
