package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pitchside/internal/cache"
	"github.com/pitchside/internal/config"
	"github.com/pitchside/internal/session"
)

// fakeAuthService accepts only the "fresh" access token and hands it out
// on refresh
type fakeAuthService struct {
	refreshes atomic.Int32
}

func (f *fakeAuthService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/user":
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "u1", "email": "fan@example.com"})
	case r.URL.Path == "/token" && r.URL.Query().Get("grant_type") == "refresh_token":
		f.refreshes.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh",
			"refresh_token": "r2",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setupApp(t *testing.T, stored *session.Session) (*app, *fakeAuthService) {
	t.Helper()
	fake := &fakeAuthService{}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	backend := cache.NewMemoryBackend()
	if stored != nil {
		data, err := json.Marshal(stored)
		if err != nil {
			t.Fatal(err)
		}
		if err := cache.NewPreferences(backend).Set(context.Background(), session.KeySession, string(data)); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.ClientConfig{
		ServerURL:   "http://server.test",
		AuthURL:     ts.URL,
		CallbackURL: "http://server.test/auth/callback",
	}
	a := newApp(cfg, backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(a.Close)
	return a, fake
}

func TestRestoreSession_RefreshesRejectedToken(t *testing.T) {
	a, fake := setupApp(t, &session.Session{AccessToken: "stale", RefreshToken: "r1", ExpiresIn: 3600})

	if err := a.restoreSession(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fake.refreshes.Load() != 1 {
		t.Errorf("expected one refresh, got %d", fake.refreshes.Load())
	}
	st := a.store.Snapshot()
	if st.Session == nil || st.Session.AccessToken != "fresh" {
		t.Fatalf("expected refreshed session, got %+v", st.Session)
	}
	if st.User == nil || st.User.Email != "fan@example.com" {
		t.Errorf("expected user to be loaded, got %+v", st.User)
	}
	if st.SessionExpiresAt == 0 {
		t.Error("expected expiration to be tracked")
	}
}

func TestRequireSession_NoStoredSession(t *testing.T) {
	a, fake := setupApp(t, nil)

	err := a.requireSession(context.Background())
	if !errors.Is(err, errNotSignedIn) {
		t.Fatalf("expected errNotSignedIn, got %v", err)
	}
	if fake.refreshes.Load() != 0 {
		t.Error("expected no refresh without a stored session")
	}
}

func TestRequireSession_RefreshFails(t *testing.T) {
	// No refresh token, so the rejected access token cannot be renewed
	a, _ := setupApp(t, &session.Session{AccessToken: "stale"})

	err := a.requireSession(context.Background())
	if err == nil || err.Error() != "invalid JWT" {
		t.Fatalf("expected the provider's message, got %v", err)
	}
}
