package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pitchside/internal/session"
)

func TestExpiryPrompter_ShowsOncePerExpiry(t *testing.T) {
	var buf bytes.Buffer
	listener := expiryPrompter(&buf)

	for _, expired := range []bool{false, true, true, false, true} {
		listener(session.State{IsSessionExpired: expired})
	}

	if got := strings.Count(buf.String(), expiredTitle); got != 2 {
		t.Errorf("expected prompt twice, got %d:\n%s", got, buf.String())
	}
}

func TestReadLines(t *testing.T) {
	lines := readLines(context.Background(), strings.NewReader("status\n q \n"))

	var got []string
	for l := range lines {
		got = append(got, l)
	}
	if strings.Join(got, ",") != "status,q" {
		t.Errorf("unexpected lines %v", got)
	}
}

func TestHandleWatchInput_RefreshesExpiredSession(t *testing.T) {
	a, fake := setupApp(t, &session.Session{AccessToken: "fresh", RefreshToken: "r1", ExpiresAt: 1})
	ctx := context.Background()

	if err := a.restoreSession(ctx); err != nil {
		t.Fatal(err)
	}
	waitExpired(t, a.store)

	var buf bytes.Buffer
	handleWatchInput(ctx, a.store, &buf)

	if fake.refreshes.Load() != 1 {
		t.Errorf("expected one refresh, got %d", fake.refreshes.Load())
	}
	if a.store.Snapshot().IsSessionExpired {
		t.Error("expected expired flag to be cleared")
	}
	if !strings.Contains(buf.String(), "Session refreshed") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func waitExpired(t *testing.T, store *session.Store) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if store.Snapshot().IsSessionExpired {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("session never marked expired")
}
