package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pitchside/internal/domain"
)

const upstreamOK = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {"source": {"id": null, "name": "BBC"}, "author": null, "title": "Derby ends level",
     "description": "A late equaliser", "url": "https://example.com/derby",
     "urlToImage": "https://example.com/derby.jpg", "publishedAt": "2024-03-01T12:00:00Z", "content": "..."},
    {"source": {"id": "espn", "name": "ESPN"}, "author": "A. Writer", "title": "Transfer window",
     "description": "Deadline day", "url": "https://example.com/transfers",
     "urlToImage": null, "publishedAt": "2024-03-01T18:30:00Z", "content": "..."}
  ]
}`

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithHTTPClient(server.Client(), server.URL)
}

func TestSearch_Success(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/everything" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "football" {
			t.Errorf("expected q=football, got %q", got)
		}
		if got := r.URL.Query().Get("apiKey"); got != "k" {
			t.Errorf("expected apiKey=k, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstreamOK))
	})

	resp, err := client.Search(context.Background(), "k", "football")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(resp.Articles))
	}
	if resp.Articles[1].URLToImage != "" {
		t.Errorf("expected null urlToImage to decode empty, got %q", resp.Articles[1].URLToImage)
	}

	articles, err := Minimal(resp.Articles)
	if err != nil {
		t.Fatalf("Minimal: %v", err)
	}
	if articles[0].Image != "https://example.com/derby.jpg" {
		t.Errorf("expected image from urlToImage, got %q", articles[0].Image)
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message forwarded", http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`, "Your API key is invalid."},
		{"missing message falls back", http.StatusTooManyRequests, `{"status":"error"}`, "News API error"},
		{"non-json body falls back", http.StatusBadGateway, `<html>bad gateway</html>`, "News API error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Search(context.Background(), "k", "football")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrUpstreamFailed) {
				t.Errorf("expected upstream error, got %v", err)
			}
			if got := domain.UpstreamStatus(err); got != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, got)
			}
			if got := domain.PublicMessage(err); got != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, got)
			}
		})
	}
}

func TestMinimal_MissingRequiredFieldFailsWholeList(t *testing.T) {
	articles := []Article{
		{Title: strPtr("ok"), Description: strPtr("d"), URL: "https://example.com/1", PublishedAt: "2024-03-01T12:00:00Z"},
		{Title: strPtr("null description"), URL: "https://example.com/2", PublishedAt: "2024-03-01T12:00:00Z"},
	}

	got, err := Minimal(articles)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got != nil {
		t.Errorf("expected no partial list, got %+v", got)
	}
	if !domain.IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestMinimal_EmptyDescriptionKept(t *testing.T) {
	articles := []Article{
		{Title: strPtr("Derby"), Description: strPtr(""), URL: "https://example.com/1", PublishedAt: "2024-03-01T12:00:00Z"},
	}

	got, err := Minimal(articles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Description != "" || got[0].Title != "Derby" {
		t.Errorf("unexpected articles %+v", got)
	}
}

func strPtr(s string) *string { return &s }

func TestRaw_Passthrough(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(upstreamOK))
	})

	status, body, err := client.Raw(context.Background(), "k", "football")
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusOK || string(body) != upstreamOK {
		t.Errorf("expected untouched body, got status %d body %q", status, body)
	}
}

func TestRaw_NetworkErrorHidesCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewClientWithHTTPClient(&http.Client{}, baseURL)
	_, _, err := client.Raw(context.Background(), "super-secret-key", "football")
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsInfrastructureError(err) {
		t.Errorf("expected network error, got %v", err)
	}
	if strings.Contains(err.Error(), "super-secret-key") {
		t.Errorf("credential leaked into error: %v", err)
	}
}
