package news

import (
	"strings"
	"testing"

	"github.com/pitchside/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestParseArticles(t *testing.T) {
	valid := RawArticle{
		Title:       strPtr("Cup final"),
		Description: strPtr("Preview"),
		URL:         "https://example.com/final",
		PublishedAt: "2024-05-25T14:00:00Z",
	}

	tests := []struct {
		name    string
		mutate  func(a *RawArticle)
		wantErr string
	}{
		{name: "valid without image", mutate: func(a *RawArticle) {}},
		{name: "valid with image", mutate: func(a *RawArticle) { a.Image = "https://cdn.example.com/i.png" }},
		{name: "fractional seconds", mutate: func(a *RawArticle) { a.PublishedAt = "2024-05-25T14:00:00.123Z" }},
		{name: "empty description", mutate: func(a *RawArticle) { a.Description = strPtr("") }},
		{name: "empty title", mutate: func(a *RawArticle) { a.Title = strPtr("") }},
		{name: "missing title", mutate: func(a *RawArticle) { a.Title = nil }, wantErr: "articles[0].title"},
		{name: "missing description", mutate: func(a *RawArticle) { a.Description = nil }, wantErr: "articles[0].description"},
		{name: "missing url", mutate: func(a *RawArticle) { a.URL = "" }, wantErr: "articles[0].url"},
		{name: "relative url", mutate: func(a *RawArticle) { a.URL = "/final" }, wantErr: "articles[0].url"},
		{name: "bad image", mutate: func(a *RawArticle) { a.Image = "nope" }, wantErr: "articles[0].image"},
		{name: "missing publishedAt", mutate: func(a *RawArticle) { a.PublishedAt = "" }, wantErr: "articles[0].publishedAt"},
		{name: "date only publishedAt", mutate: func(a *RawArticle) { a.PublishedAt = "2024-05-25" }, wantErr: "articles[0].publishedAt"},
		{name: "offset publishedAt", mutate: func(a *RawArticle) { a.PublishedAt = "2024-05-25T14:00:00+01:00" }, wantErr: "articles[0].publishedAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			got, err := ParseArticles([]RawArticle{a})
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(got) != 1 || got[0].Description != *a.Description {
					t.Errorf("unexpected articles %+v", got)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got != nil {
				t.Errorf("expected no partial list, got %+v", got)
			}
			if !domain.IsValidationError(err) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !strings.Contains(domain.PublicMessage(err), tt.wantErr) {
				t.Errorf("expected %q in %q", tt.wantErr, domain.PublicMessage(err))
			}
		})
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantErr   bool
	}{
		{
			name:      "empty description accepted",
			body:      `{"articles":[{"title":"Derby","description":"","url":"https://example.com/a","publishedAt":"2024-03-01T12:00:00Z"}]}`,
			wantCount: 1,
		},
		{
			name:      "empty list",
			body:      `{"articles":[]}`,
			wantCount: 0,
		},
		{
			name:    "absent description",
			body:    `{"articles":[{"title":"Derby","url":"https://example.com/a","publishedAt":"2024-03-01T12:00:00Z"}]}`,
			wantErr: true,
		},
		{
			name:    "null title",
			body:    `{"articles":[{"title":null,"description":"d","url":"https://example.com/a","publishedAt":"2024-03-01T12:00:00Z"}]}`,
			wantErr: true,
		},
		{name: "missing articles", body: `{}`, wantErr: true},
		{name: "not json", body: `nope`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", resp)
				}
				if !domain.IsValidationError(err) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(resp.Articles) != tt.wantCount {
				t.Errorf("expected %d articles, got %d", tt.wantCount, len(resp.Articles))
			}
		})
	}
}

func TestArticlePublished(t *testing.T) {
	a := Article{PublishedAt: "2024-03-01T12:00:00Z"}
	if got := a.Published(); got.Year() != 2024 || got.Hour() != 12 {
		t.Errorf("unexpected parsed time %v", got)
	}
}

func TestDedupe(t *testing.T) {
	in := []Article{
		{URL: "https://a"},
		{URL: "https://b"},
		{URL: "https://a"},
	}
	out := Dedupe(in)
	if len(out) != 2 || out[0].URL != "https://a" || out[1].URL != "https://b" {
		t.Errorf("unexpected dedupe result %+v", out)
	}
}
