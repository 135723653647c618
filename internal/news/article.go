package news

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pitchside/internal/domain"
)

// Article is the minimal article shape served by the proxy
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Image       string `json:"image,omitempty"`
	PublishedAt string `json:"publishedAt"`
}

// Published parses PublishedAt
func (a Article) Published() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, a.PublishedAt)
	return t
}

// RawArticle is an article as received. Title and description are pointers
// so that an absent or null value fails while an empty string passes.
type RawArticle struct {
	Title       *string `json:"title" validate:"required"`
	Description *string `json:"description" validate:"required"`
	URL         string  `json:"url" validate:"required,url"`
	Image       string  `json:"image,omitempty" validate:"omitempty,url"`
	PublishedAt string  `json:"publishedAt" validate:"required,iso8601"`
}

// Response is the proxy's JSON body
type Response struct {
	Articles []Article `json:"articles"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func articleValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
			return isUTCInstant(fl.Field().String())
		})
	})
	return validate
}

// isUTCInstant accepts RFC 3339 instants in UTC with a Z suffix; numeric
// offsets are rejected
func isUTCInstant(s string) bool {
	if !strings.HasSuffix(s, "Z") {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

// ParseArticles validates raw articles and converts them to the served
// shape. Any violation rejects the whole list.
func ParseArticles(raw []RawArticle) ([]Article, error) {
	v := articleValidator()
	out := make([]Article, 0, len(raw))
	for i := range raw {
		if err := v.Struct(raw[i]); err != nil {
			return nil, domain.WrapValidationError("articles", describe(i, err))
		}
		out = append(out, Article{
			Title:       *raw[i].Title,
			Description: *raw[i].Description,
			URL:         raw[i].URL,
			Image:       raw[i].Image,
			PublishedAt: raw[i].PublishedAt,
		})
	}
	return out, nil
}

// ParseResponse decodes and validates a {"articles":[...]} body
func ParseResponse(data []byte) (*Response, error) {
	var body struct {
		Articles []RawArticle `json:"articles"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, domain.WrapValidationError("response", err)
	}
	if body.Articles == nil {
		return nil, domain.WrapValidationError("articles", errors.New("articles: required"))
	}
	articles, err := ParseArticles(body.Articles)
	if err != nil {
		return nil, err
	}
	return &Response{Articles: articles}, nil
}

func describe(index int, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("articles[%d]: %w", index, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("articles[%d].%s: failed %q", index, jsonName(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func jsonName(field string) string {
	switch field {
	case "URL":
		return "url"
	case "PublishedAt":
		return "publishedAt"
	}
	return strings.ToLower(field)
}

// Dedupe drops repeated URLs, keeping first occurrences in order
func Dedupe(articles []Article) []Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}
