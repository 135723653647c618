package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pitchside/internal/domain"
	"github.com/pitchside/internal/news"
)

// DefaultBaseURL is the upstream provider's API root
const DefaultBaseURL = "https://newsapi.org/v2"

// maxBodySize caps how much of an upstream response is read
const maxBodySize = 10 << 20

// Article is one upstream article as returned by the everything endpoint
type Article struct {
	Source      Source  `json:"source"`
	Author      *string `json:"author"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	URLToImage  string  `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
	Content     string  `json:"content"`
}

// Source identifies the publisher of an upstream article
type Source struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

// SearchResponse is the upstream everything payload
type SearchResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

type errorBody struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client queries the upstream news provider
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an upstream client
func NewClient(baseURL string) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: 15 * time.Second}, baseURL)
}

// NewClientWithHTTPClient allows injecting the transport
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

func (c *Client) searchURL(apiKey, query string) string {
	q := url.Values{}
	q.Set("q", query)
	q.Set("apiKey", apiKey)
	return c.baseURL + "/everything?" + q.Encode()
}

// Raw performs the search and returns the status code and body untouched
func (c *Client) Raw(ctx context.Context, apiKey, query string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(apiKey, query), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pitchside/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries the credential; keep it out of the error.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, nil, domain.WrapNetworkOperation("query news provider", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, domain.WrapNetworkOperation("read news provider response", err)
	}
	return resp.StatusCode, body, nil
}

// Search queries the everything endpoint. A non-2xx response returns an
// upstream DomainError carrying the provider's status and message.
func (c *Client) Search(ctx context.Context, apiKey, query string) (*SearchResponse, error) {
	status, body, err := c.Raw(ctx, apiKey, query)
	if err != nil {
		return nil, err
	}

	if status < 200 || status > 299 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return nil, domain.WrapUpstreamError(status, eb.Message, nil)
	}

	var sr SearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to decode news provider response: %w", err)
	}
	return &sr, nil
}

// Minimal maps upstream articles to the served shape and validates the
// result; a single invalid article fails the whole list. A null title or
// description counts as missing, an empty one does not.
func Minimal(articles []Article) ([]news.Article, error) {
	raw := make([]news.RawArticle, 0, len(articles))
	for _, a := range articles {
		raw = append(raw, news.RawArticle{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Image:       a.URLToImage,
			PublishedAt: a.PublishedAt,
		})
	}
	return news.ParseArticles(raw)
}
