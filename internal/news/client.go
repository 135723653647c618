package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pitchside/internal/apipaths"
	"github.com/pitchside/internal/cache"
	"github.com/pitchside/internal/domain"
)

const (
	// CacheKey is the fixed key the article list is cached under
	CacheKey = "news_cache"
	// CacheTTL is how long a fetched list is served without a network call
	CacheTTL = 5 * time.Minute

	maxBodySize = 10 << 20
)

// ErrFetchFailed is the only error GetFootballNews returns; details are logged
var ErrFetchFailed = domain.NewDomainError("NEWS_FETCH_FAILED", "Failed to fetch news. Please try again later.", nil)

// Client fetches articles from the backend proxy through a TTL cache
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *slog.Logger
}

// NewClient creates a news client for the backend at baseURL
func NewClient(baseURL string, c *cache.Cache, logger *slog.Logger) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: 15 * time.Second}, baseURL, c, logger)
}

// NewClientWithHTTPClient allows injecting the transport
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, c *cache.Cache, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      c,
		logger:     logger,
	}
}

// GetFootballNews returns cached articles while fresh, otherwise fetches,
// validates and re-caches them.
func (c *Client) GetFootballNews(ctx context.Context) ([]Article, error) {
	resp, err := c.fetchNews(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to fetch news", "error", err)
		return nil, ErrFetchFailed
	}
	return resp.Articles, nil
}

func (c *Client) fetchNews(ctx context.Context) (*Response, error) {
	data, ok, err := c.cache.Get(ctx, CacheKey)
	if err != nil {
		return nil, err
	}
	if ok {
		resp, err := ParseResponse(data)
		if err != nil {
			return nil, fmt.Errorf("cached payload: %w", err)
		}
		c.logger.DebugContext(ctx, "serving news from cache", "articles", len(resp.Articles))
		return resp, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apipaths.News, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapNetworkOperation("fetch news", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error! status: %d", httpResp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, domain.WrapNetworkOperation("read news response", err)
	}
	resp, err := ParseResponse(data)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.cache.Put(ctx, CacheKey, encoded); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched news from proxy", "articles", len(resp.Articles))
	return resp, nil
}
