package edge

import (
	"os"
	"strings"
)

// Config holds edge configuration
type Config struct {
	ListenAddress   string // Address to listen on (e.g. :8787)
	UpstreamBaseURL string // News provider API root (e.g. https://newsapi.org/v2)
	Topic           string // Search query sent upstream
}

// LoadConfig loads edge configuration from environment
func LoadConfig() *Config {
	listenAddr := os.Getenv("EDGE_LISTEN_ADDRESS")
	if listenAddr == "" {
		listenAddr = ":8787"
	}
	baseURL := strings.TrimSuffix(os.Getenv("NEWS_API_BASE_URL"), "/")
	if baseURL == "" {
		baseURL = "https://newsapi.org/v2"
	}
	topic := os.Getenv("NEWS_TOPIC")
	if topic == "" {
		topic = "football"
	}
	return &Config{
		ListenAddress:   listenAddr,
		UpstreamBaseURL: baseURL,
		Topic:           topic,
	}
}
