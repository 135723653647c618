package config

import (
	"os"
	"strings"
)

// NewsAPIKeyEnv is the environment variable holding the upstream news credential.
// It is read on every request rather than captured at startup.
const NewsAPIKeyEnv = "NEWS_API_KEY"

// Config holds the server configuration
type Config struct {
	Environment   string
	LogJSON       bool
	ServerAddress string
	PublicURL     string // Origin used for auth redirects (e.g., http://localhost:8080)
	News          NewsConfig
	Auth          AuthConfig
	OAuth         OAuthConfig
	CORS          CORSConfig
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// NewsConfig holds upstream news provider configuration
type NewsConfig struct {
	BaseURL string
	Topic   string
}

// AuthConfig holds the remote auth provider configuration
type AuthConfig struct {
	ProviderURL string // GoTrue-compatible base URL, e.g. https://xyz.supabase.co/auth/v1
	AnonKey     string
	JWTSecret   string // HS256 secret the provider signs access tokens with
}

// OAuthConfig holds direct OAuth sign-in configuration
type OAuthConfig struct {
	Enabled      bool
	JWTSecret    string
	SecureCookie bool
	GitHub       OAuthClient
	Google       OAuthClient
	Facebook     OAuthClient
	Twitter      OAuthClient
}

// OAuthClient holds credentials for one OAuth provider
type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

// Configured reports whether the client has credentials
func (c OAuthClient) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	environment := getEnv("APP_ENV", "production")

	logJSON := environment != "development"
	if v := os.Getenv("LOG_JSON"); v != "" {
		logJSON = v == "true"
	}

	corsOrigins := getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")

	return &Config{
		Environment:   environment,
		LogJSON:       logJSON,
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		PublicURL:     strings.TrimSuffix(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		News: NewsConfig{
			BaseURL: strings.TrimSuffix(getEnv("NEWS_API_BASE_URL", "https://newsapi.org/v2"), "/"),
			Topic:   getEnv("NEWS_TOPIC", "football"),
		},
		Auth: AuthConfig{
			ProviderURL: strings.TrimSuffix(os.Getenv("AUTH_PROVIDER_URL"), "/"),
			AnonKey:     os.Getenv("AUTH_ANON_KEY"),
			JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		},
		OAuth: OAuthConfig{
			Enabled:      getEnv("OAUTH_ENABLED", "false") == "true",
			JWTSecret:    getEnv("OAUTH_JWT_SECRET", "change-me-in-production-secret-key"),
			SecureCookie: getEnv("OAUTH_SECURE_COOKIE", "false") == "true",
			GitHub: OAuthClient{
				ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
				ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			},
			Google: OAuthClient{
				ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
				ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			},
			Facebook: OAuthClient{
				ClientID:     os.Getenv("FACEBOOK_CLIENT_ID"),
				ClientSecret: os.Getenv("FACEBOOK_CLIENT_SECRET"),
			},
			Twitter: OAuthClient{
				ClientID:     os.Getenv("TWITTER_CLIENT_ID"),
				ClientSecret: os.Getenv("TWITTER_CLIENT_SECRET"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: parseCommaSeparatedList(corsOrigins),
		},
	}, nil
}

// NewsAPIKey returns the upstream news credential from the process environment
func NewsAPIKey() string {
	return strings.TrimSpace(os.Getenv(NewsAPIKeyEnv))
}

// parseCommaSeparatedList splits a comma-separated string into a slice
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return []string{}
	}

	items := strings.Split(s, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}

	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
