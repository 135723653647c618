package config

import (
	"os"
	"path/filepath"
	"testing"
)

var serverEnvKeys = []string{
	"APP_ENV", "LOG_JSON", "SERVER_ADDRESS", "PUBLIC_URL", "NEWS_API_BASE_URL", "NEWS_TOPIC",
	"AUTH_PROVIDER_URL", "AUTH_ANON_KEY", "AUTH_JWT_SECRET", "OAUTH_ENABLED", "OAUTH_JWT_SECRET",
	"OAUTH_SECURE_COOKIE", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "CORS_ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t, serverEnvKeys...)

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Environment != "production" {
		t.Errorf("Expected Environment to be production, got %s", config.Environment)
	}

	if !config.LogJSON {
		t.Errorf("Expected LogJSON to default to true in production")
	}

	if config.ServerAddress != ":8080" {
		t.Errorf("Expected ServerAddress to be :8080, got %s", config.ServerAddress)
	}

	if config.PublicURL != "http://localhost:8080" {
		t.Errorf("Expected PublicURL to be http://localhost:8080, got %s", config.PublicURL)
	}

	if config.News.BaseURL != "https://newsapi.org/v2" {
		t.Errorf("Expected News.BaseURL to be https://newsapi.org/v2, got %s", config.News.BaseURL)
	}

	if config.News.Topic != "football" {
		t.Errorf("Expected News.Topic to be football, got %s", config.News.Topic)
	}

	if config.OAuth.Enabled {
		t.Errorf("Expected OAuth.Enabled to be false")
	}

	expectedOrigins := []string{"http://localhost:3000", "http://localhost:8080"}
	if len(config.CORS.AllowedOrigins) != len(expectedOrigins) {
		t.Fatalf("Expected %d CORS origins, got %d", len(expectedOrigins), len(config.CORS.AllowedOrigins))
	}
	for i, origin := range expectedOrigins {
		if config.CORS.AllowedOrigins[i] != origin {
			t.Errorf("Expected CORS origin %s at index %d, got %s", origin, i, config.CORS.AllowedOrigins[i])
		}
	}
}

func TestLoadWithCustomEnv(t *testing.T) {
	clearEnv(t, serverEnvKeys...)
	t.Setenv("APP_ENV", "development")
	t.Setenv("SERVER_ADDRESS", ":9000")
	t.Setenv("PUBLIC_URL", "https://news.example.com/")
	t.Setenv("AUTH_PROVIDER_URL", "https://abc.supabase.co/auth/v1/")
	t.Setenv("AUTH_JWT_SECRET", "provider-secret")
	t.Setenv("OAUTH_ENABLED", "true")
	t.Setenv("GITHUB_CLIENT_ID", "gh-id")
	t.Setenv("GITHUB_CLIENT_SECRET", "gh-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://example.com, ,https://app.example.com")

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.LogJSON {
		t.Errorf("Expected LogJSON to default to false in development")
	}
	if config.ServerAddress != ":9000" {
		t.Errorf("Expected ServerAddress :9000, got %s", config.ServerAddress)
	}
	if config.PublicURL != "https://news.example.com" {
		t.Errorf("Expected trailing slash trimmed from PublicURL, got %s", config.PublicURL)
	}
	if config.Auth.ProviderURL != "https://abc.supabase.co/auth/v1" {
		t.Errorf("Expected trailing slash trimmed from ProviderURL, got %s", config.Auth.ProviderURL)
	}
	if !config.OAuth.Enabled {
		t.Errorf("Expected OAuth.Enabled to be true")
	}
	if !config.OAuth.GitHub.Configured() {
		t.Errorf("Expected GitHub OAuth client to be configured")
	}
	if config.OAuth.Google.Configured() {
		t.Errorf("Expected Google OAuth client to be unconfigured")
	}
	if len(config.CORS.AllowedOrigins) != 2 {
		t.Errorf("Expected empty CORS entries to be dropped, got %v", config.CORS.AllowedOrigins)
	}
}

func TestNewsAPIKey_ReadAtCallTime(t *testing.T) {
	t.Setenv(NewsAPIKeyEnv, "")
	if got := NewsAPIKey(); got != "" {
		t.Errorf("Expected empty key, got %q", got)
	}

	t.Setenv(NewsAPIKeyEnv, "  secret  ")
	if got := NewsAPIKey(); got != "secret" {
		t.Errorf("Expected trimmed key secret, got %q", got)
	}
}

func TestLoadClient_FileAndEnv(t *testing.T) {
	clearEnv(t, "PITCHSIDE_SERVER_URL", "PITCHSIDE_AUTH_URL", "PITCHSIDE_ANON_KEY", "PITCHSIDE_CALLBACK_URL", "PITCHSIDE_CACHE_PATH")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "server_url: https://news.example.com/\nauth_url: https://abc.supabase.co/auth/v1\nanon_key: anon\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PITCHSIDE_ANON_KEY", "from-env")

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}

	if cfg.ServerURL != "https://news.example.com" {
		t.Errorf("Expected ServerURL https://news.example.com, got %s", cfg.ServerURL)
	}
	if cfg.AnonKey != "from-env" {
		t.Errorf("Expected env to override anon key, got %s", cfg.AnonKey)
	}
	if cfg.CallbackURL != "https://news.example.com/auth/callback" {
		t.Errorf("Expected derived callback URL, got %s", cfg.CallbackURL)
	}
	if cfg.CachePath == "" {
		t.Errorf("Expected default cache path")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadClient_MissingFile(t *testing.T) {
	clearEnv(t, "PITCHSIDE_SERVER_URL", "PITCHSIDE_AUTH_URL", "PITCHSIDE_ANON_KEY", "PITCHSIDE_CALLBACK_URL", "PITCHSIDE_CACHE_PATH")

	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("Expected default server URL, got %s", cfg.ServerURL)
	}
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected validation error without auth_url")
	}
}

func TestLoadClient_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server_url: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClient(path); err == nil {
		t.Fatal("expected parse error")
	}
}
