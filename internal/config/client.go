package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClientConfig holds configuration for the interactive client
type ClientConfig struct {
	ServerURL   string `yaml:"server_url"`
	AuthURL     string `yaml:"auth_url"`
	AnonKey     string `yaml:"anon_key"`
	CallbackURL string `yaml:"callback_url"`
	CachePath   string `yaml:"cache_path"`
}

// DefaultClientConfigPath returns ~/.config/pitchside/config.yaml
func DefaultClientConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "pitchside.yaml")
	}
	return filepath.Join(dir, "pitchside", "config.yaml")
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "data", "pitchside.db")
	}
	return filepath.Join(dir, "pitchside", "pitchside.db")
}

// LoadClient reads the YAML file at path (a missing file is not an error),
// then applies PITCHSIDE_* environment overrides and defaults.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	overrideFromEnv(&cfg.ServerURL, "PITCHSIDE_SERVER_URL")
	overrideFromEnv(&cfg.AuthURL, "PITCHSIDE_AUTH_URL")
	overrideFromEnv(&cfg.AnonKey, "PITCHSIDE_ANON_KEY")
	overrideFromEnv(&cfg.CallbackURL, "PITCHSIDE_CALLBACK_URL")
	overrideFromEnv(&cfg.CachePath, "PITCHSIDE_CACHE_PATH")

	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8080"
	}
	cfg.ServerURL = strings.TrimSuffix(cfg.ServerURL, "/")
	cfg.AuthURL = strings.TrimSuffix(cfg.AuthURL, "/")
	if cfg.CallbackURL == "" {
		cfg.CallbackURL = cfg.ServerURL + "/auth/callback"
	}
	if cfg.CachePath == "" {
		cfg.CachePath = defaultCachePath()
	}

	return cfg, nil
}

// Validate reports configuration the client cannot run without
func (c *ClientConfig) Validate() error {
	if c.AuthURL == "" {
		return errors.New("auth_url is required (set it in the config file or PITCHSIDE_AUTH_URL)")
	}
	return nil
}

func overrideFromEnv(field *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*field = v
	}
}
