// Package config handles application configuration from environment variables
package config

import "github.com/caarlos0/env/v11"

// Config holds all application configuration
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/kolwatch"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	AppSecret   string `env:"APP_SECRET" envDefault:"dev-secret-change-me"`

	Google GoogleConfig `envPrefix:"GOOGLE_"`

	// Auto-approval thresholds for community submissions.
	AutoApproveMinFollowers int64 `env:"AUTO_APPROVE_MIN_FOLLOWERS" envDefault:"1000"`
	AutoApproveMinScore     int   `env:"AUTO_APPROVE_MIN_SCORE" envDefault:"70"`
}

// GoogleConfig holds the OAuth client used for social login.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Load reads configuration from environment variables
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// HasGoogle returns true if Google OAuth login is configured
func (c Config) HasGoogle() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}
