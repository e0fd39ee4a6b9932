package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "PHOTODIARY"
	defaultBaseURL        = "http://localhost:8080"
	defaultTimeoutSeconds = 30
	defaultUsername       = "admin"
	defaultDatabasePath   = "photodiary.db"
	defaultLogLevel       = "info"
	defaultDevServerAddr  = "localhost:8080"
)

// AppConfig captures runtime configuration for the diary client.
type AppConfig struct {
	BaseURL      string
	Timeout      time.Duration
	Username     string
	Origin       string
	DatabasePath string
	LogLevel     string

	// DevServerAddress is the listen address of the local development API.
	DevServerAddress string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("server.base_url", defaultBaseURL)
	configViper.SetDefault("server.timeout_seconds", defaultTimeoutSeconds)
	configViper.SetDefault("auth.username", defaultUsername)
	configViper.SetDefault("auth.origin", "")
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("devserver.address", defaultDevServerAddr)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		BaseURL:      strings.TrimRight(strings.TrimSpace(configViper.GetString("server.base_url")), "/"),
		Timeout:      time.Duration(configViper.GetInt("server.timeout_seconds")) * time.Second,
		Username:     strings.TrimSpace(configViper.GetString("auth.username")),
		Origin:       strings.TrimRight(strings.TrimSpace(configViper.GetString("auth.origin")), "/"),
		DatabasePath: configViper.GetString("database.path"),
		LogLevel:     configViper.GetString("log.level"),

		DevServerAddress: strings.TrimSpace(configViper.GetString("devserver.address")),
	}
	if cfg.Origin == "" {
		cfg.Origin = cfg.BaseURL
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server.base_url must be an absolute URL: %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("server.timeout_seconds must be positive")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
