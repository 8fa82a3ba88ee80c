package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the imd CLI.
type Config struct {
	// CivitaiToken is the catalog API token sent as a bearer token on
	// every request. Downloads of gated models fail without it.
	CivitaiToken string `yaml:"civitai_token"`

	// HuggingFaceToken is reserved for hub downloads.
	HuggingFaceToken string `yaml:"huggingface_token"`

	// CachePath is the location of the cache database. Defaults to
	// cache.db inside Dir().
	CachePath string `yaml:"cache_path"`

	Proxy   ProxyConfig   `yaml:"proxy"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// ProxyConfig defines an optional outbound proxy.
type ProxyConfig struct {
	Protocol string `yaml:"protocol"` // "http", "https" or "socks5"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Enabled reports whether a proxy is configured.
func (p ProxyConfig) Enabled() bool {
	return p.Host != ""
}

// URL assembles the proxy URL, or nil when no proxy is configured.
func (p ProxyConfig) URL() (*url.URL, error) {
	if !p.Enabled() {
		return nil, nil
	}
	protocol := p.Protocol
	if protocol == "" {
		protocol = "http"
	}
	proxy := &url.URL{
		Scheme: protocol,
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
	}
	if p.Username != "" {
		if p.Password != "" {
			proxy.User = url.UserPassword(p.Username, p.Password)
		} else {
			proxy.User = url.User(p.Username)
		}
	}
	return proxy, nil
}

// BackoffConfig defines retry behavior for downloads and catalog
// requests.
type BackoffConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	Multiplier      float64       `yaml:"multiplier"`
	MaxAttempts     int           `yaml:"max_attempts"`
	AttemptTimeout  time.Duration `yaml:"attempt_timeout"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Backoff: BackoffConfig{
			InitialInterval: 500 * time.Millisecond,
			Multiplier:      1.5,
			MaxAttempts:     3,
			AttemptTimeout:  5 * time.Minute,
		},
	}
}

// Dir returns the configuration directory, ~/.config/imd, creating it
// if necessary.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	dir := filepath.Join(base, "imd")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// DefaultPath returns the default config file path inside Dir().
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	CivitaiToken     string            `yaml:"civitai_token"`
	HuggingFaceToken string            `yaml:"huggingface_token"`
	CachePath        string            `yaml:"cache_path"`
	Proxy            ProxyConfig       `yaml:"proxy"`
	Backoff          yamlBackoffConfig `yaml:"backoff"`
}

type yamlBackoffConfig struct {
	InitialInterval string  `yaml:"initial_interval"`
	Multiplier      float64 `yaml:"multiplier"`
	MaxAttempts     int     `yaml:"max_attempts"`
	AttemptTimeout  string  `yaml:"attempt_timeout"`
}

// LoadFromFile loads configuration from a YAML file, layered over the
// defaults. A missing file is not an error; the defaults are returned.
func LoadFromFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	if yc.CivitaiToken != "" {
		cfg.CivitaiToken = yc.CivitaiToken
	}
	if yc.HuggingFaceToken != "" {
		cfg.HuggingFaceToken = yc.HuggingFaceToken
	}
	if yc.CachePath != "" {
		cfg.CachePath = yc.CachePath
	}
	cfg.Proxy = yc.Proxy
	if yc.Backoff.InitialInterval != "" {
		d, err := time.ParseDuration(yc.Backoff.InitialInterval)
		if err != nil {
			return Config{}, fmt.Errorf("parse backoff.initial_interval: %w", err)
		}
		cfg.Backoff.InitialInterval = d
	}
	if yc.Backoff.Multiplier != 0 {
		cfg.Backoff.Multiplier = yc.Backoff.Multiplier
	}
	if yc.Backoff.MaxAttempts != 0 {
		cfg.Backoff.MaxAttempts = yc.Backoff.MaxAttempts
	}
	if yc.Backoff.AttemptTimeout != "" {
		d, err := time.ParseDuration(yc.Backoff.AttemptTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse backoff.attempt_timeout: %w", err)
		}
		cfg.Backoff.AttemptTimeout = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the IMD_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("IMD_CIVITAI_TOKEN"); v != "" {
		c.CivitaiToken = v
	}
	if v := os.Getenv("IMD_HUGGINGFACE_TOKEN"); v != "" {
		c.HuggingFaceToken = v
	}
	if v := os.Getenv("IMD_CACHE_PATH"); v != "" {
		c.CachePath = v
	}
	if v := os.Getenv("IMD_PROXY_PROTOCOL"); v != "" {
		c.Proxy.Protocol = v
	}
	if v := os.Getenv("IMD_PROXY_HOST"); v != "" {
		c.Proxy.Host = v
	}
	if v := os.Getenv("IMD_PROXY_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse IMD_PROXY_PORT: %w", err)
		}
		c.Proxy.Port = n
	}
	if v := os.Getenv("IMD_PROXY_USERNAME"); v != "" {
		c.Proxy.Username = v
	}
	if v := os.Getenv("IMD_PROXY_PASSWORD"); v != "" {
		c.Proxy.Password = v
	}
	if v := os.Getenv("IMD_BACKOFF_INITIAL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse IMD_BACKOFF_INITIAL_INTERVAL: %w", err)
		}
		c.Backoff.InitialInterval = d
	}
	if v := os.Getenv("IMD_BACKOFF_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse IMD_BACKOFF_MULTIPLIER: %w", err)
		}
		c.Backoff.Multiplier = f
	}
	if v := os.Getenv("IMD_BACKOFF_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse IMD_BACKOFF_MAX_ATTEMPTS: %w", err)
		}
		c.Backoff.MaxAttempts = n
	}
	if v := os.Getenv("IMD_BACKOFF_ATTEMPT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse IMD_BACKOFF_ATTEMPT_TIMEOUT: %w", err)
		}
		c.Backoff.AttemptTimeout = d
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Backoff.MaxAttempts <= 0 {
		return errors.New("config: backoff.max_attempts must be positive")
	}
	if c.Backoff.Multiplier <= 1 {
		return errors.New("config: backoff.multiplier must be greater than 1")
	}
	if c.Backoff.InitialInterval <= 0 {
		return errors.New("config: backoff.initial_interval must be positive")
	}
	if c.Backoff.AttemptTimeout <= 0 {
		return errors.New("config: backoff.attempt_timeout must be positive")
	}
	if c.Proxy.Enabled() {
		if c.Proxy.Port <= 0 || c.Proxy.Port > 65535 {
			return errors.New("config: proxy.port must be a valid port")
		}
		switch c.Proxy.Protocol {
		case "", "http", "https", "socks5":
		default:
			return fmt.Errorf("config: unsupported proxy protocol %q", c.Proxy.Protocol)
		}
	}
	return nil
}

// Save writes the configuration to path as YAML. Tokens are stored in
// the clear, so the file is created readable by the owner only.
// Durations are written in the same "500ms" form LoadFromFile reads.
func (c *Config) Save(path string) error {
	yc := yamlConfig{
		CivitaiToken:     c.CivitaiToken,
		HuggingFaceToken: c.HuggingFaceToken,
		CachePath:        c.CachePath,
		Proxy:            c.Proxy,
		Backoff: yamlBackoffConfig{
			InitialInterval: c.Backoff.InitialInterval.String(),
			Multiplier:      c.Backoff.Multiplier,
			MaxAttempts:     c.Backoff.MaxAttempts,
			AttemptTimeout:  c.Backoff.AttemptTimeout.String(),
		},
	}
	data, err := yaml.Marshal(&yc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ResolveCachePath returns the configured cache database path, or the
// default cache.db inside Dir() when unset.
func (c *Config) ResolveCachePath() (string, error) {
	if c.CachePath != "" {
		return c.CachePath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}
