package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"searchparser/search"
	"searchparser/transport"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SEARCHPARSER_"

type Config struct {
	Engine  string            `yaml:"engine"`
	URL     string            `yaml:"url"`
	Fetcher string            `yaml:"fetcher"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
	Proxy   transport.Proxy   `yaml:"proxy"`
	Tor     TorConfig         `yaml:"tor"`
	Cache   CacheConfig       `yaml:"cache"`
	Retry   RetryConfig       `yaml:"retry"`
	Log     LogConfig         `yaml:"log"`
	APIPort int               `yaml:"api_port"`
}

type CacheConfig struct {
	// Backend is "memory" or "bolt".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// TorConfig enables circuit rotation between retries. The proxy must
// point at the SOCKS port of the same daemon.
type TorConfig struct {
	ControlAddr string `yaml:"control_addr"`
	Password    string `yaml:"password"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		Engine:  "duckduckgo",
		Fetcher: "http",
		Timeout: 30 * time.Second,
		Cache: CacheConfig{
			Backend: "memory",
			Path:    ".searchparser/cache.db",
		},
		Retry: RetryConfig{
			MaxAttempts:  1,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
		},
		Log: LogConfig{
			Level: "warn",
		},
		APIPort: 8080,
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// any), a .env file in the working directory (if any) and SEARCHPARSER_*
// environment variables, in that order. The result is not validated; call
// Validate once command line overrides have been applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Engine, "ENGINE")
	setString(&c.URL, "URL")
	setString(&c.Fetcher, "FETCHER")
	setString(&c.Proxy.Address, "PROXY")
	setString(&c.Proxy.Username, "PROXY_USER")
	setString(&c.Proxy.Password, "PROXY_PASSWORD")
	setString(&c.Tor.ControlAddr, "TOR_CONTROL")
	setString(&c.Tor.Password, "TOR_PASSWORD")
	setString(&c.Cache.Backend, "CACHE_BACKEND")
	setString(&c.Cache.Path, "CACHE_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")

	if err := setDuration(&c.Timeout, "TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Retry.InitialDelay, "RETRY_INITIAL_DELAY"); err != nil {
		return err
	}
	if err := setDuration(&c.Retry.MaxDelay, "RETRY_MAX_DELAY"); err != nil {
		return err
	}
	if err := setInt(&c.Retry.MaxAttempts, "RETRY_MAX_ATTEMPTS"); err != nil {
		return err
	}
	if err := setInt(&c.APIPort, "API_PORT"); err != nil {
		return err
	}
	if v, ok := lookupEnv("LOG_DEVELOPMENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sLOG_DEVELOPMENT: %w", envPrefix, err)
		}
		c.Log.Development = b
	}
	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Engine) == "" {
		return fmt.Errorf("engine is required")
	}
	if err := c.Proxy.Validate(); err != nil {
		return fmt.Errorf("proxy: %w", err)
	}
	if c.Tor.ControlAddr != "" && !strings.HasPrefix(c.Proxy.Address, "socks5") {
		return fmt.Errorf("tor.control_addr requires a socks5 proxy")
	}
	switch c.Fetcher {
	case "http", "colly":
	default:
		return fmt.Errorf("fetcher must be http or colly, got %q", c.Fetcher)
	}
	switch c.Cache.Backend {
	case "memory":
	case "bolt":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or bolt, got %q", c.Cache.Backend)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("retry.max_attempts must be between 1 and 10, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.MaxDelay > 0 && c.Retry.InitialDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry.initial_delay exceeds retry.max_delay")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("api_port out of range: %d", c.APIPort)
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func setString(dst *string, key string) {
	if v, ok := lookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}

// RetryPolicy converts the retry section for the search orchestrator.
func (c *Config) RetryPolicy() search.RetryPolicy {
	return search.RetryPolicy{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: c.Retry.InitialDelay,
		MaxDelay:     c.Retry.MaxDelay,
		Multiplier:   2,
	}
}

// Header returns the configured header overrides.
func (c *Config) Header() http.Header {
	h := http.Header{}
	for k, v := range c.Headers {
		h.Set(k, v)
	}
	return h
}

// ProxyOrNil returns the proxy when an address is configured.
func (c *Config) ProxyOrNil() *transport.Proxy {
	if !c.Proxy.Enabled() {
		return nil
	}
	p := c.Proxy
	return &p
}
