// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package config

import (
	"errors"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// EnvPrefix is prepended to every environment override, e.g.
// POSTREC_EMBEDDING_PROVIDER.
const EnvPrefix = "POSTREC"

// Config is the top-level postrec configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Verbose   bool            `mapstructure:"verbose"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// StorageConfig selects and locates the vector index.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Metric  string `mapstructure:"metric"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string          `mapstructure:"provider"`
	Model      string          `mapstructure:"model"`
	Dimensions int             `mapstructure:"dimensions"`
	APIKey     string          `mapstructure:"api_key"`
	BaseURL    string          `mapstructure:"base_url"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig is a token bucket. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RecommendConfig controls query defaults.
type RecommendConfig struct {
	DefaultLimit  int    `mapstructure:"default_limit"`
	MaxLimit      int    `mapstructure:"max_limit"`
	QueryTemplate string `mapstructure:"query_template"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Listen      string          `mapstructure:"listen"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// LoggingConfig controls the process-wide slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so environment
// overrides are picked up by Unmarshal even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("verbose", false)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.metric", "cosine")

	v.SetDefault("embedding.provider", "hashing")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.rate_limit.requests_per_second", 0.0)
	v.SetDefault("embedding.rate_limit.burst", 1)

	v.SetDefault("recommend.default_limit", 50)
	v.SetDefault("recommend.max_limit", 200)
	v.SetDefault("recommend.query_template", "posts about: %s")

	v.SetDefault("server.listen", "127.0.0.1:7000")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit.requests_per_second", 10.0)
	v.SetDefault("server.rate_limit.burst", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// SetupEnv binds POSTREC_* environment variables, mapping "." to "_".
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, recerr.Wrapf(err, recerr.CodeConfigLoadReadFailure, "reading config %s", path)
		}
	}

	return FromViper(v)
}

// FromViper decodes, resolves and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeConfigParseInvalidFormat, "unmarshalling config")
	}

	cfg.resolve()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, recerr.Wrapf(errors.Join(errs...), recerr.CodeConfigValidateInvalidValue, "validating config")
	}

	return &cfg, nil
}

// resolve fills values derived from other keys.
func (c *Config) resolve() {
	if c.Storage.Path == "" && c.Storage.Backend == "sqlite" {
		c.Storage.Path = filepath.Join(c.DataDir, "posts.db")
	}
	if c.Verbose {
		c.Logging.Level = "debug"
	}
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateRecommend()...)
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func invalid(format string, args ...any) error {
	return recerr.Errorf(recerr.CodeConfigValidateInvalidValue, format, args...)
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func (c *Config) validateStorage() []error {
	var errs []error

	if !oneOf(c.Storage.Backend, "sqlite", "memory") {
		errs = append(errs, invalid("config: storage.backend must be one of [sqlite, memory], got %q", c.Storage.Backend))
	}
	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, invalid("config: storage.path must not be empty for the sqlite backend"))
	}
	if !oneOf(c.Storage.Metric, "cosine", "l2") {
		errs = append(errs, invalid("config: storage.metric must be one of [cosine, l2], got %q", c.Storage.Metric))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	if !oneOf(c.Embedding.Provider, "hashing", "openai", "google") {
		errs = append(errs, invalid("config: embedding.provider must be one of [hashing, openai, google], got %q", c.Embedding.Provider))
	} else if c.Embedding.Provider != "hashing" && c.Embedding.APIKey == "" {
		errs = append(errs, invalid("config: embedding.api_key is required for provider %q", c.Embedding.Provider))
	}

	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, invalid("config: embedding.dimensions must be greater than 0, got %d", c.Embedding.Dimensions))
	}

	errs = append(errs, validateRateLimit("embedding.rate_limit", c.Embedding.RateLimit)...)
	return errs
}

func (c *Config) validateRecommend() []error {
	var errs []error

	if c.Recommend.DefaultLimit <= 0 {
		errs = append(errs, invalid("config: recommend.default_limit must be greater than 0, got %d", c.Recommend.DefaultLimit))
	}
	if c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		errs = append(errs, invalid("config: recommend.max_limit (%d) must be at least recommend.default_limit (%d)",
			c.Recommend.MaxLimit, c.Recommend.DefaultLimit))
	}
	if strings.Count(c.Recommend.QueryTemplate, "%s") != 1 {
		errs = append(errs, invalid("config: recommend.query_template must contain exactly one %%s, got %q", c.Recommend.QueryTemplate))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, invalid("config: server.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Server.Listen)
		if err != nil {
			errs = append(errs, invalid("config: server.listen must be a valid host:port address, got %q", c.Server.Listen))
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				errs = append(errs, invalid("config: server.listen port must be a number, got %q", portStr))
			} else if port < 1 || port > 65535 {
				errs = append(errs, invalid("config: server.listen port must be between 1 and 65535, got %d", port))
			}
		}
	}

	errs = append(errs, validateRateLimit("server.rate_limit", c.Server.RateLimit)...)
	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	if !oneOf(strings.ToLower(c.Logging.Level), "debug", "info", "warn", "error") {
		errs = append(errs, invalid("config: logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	if !oneOf(c.Logging.Format, "text", "json") {
		errs = append(errs, invalid("config: logging.format must be one of [text, json], got %q", c.Logging.Format))
	}

	return errs
}

func validateRateLimit(key string, rl RateLimitConfig) []error {
	var errs []error
	if rl.RequestsPerSecond < 0 {
		errs = append(errs, invalid("config: %s.requests_per_second must not be negative, got %g", key, rl.RequestsPerSecond))
	}
	if rl.RequestsPerSecond > 0 && rl.Burst < 1 {
		errs = append(errs, invalid("config: %s.burst must be at least 1 when limiting is enabled, got %d", key, rl.Burst))
	}
	return errs
}
