// Package config loads runtime parameters from a file and SPACELENS_*
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spacelens/internal/common/fsutil"
	"spacelens/internal/points"
)

// Config holds runtime parameters for the service and CLI.
// Zero values mean "unspecified" and are replaced by FillDefaults.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// BaseURL is the remote segmentation and 3D service.
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`
	Token   string `json:"token" yaml:"token" toml:"token"`
	// PhotosDir is the local photo library directory.
	PhotosDir      string `json:"photos_dir" yaml:"photos_dir" toml:"photos_dir"`
	RequestTimeout string `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	MaxPoints      int    `json:"max_points" yaml:"max_points" toml:"max_points"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	MaxBodyBytes       int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`

	// RedisAddr enables the Redis generation status store when set.
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password" toml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" toml:"redis_db"`
	RedisTTL      string `json:"redis_ttl" yaml:"redis_ttl" toml:"redis_ttl"`
}

// Defaults returns a Config with every default applied.
func Defaults() Config {
	var c Config
	c.FillDefaults()
	return c
}

// FillDefaults replaces unspecified fields with defaults.
func (c *Config) FillDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "120s"
	}
	if c.MaxPoints <= 0 {
		c.MaxPoints = points.DefaultMaxPoints
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.RedisTTL == "" {
		c.RedisTTL = "168h"
	}
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPACELENS_"

// ApplyEnv overrides fields from SPACELENS_* variables found via lookup
// (normally os.LookupEnv). List values are comma separated.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = splitList(v)
		}
	}
	var err error
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && err == nil {
			n, perr := strconv.Atoi(strings.TrimSpace(v))
			if perr != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, name, perr)
				return
			}
			*dst = n
		}
	}

	str("ADDR", &c.Addr)
	str("BASE_URL", &c.BaseURL)
	str("TOKEN", &c.Token)
	str("PHOTOS_DIR", &c.PhotosDir)
	str("REQUEST_TIMEOUT", &c.RequestTimeout)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("REDIS_TTL", &c.RedisTTL)
	list("CORS_ALLOWED_ORIGINS", &c.CORSAllowedOrigins)
	list("CORS_ALLOWED_METHODS", &c.CORSAllowedMethods)
	list("CORS_ALLOWED_HEADERS", &c.CORSAllowedHeaders)
	integer("MAX_POINTS", &c.MaxPoints)
	integer("REDIS_DB", &c.RedisDB)

	if v, ok := lookup(EnvPrefix + "MAX_BODY_BYTES"); ok && err == nil {
		n, perr := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if perr != nil {
			err = fmt.Errorf("%sMAX_BODY_BYTES: %w", EnvPrefix, perr)
		} else {
			c.MaxBodyBytes = n
		}
	}
	if v, ok := lookup(EnvPrefix + "CORS_ENABLED"); ok && err == nil {
		b, perr := strconv.ParseBool(strings.TrimSpace(v))
		if perr != nil {
			err = fmt.Errorf("%sCORS_ENABLED: %w", EnvPrefix, perr)
		} else {
			c.CORSEnabled = b
		}
	}
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks a defaulted Config.
func (c Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if c.BaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := c.StatusTTL(); err != nil {
		return err
	}
	if c.MaxPoints < 1 || c.MaxPoints > points.DefaultMaxPoints {
		return fmt.Errorf("max_points must be between 1 and %d, got %d", points.DefaultMaxPoints, c.MaxPoints)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	return nil
}

// Timeout parses RequestTimeout.
func (c Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("request_timeout: invalid duration %q", c.RequestTimeout)
	}
	return d, nil
}

// StatusTTL parses RedisTTL. Zero keeps statuses forever.
func (c Config) StatusTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.RedisTTL)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("redis_ttl: invalid duration %q", c.RedisTTL)
	}
	return d, nil
}

// PhotosPath resolves PhotosDir to an absolute directory.
func (c Config) PhotosPath() (string, error) {
	if c.PhotosDir == "" {
		return "", fmt.Errorf("photos_dir is not set")
	}
	return fsutil.ResolveDir(c.PhotosDir)
}
