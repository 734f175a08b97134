// Package cli implements the spacelens command line: the HTTP service and
// one-shot calls against the remote segmentation and 3D service.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spacelens/internal/config"
	"spacelens/pkg/types"
)

// Options are the persistent flags shared by every command.
type Options struct {
	ConfigPath string
	LogLevel   string
	BaseURL    string
	Token      string
	PhotosDir  string
	Addr       string
}

// Main runs the command tree with os.Args and exits non-zero on error.
func Main() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the optional config file, SPACELENS_* variables
// and finally explicit flags, then validates the result.
func loadConfig(opts *Options) (config.Config, error) {
	var cfg config.Config
	if opts.ConfigPath != "" {
		c, err := config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	cfg.FillDefaults()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Token != "" {
		cfg.Token = opts.Token
	}
	if opts.PhotosDir != "" {
		cfg.PhotosDir = opts.PhotosDir
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger from a validated config.
func newLogger(cfg config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if cfg.LogFormat == "json" {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return l.Level(lvl).With().Timestamp().Str("app", "spacelens").Logger()
}

// parsePoint parses "x,y" or "x,y,label" in source pixels. The label
// defaults to foreground.
func parsePoint(s string) (types.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return types.Point{}, fmt.Errorf("point %q: want x,y or x,y,label", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return types.Point{}, fmt.Errorf("point %q: %w", s, err)
		}
		n[i] = v
	}
	if n[0] < 0 || n[1] < 0 {
		return types.Point{}, fmt.Errorf("point %q: coordinates must be non-negative", s)
	}
	p := types.Point{X: n[0], Y: n[1], Label: types.Foreground}
	if len(parts) == 3 {
		if n[2] != 0 && n[2] != 1 {
			return types.Point{}, fmt.Errorf("point %q: label must be 0 or 1", s)
		}
		p.Label = types.Label(n[2])
	}
	return p, nil
}
