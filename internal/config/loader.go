package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// decoders maps a file extension to a strict decoder: unknown keys are an
// error so a misspelled option is not silently ignored.
var decoders = map[string]func(r io.Reader, cfg *Config) error{
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".json": func(r io.Reader, cfg *Config) error {
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	},
	".toml": func(r io.Reader, cfg *Config) error {
		return toml.NewDecoder(r).DisallowUnknownFields().Decode(cfg)
	},
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Load reads a configuration file chosen by extension (.yaml/.yml, .json,
// .toml). The result is not defaulted or validated.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	decode, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return cfg, fmt.Errorf("unsupported config extension: %s", filepath.Ext(path))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := decode(bytes.NewReader(b), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
