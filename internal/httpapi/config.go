package httpapi

import (
	"sync"
	"time"
)

const (
	defaultMaxBodyBytes   int64 = 1 << 20
	defaultRefreshTimeout       = 30 * time.Second
)

// CORS configures the optional cross-origin middleware. It is only installed
// when Enabled is set.
type CORS struct {
	Enabled        bool
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Settings tune the HTTP layer. Non-positive sizes and durations select the
// defaults (1 MiB bodies, 30s model list refresh).
type Settings struct {
	MaxBodyBytes   int64
	RefreshTimeout time.Duration
	CORS           CORS
}

var (
	settingsMu sync.RWMutex
	settings   = Settings{}.normalized()
)

func (s Settings) normalized() Settings {
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = defaultMaxBodyBytes
	}
	if s.RefreshTimeout <= 0 {
		s.RefreshTimeout = defaultRefreshTimeout
	}
	s.CORS.AllowedOrigins = append([]string(nil), s.CORS.AllowedOrigins...)
	s.CORS.AllowedMethods = append([]string(nil), s.CORS.AllowedMethods...)
	s.CORS.AllowedHeaders = append([]string(nil), s.CORS.AllowedHeaders...)
	return s
}

// Configure replaces the HTTP settings. Muxes built afterwards pick up the
// CORS options; body limits and timeouts apply to every later request.
func Configure(s Settings) {
	n := s.normalized()
	settingsMu.Lock()
	settings = n
	settingsMu.Unlock()
}

func currentSettings() Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}
