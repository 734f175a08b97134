package httpapi

import (
	"testing"
	"time"
)

func TestConfigure_DefaultsWhenNonPositive(t *testing.T) {
	defer Configure(Settings{})
	Configure(Settings{MaxBodyBytes: -1, RefreshTimeout: -time.Second})
	s := currentSettings()
	if s.MaxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", s.MaxBodyBytes)
	}
	if s.RefreshTimeout != 30*time.Second {
		t.Fatalf("expected 30s, got %v", s.RefreshTimeout)
	}
}

func TestConfigure_PositiveSetsValue(t *testing.T) {
	defer Configure(Settings{})
	Configure(Settings{MaxBodyBytes: 1234, RefreshTimeout: 3 * time.Second})
	s := currentSettings()
	if s.MaxBodyBytes != 1234 || s.RefreshTimeout != 3*time.Second {
		t.Fatalf("settings = %+v", s)
	}
}

func TestConfigure_CopiesCORSSlices(t *testing.T) {
	defer Configure(Settings{})
	origins := []string{"http://a"}
	Configure(Settings{CORS: CORS{Enabled: true, AllowedOrigins: origins}})
	origins[0] = "http://changed"
	s := currentSettings()
	if !s.CORS.Enabled || s.CORS.AllowedOrigins[0] != "http://a" {
		t.Fatalf("cors options = %+v", s.CORS)
	}
}
