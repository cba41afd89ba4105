package config

import (
	"os"
	"testing"
	"time"
)

// helper to clear all OPSCALE_ env vars before each test
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"OPSCALE_TARGET_NAMESPACES",
		"OPSCALE_ADMIN_SCHEME",
		"OPSCALE_ADMIN_PORT",
		"OPSCALE_ADMIN_INSECURE_TLS",
		"OPSCALE_REQUEST_TIMEOUT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if len(cfg.TargetNamespaces) != 1 || cfg.TargetNamespaces[0] != "default" {
		t.Errorf("TargetNamespaces = %v, want [default]", cfg.TargetNamespaces)
	}
	if cfg.AdminScheme != "http" {
		t.Errorf("AdminScheme = %q, want %q", cfg.AdminScheme, "http")
	}
	if cfg.AdminPort != 7001 {
		t.Errorf("AdminPort = %d, want 7001", cfg.AdminPort)
	}
	if cfg.AdminInsecureTLS {
		t.Error("AdminInsecureTLS should default to false")
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPSCALE_TARGET_NAMESPACES", "team-a, team-b ,")
	t.Setenv("OPSCALE_ADMIN_SCHEME", "https")
	t.Setenv("OPSCALE_ADMIN_PORT", "9002")
	t.Setenv("OPSCALE_REQUEST_TIMEOUT", "10")

	cfg := Load()

	if len(cfg.TargetNamespaces) != 2 || cfg.TargetNamespaces[0] != "team-a" || cfg.TargetNamespaces[1] != "team-b" {
		t.Errorf("TargetNamespaces = %v, want [team-a team-b]", cfg.TargetNamespaces)
	}
	if cfg.AdminScheme != "https" {
		t.Errorf("AdminScheme = %q, want %q", cfg.AdminScheme, "https")
	}
	if cfg.AdminPort != 9002 {
		t.Errorf("AdminPort = %d, want 9002", cfg.AdminPort)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s (integer-seconds fallback)", cfg.RequestTimeout)
	}
}

func TestLoad_BadValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPSCALE_ADMIN_PORT", "not-a-port")
	t.Setenv("OPSCALE_ADMIN_INSECURE_TLS", "not-a-bool")
	t.Setenv("OPSCALE_REQUEST_TIMEOUT", "soon")

	cfg := Load()

	if cfg.AdminPort != 7001 {
		t.Errorf("AdminPort = %d, want default 7001", cfg.AdminPort)
	}
	if cfg.AdminInsecureTLS {
		t.Error("AdminInsecureTLS should fall back to false")
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want default 30s", cfg.RequestTimeout)
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no namespaces", func(c *Config) { c.TargetNamespaces = nil }},
		{"bad scheme", func(c *Config) { c.AdminScheme = "ftp" }},
		{"insecure tls without https", func(c *Config) { c.AdminInsecureTLS = true }},
		{"port too low", func(c *Config) { c.AdminPort = 0 }},
		{"port too high", func(c *Config) { c.AdminPort = 70000 }},
		{"timeout too short", func(c *Config) { c.RequestTimeout = 10 * time.Millisecond }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
