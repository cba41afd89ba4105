package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all backend configuration values.
type Config struct {
	// TargetNamespaces is the fixed set of namespaces visible to every
	// request session. OPSCALE_TARGET_NAMESPACES, comma-separated.
	TargetNamespaces []string

	// Admin endpoint settings for topology fetches.
	AdminScheme      string // OPSCALE_ADMIN_SCHEME, default: "http"
	AdminPort        int    // OPSCALE_ADMIN_PORT, default: 7001
	AdminInsecureTLS bool   // OPSCALE_ADMIN_INSECURE_TLS, default: false — skip TLS verification toward admin endpoints

	// RequestTimeout bounds each outbound HTTP call. Collaborator calls
	// inside the core carry no other timeout logic.
	RequestTimeout time.Duration // OPSCALE_REQUEST_TIMEOUT, default: 30s
}

// Load reads configuration from environment variables and returns a Config
// with defaults applied for any unset values.
func Load() Config {
	cfg := Config{
		TargetNamespaces: parseStringSlice("OPSCALE_TARGET_NAMESPACES"),
		AdminScheme:      envOrDefault("OPSCALE_ADMIN_SCHEME", "http"),
		AdminPort:        parseInt("OPSCALE_ADMIN_PORT", 7001),
		AdminInsecureTLS: parseBool("OPSCALE_ADMIN_INSECURE_TLS", false),
		RequestTimeout:   parseDuration("OPSCALE_REQUEST_TIMEOUT", 30*time.Second),
	}

	if len(cfg.TargetNamespaces) == 0 {
		cfg.TargetNamespaces = []string{"default"}
	}

	return cfg
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// parseDuration tries time.ParseDuration first, then falls back to treating
// the value as integer seconds.
func parseDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}

	// Fallback: treat as integer seconds
	secs, err := strconv.Atoi(v)
	if err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}

func parseBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseStringSlice(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}
