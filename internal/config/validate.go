package config

import (
	"fmt"
	"time"
)

// Validate checks that the Config contains valid values.
// Returns an error describing the first invalid field found.
func (c Config) Validate() error {
	if len(c.TargetNamespaces) == 0 {
		return fmt.Errorf("config: OPSCALE_TARGET_NAMESPACES must name at least one namespace")
	}

	if c.AdminScheme != "http" && c.AdminScheme != "https" {
		return fmt.Errorf("config: OPSCALE_ADMIN_SCHEME must be http or https, got %q", c.AdminScheme)
	}

	if c.AdminInsecureTLS && c.AdminScheme != "https" {
		return fmt.Errorf("config: OPSCALE_ADMIN_INSECURE_TLS only applies when OPSCALE_ADMIN_SCHEME=https")
	}

	if c.AdminPort < 1 || c.AdminPort > 65535 {
		return fmt.Errorf("config: OPSCALE_ADMIN_PORT must be 1-65535, got %d", c.AdminPort)
	}

	if c.RequestTimeout < time.Second {
		return fmt.Errorf("config: RequestTimeout must be >= 1s, got %v", c.RequestTimeout)
	}

	return nil
}
