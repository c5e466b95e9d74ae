package notify

import (
	"fmt"
	"os"
)

// Config holds NATS connection parameters.
type Config struct {
	URL        string `toml:"url"`
	ClientName string `toml:"client_name"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL        string
	ClientName string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.ClientName != "" {
		c.ClientName = overlay.ClientName
	}
}

func (c *Config) loadDefaults() {
	if c.URL == "" {
		c.URL = "nats://localhost:4222"
	}
	if c.ClientName == "" {
		c.ClientName = "consolida"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.ClientName != "" {
		if v := os.Getenv(env.ClientName); v != "" {
			c.ClientName = v
		}
	}
}

func (c *Config) validate() error {
	if c.URL == "" {
		return fmt.Errorf("url required")
	}
	return nil
}
