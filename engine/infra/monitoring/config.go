package monitoring

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Config holds configuration for the monitoring service
type Config struct {
	Enabled bool
	// File receives the Prometheus text exposition when the run ends.
	File string
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: false,
		File:    "metricas.prom",
	}
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.File) == "" {
		return fmt.Errorf("metrics file cannot be empty")
	}
	if filepath.Ext(c.File) == "" {
		return fmt.Errorf("metrics file must have an extension: got %s", c.File)
	}
	return nil
}
