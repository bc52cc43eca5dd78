package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535] (got %d)", c.Server.Port)
	}

	if err := c.Review.validate(); err != nil {
		return fmt.Errorf("review: %w", err)
	}

	return nil
}

func (r *ReviewConfig) validate() error {
	if r.MaxManualGroups < 1 {
		return fmt.Errorf("max_manual_groups must be >= 1 (got %d)", r.MaxManualGroups)
	}
	if r.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be > 0 (got %d)", r.MaxUploadBytes)
	}
	return nil
}
