package sendotp

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Length        int           `mapstructure:"length"`
	ExpiryMinutes int           `mapstructure:"expiry_minutes"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	UseAI         bool          `mapstructure:"use_ai"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60 * time.Second,
		Length:        6,
		ExpiryMinutes: 5,
		MaxAttempts:   3,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.Length < 4 || c.Length > 10 {
		return fmt.Errorf("length must be between 4 and 10")
	}
	if c.ExpiryMinutes <= 0 {
		return fmt.Errorf("expiry_minutes must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive")
	}
	return nil
}
