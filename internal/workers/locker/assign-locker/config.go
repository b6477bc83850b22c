package assignlocker

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CodeLength    int           `mapstructure:"code_length"`
	CredentialTTL time.Duration `mapstructure:"credential_ttl"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60 * time.Second,
		CodeLength:    8,
		CredentialTTL: 24 * time.Hour,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.CodeLength < 4 || c.CodeLength > 10 {
		return fmt.Errorf("code_length must be between 4 and 10")
	}
	if c.CredentialTTL <= 0 {
		return fmt.Errorf("credential_ttl must be positive")
	}
	return nil
}
