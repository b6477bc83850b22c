package sendnotification

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FromEmail     string        `mapstructure:"from_email"`
	SMSSenderID   string        `mapstructure:"sms_sender_id"`
	Personalize   bool          `mapstructure:"personalize"`

	// SMSEnabled mirrors notifications at or above PriorityThreshold over
	// SMS in addition to their primary channel.
	SMSEnabled        bool   `mapstructure:"sms_enabled"`
	PriorityThreshold string `mapstructure:"priority_threshold"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:           true,
		MaxJobsActive:     5,
		Timeout:           60 * time.Second,
		FromEmail:         "noreply@smartlocker.io",
		SMSSenderID:       "SMARTLOCK",
		SMSEnabled:        true,
		PriorityThreshold: "high",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.FromEmail == "" {
		return fmt.Errorf("from_email is required")
	}
	if c.SMSEnabled {
		if _, ok := priorityRank[c.PriorityThreshold]; !ok {
			return fmt.Errorf("priority_threshold must be one of low, medium, high, urgent")
		}
	}
	return nil
}
