package scanapprovalresponses

import (
	"fmt"
	"time"
)

// ReplyMessageName is the BPMN message the workflow's catch event waits on.
const ReplyMessageName = "approval-reply"

type Config struct {
	Enabled     bool          `mapstructure:"enabled"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		PollTimeout: 30 * time.Second,
		Timeout:     60 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
