// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	WhatsApp      WhatsAppConfig          `mapstructure:"whatsapp"`
	AI            AIConfig                `mapstructure:"ai"`
	OTP           OTPConfig               `mapstructure:"otp"`
	Approval      ApprovalConfig          `mapstructure:"approval"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// WhatsAppConfig holds settings for the browser-automated messaging channel.
type WhatsAppConfig struct {
	BusinessNumber   string `mapstructure:"business_number"`
	WebURL           string `mapstructure:"web_url"`
	UserDataDir      string `mapstructure:"user_data_dir"`
	Headless         bool   `mapstructure:"headless"`
	WaitTimeout      int    `mapstructure:"wait_timeout"`      // milliseconds, per operation
	EstablishTimeout int    `mapstructure:"establish_timeout"` // milliseconds, QR pairing
	InactivityHours  int    `mapstructure:"inactivity_hours"`  // session expiry threshold
	ScanCron         string `mapstructure:"scan_cron"`         // pending-approval response scan
	CleanupCron      string `mapstructure:"cleanup_cron"`      // stale session / expired OTP sweep
}

// AIConfig selects and configures the generative-AI provider used for
// response classification and message personalization.
type AIConfig struct {
	Provider string `mapstructure:"provider"` // "openai", "gemini" or "" (keyword fallback only)

	OpenAI AIProviderConfig `mapstructure:"openai"`
	Gemini AIProviderConfig `mapstructure:"gemini"`
}

// AIProviderConfig holds the per-provider HTTP settings.
type AIProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// OTPConfig holds one-time-password policy.
type OTPConfig struct {
	Length        int  `mapstructure:"length"`
	ExpiryMinutes int  `mapstructure:"expiry_minutes"`
	MaxAttempts   int  `mapstructure:"max_attempts"`
	UseAI         bool `mapstructure:"use_ai"`
}

// ApprovalConfig holds delivery-approval workflow policy.
type ApprovalConfig struct {
	ExpiryMinutes int `mapstructure:"expiry_minutes"` // approval request validity window
}

// NotificationConfig holds settings for the send-notification worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled           bool   `mapstructure:"enabled"`
		PriorityThreshold string `mapstructure:"priority_threshold"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
