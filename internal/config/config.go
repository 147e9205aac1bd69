package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	NSQ       NSQConfig       `yaml:"nsq"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Payment   PaymentConfig   `yaml:"payment"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Booking   BookingConfig   `yaml:"booking"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig selects the repository backend. Driver "memory" keeps
// everything in process and ignores the connection settings.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "memory"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// RedisConfig backs the per-vehicle fulfillment lock. Without an address
// an in-process lock is used.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	LockTTLSec int    `yaml:"lock_ttl_seconds"`
}

type NSQConfig struct {
	Address string `yaml:"address"` // empty disables event publishing
	Topic   string `yaml:"topic"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"api_key"` // empty disables email
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"` // empty disables SMS
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
}

// PaymentConfig selects the deposit gateway.
type PaymentConfig struct {
	Mode                string `yaml:"mode"` // "stripe" or "mock"
	StripeSecretKey     string `yaml:"stripe_secret_key"`
	StripeWebhookSecret string `yaml:"stripe_webhook_secret"`
	Currency            string `yaml:"currency"`
	MockSecret          string `yaml:"mock_secret"`
	MockBaseURL         string `yaml:"mock_base_url"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// BookingConfig holds the engine's business rules.
type BookingConfig struct {
	PaymentWindowMinutes int    `yaml:"payment_window_minutes"`
	LateFeePercent       int64  `yaml:"late_fee_percent"`
	Timezone             string `yaml:"timezone"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpirePendingBookings string `yaml:"expire_pending_bookings"`
	SendOverdueReminders  string `yaml:"send_overdue_reminders"`
	ReportFailedRefunds   string `yaml:"report_failed_refunds"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes, applies environment
// overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	setString(&c.Server.Host, "SERVER_HOST")
	setInt(&c.Server.Port, "SERVER_PORT")

	// Database
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Database, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSL_MODE")

	// Redis
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")

	// NSQ
	setString(&c.NSQ.Address, "NSQD_ADDRESS")

	// Outbound channels
	setString(&c.SendGrid.APIKey, "SENDGRID_API_KEY")
	setString(&c.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	setString(&c.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")

	// Payment
	setString(&c.Payment.Mode, "PAYMENT_MODE")
	setString(&c.Payment.StripeSecretKey, "STRIPE_SECRET_KEY")
	setString(&c.Payment.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&c.Payment.MockSecret, "PAYMENT_MOCK_SECRET")

	// JWT
	setString(&c.JWT.Secret, "JWT_SECRET")

	// Log
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	// Booking
	setString(&c.Booking.Timezone, "BOOKING_TIMEZONE")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		fmt.Sscanf(val, "%d", dst)
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Database validation
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case "":
		c.Database.Driver = "postgres"
		fallthrough
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}

	if c.Redis.LockTTLSec <= 0 {
		c.Redis.LockTTLSec = 30
	}
	if c.NSQ.Topic == "" {
		c.NSQ.Topic = "booking.events"
	}
	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when an API key is set")
	}
	if c.Twilio.AccountSID != "" && (c.Twilio.AuthToken == "" || c.Twilio.From == "") {
		return fmt.Errorf("twilio auth_token and from are required when account_sid is set")
	}

	// Payment validation
	switch c.Payment.Mode {
	case "", "mock":
		c.Payment.Mode = "mock"
		if c.Payment.MockSecret == "" {
			return fmt.Errorf("payment mock_secret is required in mock mode")
		}
	case "stripe":
		if c.Payment.StripeSecretKey == "" || c.Payment.StripeWebhookSecret == "" {
			return fmt.Errorf("stripe secret key and webhook secret are required")
		}
	default:
		return fmt.Errorf("unknown payment mode: %s", c.Payment.Mode)
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "vnd"
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.JWT.AccessTokenExpiry <= 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Booking rules
	if c.Booking.PaymentWindowMinutes <= 0 {
		c.Booking.PaymentWindowMinutes = 10
	}
	if c.Booking.LateFeePercent <= 0 {
		c.Booking.LateFeePercent = 150
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "Asia/Ho_Chi_Minh"
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking timezone %q: %w", c.Booking.Timezone, err)
	}

	if c.Scheduler.ExpirePendingBookings == "" {
		c.Scheduler.ExpirePendingBookings = "@every 60s"
	}
	if c.Scheduler.SendOverdueReminders == "" {
		c.Scheduler.SendOverdueReminders = "0 0 8 * * *"
	}
	if c.Scheduler.ReportFailedRefunds == "" {
		c.Scheduler.ReportFailedRefunds = "0 30 8 * * *"
	}

	return nil
}

// GetDatabaseConnectionString returns the PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%d dbname=%s sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// PaymentWindow is the time a customer has to pay after creating a booking.
func (c *Config) PaymentWindow() time.Duration {
	return time.Duration(c.Booking.PaymentWindowMinutes) * time.Minute
}

// Location is the business time zone bookings are dated in. Validate has
// already checked that it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSec) * time.Second
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}
