package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"rentacar-backend/internal/utils"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	JWT       JWTConfig       `yaml:"jwt"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Policy    PolicyConfig    `yaml:"policy"`
	Cache     CacheConfig     `yaml:"cache"`
	Events    EventsConfig    `yaml:"events"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the store. Type "memory" keeps everything in
// process and seeds it from FixturesFile.
type DatabaseConfig struct {
	Type         string `yaml:"type"`   // "postgres" or "memory"
	Driver       string `yaml:"driver"` // "postgres" (lib/pq) or "pgx"
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
	FixturesFile string `yaml:"fixtures_file"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// JWTConfig contains the shared secret of the identity provider.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// PricingConfig holds decimal amounts as strings so they never pass through
// a float.
type PricingConfig struct {
	TaxRate string            `yaml:"tax_rate"`
	Extras  map[string]string `yaml:"extras"` // extra name -> daily rate
}

// PolicyConfig holds business rules that change without a release.
type PolicyConfig struct {
	MinRentalDays int                `yaml:"min_rental_days"`
	MaxRentalDays int                `yaml:"max_rental_days"`
	LateFeePerDay string             `yaml:"late_fee_per_day"`
	RefundTiers   []utils.RefundTier `yaml:"refund_tiers"`
	ReminderLead  time.Duration      `yaml:"reminder_lead"`
}

// CacheConfig contains read cache TTLs
type CacheConfig struct {
	AvailabilityTTL time.Duration `yaml:"availability_ttl"`
	SummaryTTL      time.Duration `yaml:"summary_ttl"`
}

// EventsConfig selects where domain events go.
type EventsConfig struct {
	Driver         string        `yaml:"driver"` // "kafka", "rabbitmq" or "log"
	Brokers        []string      `yaml:"brokers"`
	Topic          string        `yaml:"topic"`
	URL            string        `yaml:"url"`
	Exchange       string        `yaml:"exchange"`
	BufferSize     int           `yaml:"buffer_size"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// SendGridConfig contains email settings. An empty APIKey disables sending.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// SchedulerConfig contains cron schedule settings (with seconds field)
type SchedulerConfig struct {
	CheckOverdueRentals string `yaml:"check_overdue_rentals"`
	SendPickupReminders string `yaml:"send_pickup_reminders"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
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
	// Database
	if val := os.Getenv("DB_TYPE"); val != "" {
		c.Database.Type = val
	}
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Email
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// Events
	if val := os.Getenv("EVENTS_DRIVER"); val != "" {
		c.Events.Driver = val
	}
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Events.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("RABBITMQ_URL"); val != "" {
		c.Events.URL = val
	}
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Server validation
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}

	// Database validation
	if c.Database.Type == "" {
		c.Database.Type = "postgres"
	}
	switch c.Database.Type {
	case "memory":
	case "postgres":
		if c.Database.Driver == "" {
			c.Database.Driver = "postgres"
		}
		if c.Database.Driver != "postgres" && c.Database.Driver != "pgx" {
			return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
		}
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
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Pricing defaults
	if c.Pricing.TaxRate == "" {
		c.Pricing.TaxRate = "0.10"
	}
	rate, err := decimal.NewFromString(c.Pricing.TaxRate)
	if err != nil || rate.IsNegative() {
		return fmt.Errorf("invalid tax rate: %q", c.Pricing.TaxRate)
	}
	if c.Pricing.Extras == nil {
		c.Pricing.Extras = map[string]string{"insurance": "10.00"}
	}
	for name, v := range c.Pricing.Extras {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("invalid daily rate for extra %s: %q", name, v)
		}
	}

	// Policy defaults
	if c.Policy.MinRentalDays == 0 {
		c.Policy.MinRentalDays = 1
	}
	if c.Policy.MaxRentalDays == 0 {
		c.Policy.MaxRentalDays = 365
	}
	if c.Policy.MinRentalDays < 1 || c.Policy.MaxRentalDays < c.Policy.MinRentalDays {
		return fmt.Errorf("invalid rental day limits: %d-%d", c.Policy.MinRentalDays, c.Policy.MaxRentalDays)
	}
	if c.Policy.LateFeePerDay == "" {
		c.Policy.LateFeePerDay = "50.00"
	}
	if fee, err := decimal.NewFromString(c.Policy.LateFeePerDay); err != nil || fee.IsNegative() {
		return fmt.Errorf("invalid late fee per day: %q", c.Policy.LateFeePerDay)
	}
	if len(c.Policy.RefundTiers) == 0 {
		c.Policy.RefundTiers = append([]utils.RefundTier(nil), utils.DefaultRefundTiers...)
	}
	for _, tier := range c.Policy.RefundTiers {
		if tier.Percent < 0 || tier.Percent > 100 {
			return fmt.Errorf("refund percent must be between 0 and 100, got %d", tier.Percent)
		}
	}
	if c.Policy.ReminderLead == 0 {
		c.Policy.ReminderLead = 24 * time.Hour
	}

	// Cache defaults
	if c.Cache.AvailabilityTTL == 0 {
		c.Cache.AvailabilityTTL = 2 * time.Minute
	}
	if c.Cache.SummaryTTL == 0 {
		c.Cache.SummaryTTL = 5 * time.Minute
	}

	// Events defaults
	if c.Events.Driver == "" {
		c.Events.Driver = "log"
	}
	switch c.Events.Driver {
	case "log":
	case "kafka":
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required")
		}
		if c.Events.Topic == "" {
			c.Events.Topic = "rental-events"
		}
	case "rabbitmq":
		if c.Events.URL == "" {
			return fmt.Errorf("rabbitmq url is required")
		}
		if c.Events.Exchange == "" {
			c.Events.Exchange = "rental.events"
		}
	default:
		return fmt.Errorf("unsupported events driver: %s", c.Events.Driver)
	}
	if c.Events.BufferSize == 0 {
		c.Events.BufferSize = 256
	}
	if c.Events.MaxAttempts == 0 {
		c.Events.MaxAttempts = 3
	}
	if c.Events.InitialBackoff == 0 {
		c.Events.InitialBackoff = 500 * time.Millisecond
	}
	if c.Events.PublishTimeout == 0 {
		c.Events.PublishTimeout = 5 * time.Second
	}

	// Email defaults
	if c.SendGrid.FromEmail == "" {
		c.SendGrid.FromEmail = "no-reply@rentacar.local"
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "Rent-a-Car"
	}

	// Scheduler defaults
	if c.Scheduler.CheckOverdueRentals == "" {
		c.Scheduler.CheckOverdueRentals = "0 0 * * * *" // hourly
	}
	if c.Scheduler.SendPickupReminders == "" {
		c.Scheduler.SendPickupReminders = "0 30 * * * *" // hourly at half past
	}

	return nil
}

// TaxRate returns the validated tax rate.
func (c *Config) TaxRate() decimal.Decimal {
	return decimal.RequireFromString(c.Pricing.TaxRate)
}

// ExtraRates returns the validated extras price list.
func (c *Config) ExtraRates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.Pricing.Extras))
	for name, v := range c.Pricing.Extras {
		out[name] = decimal.RequireFromString(v)
	}
	return out
}

// LateFeePerDay returns the validated per-day late fee.
func (c *Config) LateFeePerDay() decimal.Decimal {
	return decimal.RequireFromString(c.Policy.LateFeePerDay)
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
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
