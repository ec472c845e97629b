// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/packlane/packlane-backend/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minJWTLength = 32
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	JwtSecretKey   string      `mapstructure:"JWT_SECRET_KEY" yaml:"jwt_secret_key"`
	FrontendURL    string      `mapstructure:"FRONTEND_URL" yaml:"frontend_url"`
}

// DatabaseConfig holds PostgreSQL connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST" yaml:"host"`
	Port         int    `mapstructure:"PORT" yaml:"port"`
	User         string `mapstructure:"USER" yaml:"user"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	Name         string `mapstructure:"NAME" yaml:"name"`
	SSLMode      string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"MAX_IDLE_CONNS" yaml:"max_idle_conns"`
	ConnMaxLife  string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and
// other URL-based tools.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// EmailConfig holds configuration for sending share-invitation emails.
type EmailConfig struct {
	FromAddress  string `mapstructure:"FROM_ADDRESS" yaml:"from_address"`
	FromName     string `mapstructure:"FROM_NAME" yaml:"from_name"`
	ResendAPIKey string `mapstructure:"RESEND_API_KEY" yaml:"resend_api_key"`
}

// AIConfig holds configuration for the DeepSeek suggestion service.
type AIConfig struct {
	// Enabled toggles the suggestion endpoint entirely.
	Enabled bool `mapstructure:"ENABLED" yaml:"enabled"`
	// APIKey authenticates against the DeepSeek API.
	APIKey string `mapstructure:"API_KEY" yaml:"api_key"`
	// Model is the chat model used for suggestions.
	Model string `mapstructure:"MODEL" yaml:"model"`
	// TimeoutSeconds bounds a single suggestion request.
	TimeoutSeconds int `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
	// MaxItems caps the number of suggested item names returned.
	MaxItems int `mapstructure:"MAX_ITEMS" yaml:"max_items"`
}

// SchedulerConfig holds configuration for the reminder job queue and the
// packing-reminder scheduler.
type SchedulerConfig struct {
	// PollIntervalSeconds is how often the job-queue poller scans for due jobs.
	PollIntervalSeconds int `mapstructure:"POLL_INTERVAL_SECONDS" yaml:"poll_interval_seconds"`
	// DispatchTimeoutSeconds bounds a single firing (store reads, push send).
	DispatchTimeoutSeconds int `mapstructure:"DISPATCH_TIMEOUT_SECONDS" yaml:"dispatch_timeout_seconds"`
	// MaxNotifiedItems caps how many unchecked item names appear in a
	// notification body before falling back to a generic message.
	MaxNotifiedItems int `mapstructure:"MAX_NOTIFIED_ITEMS" yaml:"max_notified_items"`
	// ShutdownTimeoutSeconds is the max wait for the poller during shutdown.
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// RateLimitConfig holds configuration for per-user request rate limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"REQUESTS_PER_MINUTE" yaml:"requests_per_minute"`
	WindowSeconds     int `mapstructure:"WINDOW_SECONDS" yaml:"window_seconds"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server    ServerConfig    `mapstructure:"SERVER" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"DATABASE" yaml:"database"`
	Redis     RedisConfig     `mapstructure:"REDIS" yaml:"redis"`
	Email     EmailConfig     `mapstructure:"EMAIL" yaml:"email"`
	AI        AIConfig        `mapstructure:"AI" yaml:"ai"`
	Scheduler SchedulerConfig `mapstructure:"SCHEDULER" yaml:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
}

// IsDevelopment returns true when running in development.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true when running in production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// applies defaults, unmarshals into Config, and validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "packlane_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 5)
	v.SetDefault("DATABASE.MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("AI.ENABLED", false)
	v.SetDefault("AI.MODEL", "deepseek-chat")
	v.SetDefault("AI.TIMEOUT_SECONDS", 30)
	v.SetDefault("AI.MAX_ITEMS", 25)
	v.SetDefault("SCHEDULER.POLL_INTERVAL_SECONDS", 15)
	v.SetDefault("SCHEDULER.DISPATCH_TIMEOUT_SECONDS", 30)
	v.SetDefault("SCHEDULER.MAX_NOTIFIED_ITEMS", 10)
	v.SetDefault("SCHEDULER.SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("RATE_LIMIT.REQUESTS_PER_MINUTE", 100)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 60)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.JWT_SECRET_KEY", "JWT_SECRET_KEY"},
		{"SERVER.FRONTEND_URL", "FRONTEND_URL"},
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"EMAIL.FROM_ADDRESS", "EMAIL_FROM_ADDRESS"},
		{"EMAIL.FROM_NAME", "EMAIL_FROM_NAME"},
		{"EMAIL.RESEND_API_KEY", "RESEND_API_KEY"},
		{"AI.ENABLED", "AI_ENABLED"},
		{"AI.API_KEY", "DEEPSEEK_API_KEY"},
		{"AI.MODEL", "AI_MODEL"},
		{"AI.TIMEOUT_SECONDS", "AI_TIMEOUT_SECONDS"},
		{"AI.MAX_ITEMS", "AI_MAX_ITEMS"},
		{"SCHEDULER.POLL_INTERVAL_SECONDS", "SCHEDULER_POLL_INTERVAL_SECONDS"},
		{"SCHEDULER.DISPATCH_TIMEOUT_SECONDS", "SCHEDULER_DISPATCH_TIMEOUT_SECONDS"},
		{"SCHEDULER.MAX_NOTIFIED_ITEMS", "SCHEDULER_MAX_NOTIFIED_ITEMS"},
		{"SCHEDULER.SHUTDOWN_TIMEOUT_SECONDS", "SCHEDULER_SHUTDOWN_TIMEOUT_SECONDS"},
		{"RATE_LIMIT.REQUESTS_PER_MINUTE", "RATE_LIMIT_REQUESTS_PER_MINUTE"},
		{"RATE_LIMIT.WINDOW_SECONDS", "RATE_LIMIT_WINDOW_SECONDS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"db_host", v.GetString("DATABASE.HOST"),
		"redis_address", v.GetString("REDIS.ADDRESS"),
		"scheduler_poll_interval", v.GetInt("SCHEDULER.POLL_INTERVAL_SECONDS"),
		"ai_enabled", v.GetBool("AI.ENABLED"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// validateConfig checks the loaded configuration values.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if len(cfg.Server.JwtSecretKey) < minJWTLength {
		return fmt.Errorf("JWT secret key must be at least %d characters long", minJWTLength)
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if cfg.Database.Password == "" {
		log.Warn("Database password is not set. Ensure this is intended (e.g., trusted auth).")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if cfg.AI.Enabled && cfg.AI.APIKey == "" {
		return fmt.Errorf("AI suggestions enabled but DEEPSEEK_API_KEY is not set")
	}

	if cfg.Email.ResendAPIKey == "" {
		log.Warn("Resend API key is not set; share-invitation emails will fail.")
	}

	if cfg.Scheduler.PollIntervalSeconds < 1 {
		return fmt.Errorf("scheduler poll interval must be at least 1 second")
	}
	if cfg.Scheduler.MaxNotifiedItems < 1 {
		return fmt.Errorf("scheduler max notified items must be positive")
	}

	return nil
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
