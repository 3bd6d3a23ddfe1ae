// Package config loads and validates the RasPay server configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config represents the full API server configuration.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Auth           AuthConfig           `mapstructure:"auth"`
	HorsePay       HorsePayConfig       `mapstructure:"horsepay"`
	Push           PushConfig           `mapstructure:"push"`
	Commission     CommissionConfig     `mapstructure:"commission"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// AuthConfig contains JWT and admin-token settings. Secrets are read from
// the environment, only the variable names live in the config file.
type AuthConfig struct {
	JWTSecretEnv  string        `mapstructure:"jwt_secret_env"`
	AdminTokenEnv string        `mapstructure:"admin_token_env"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	CookieName    string        `mapstructure:"cookie_name"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
	Issuer        string        `mapstructure:"issuer"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
}

// JWTSecret resolves the JWT signing secret from the environment.
func (c *AuthConfig) JWTSecret() ([]byte, error) {
	secret := os.Getenv(c.JWTSecretEnv)
	if secret == "" {
		return nil, fmt.Errorf("jwt secret not set: env=%s", c.JWTSecretEnv)
	}
	return []byte(secret), nil
}

// AdminToken resolves the static back-office token from the environment.
// An empty value disables token-based admin access (admin JWTs still work).
func (c *AuthConfig) AdminToken() string {
	return os.Getenv(c.AdminTokenEnv)
}

// HorsePayConfig contains settings for the HorsePay PIX processor.
type HorsePayConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	ClientKeyEnv     string        `mapstructure:"client_key_env"`
	ClientSecretEnv  string        `mapstructure:"client_secret_env"`
	WebhookSecretEnv string        `mapstructure:"webhook_secret_env"`
	CallbackURL      string        `mapstructure:"callback_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// Credentials resolves the HorsePay API credentials from the environment.
func (c *HorsePayConfig) Credentials() (key, secret string, err error) {
	key = os.Getenv(c.ClientKeyEnv)
	secret = os.Getenv(c.ClientSecretEnv)
	if key == "" || secret == "" {
		return "", "", fmt.Errorf("horsepay credentials not set: env=%s,%s", c.ClientKeyEnv, c.ClientSecretEnv)
	}
	return key, secret, nil
}

// WebhookSecret resolves the webhook HMAC secret from the environment.
func (c *HorsePayConfig) WebhookSecret() string {
	return os.Getenv(c.WebhookSecretEnv)
}

// PushConfig contains web-push (VAPID) settings.
type PushConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	VAPIDPublicEnv    string `mapstructure:"vapid_public_env"`
	VAPIDPrivateEnv   string `mapstructure:"vapid_private_env"`
	SubscriberContact string `mapstructure:"subscriber_contact"`
}

// VAPIDKeys resolves the VAPID key pair from the environment.
func (c *PushConfig) VAPIDKeys() (public, private string, err error) {
	public = os.Getenv(c.VAPIDPublicEnv)
	private = os.Getenv(c.VAPIDPrivateEnv)
	if public == "" || private == "" {
		return "", "", fmt.Errorf("vapid keys not set: env=%s,%s", c.VAPIDPublicEnv, c.VAPIDPrivateEnv)
	}
	return public, private, nil
}

// CommissionConfig contains settings for the commission worker.
type CommissionConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// ReconciliationConfig contains settings for wallet-vs-ledger reconciliation.
type ReconciliationConfig struct {
	InitialTimeout time.Duration `mapstructure:"initial_timeout"`
	Interval       time.Duration `mapstructure:"interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	// Zero write timeout: the SSE stream is long-lived, request deadlines
	// come from the per-route timeout middleware.
	viper.SetDefault("server.write_timeout", "0")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.request_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "raspay")

	// Auth defaults
	viper.SetDefault("auth.jwt_secret_env", "JWT_SECRET")
	viper.SetDefault("auth.admin_token_env", "ADMIN_TOKEN")
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.cookie_name", "raspay_token")
	viper.SetDefault("auth.cookie_secure", true)
	viper.SetDefault("auth.issuer", "raspay")
	viper.SetDefault("auth.bcrypt_cost", 10)

	// HorsePay defaults
	viper.SetDefault("horsepay.base_url", "https://api.horsepay.io")
	viper.SetDefault("horsepay.client_key_env", "HORSEPAY_CLIENT_KEY")
	viper.SetDefault("horsepay.client_secret_env", "HORSEPAY_CLIENT_SECRET")
	viper.SetDefault("horsepay.webhook_secret_env", "HORSEPAY_WEBHOOK_SECRET")
	viper.SetDefault("horsepay.request_timeout", "30s")

	// Push defaults
	viper.SetDefault("push.enabled", false)
	viper.SetDefault("push.vapid_public_env", "VAPID_PUBLIC_KEY")
	viper.SetDefault("push.vapid_private_env", "VAPID_PRIVATE_KEY")
	viper.SetDefault("push.subscriber_contact", "mailto:suporte@raspay.com.br")

	// Commission worker defaults
	viper.SetDefault("commission.interval", "15s")
	viper.SetDefault("commission.batch_size", 50)

	// Reconciliation defaults
	viper.SetDefault("reconciliation.initial_timeout", "2m")
	viper.SetDefault("reconciliation.interval", "5m")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.HorsePay.BaseURL == "" {
		return fmt.Errorf("horsepay.base_url is required")
	}
	if config.Auth.JWTSecretEnv == "" {
		return fmt.Errorf("auth.jwt_secret_env is required")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
