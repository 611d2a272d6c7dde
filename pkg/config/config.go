// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/storage/images"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Session       SessionConfig
	Billing       BillingConfig
	OIDC          OIDCConfig
	Images        images.Config
	Authz         AuthzConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// RedisConfig holds the optional Redis cache settings
type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// SessionConfig holds session cookie settings
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

// BillingConfig holds payment webhook secrets
type BillingConfig struct {
	StripeWebhookSecret      string
	MercadoPagoWebhookSecret string
}

// OIDCConfig holds sign-in provider settings
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// AuthzConfig holds authorization settings
type AuthzConfig struct {
	// RouteTablePath points at a YAML route table; empty uses the
	// compiled-in default.
	RouteTablePath  string
	TenantCacheSize int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("MENUFORGE_HOST", "0.0.0.0"),
			Port:            getEnv("MENUFORGE_PORT", "8080"),
			HealthPort:      getEnv("MENUFORGE_HEALTH_PORT", "8081"),
			ReadTimeout:     getEnvDuration("MENUFORGE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("MENUFORGE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("MENUFORGE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("MENUFORGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:         getEnv("MENUFORGE_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("MENUFORGE_POSTGRES_MAX_CONNS", 25),
			MinConns:    getEnvInt("MENUFORGE_POSTGRES_MIN_CONNS", 5),
			Timeout:     getEnvDuration("MENUFORGE_POSTGRES_TIMEOUT", 10*time.Second),
			MaxLifetime: getEnvDuration("MENUFORGE_POSTGRES_MAX_LIFETIME", 30*time.Minute),
			MaxIdleTime: getEnvDuration("MENUFORGE_POSTGRES_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("MENUFORGE_REDIS_URL", ""),
			CacheTTL: getEnvDuration("MENUFORGE_REDIS_CACHE_TTL", 5*time.Minute),
		},
		Session: SessionConfig{
			Secret: getEnv("MENUFORGE_SESSION_SECRET", ""),
			TTL:    getEnvDuration("MENUFORGE_SESSION_TTL", 24*time.Hour),
			Secure: getEnvBool("MENUFORGE_SESSION_SECURE", true),
		},
		Billing: BillingConfig{
			StripeWebhookSecret:      getEnv("MENUFORGE_STRIPE_WEBHOOK_SECRET", ""),
			MercadoPagoWebhookSecret: getEnv("MENUFORGE_MERCADOPAGO_WEBHOOK_SECRET", ""),
		},
		OIDC: OIDCConfig{
			IssuerURL:    getEnv("MENUFORGE_OIDC_ISSUER_URL", ""),
			ClientID:     getEnv("MENUFORGE_OIDC_CLIENT_ID", ""),
			ClientSecret: getEnv("MENUFORGE_OIDC_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("MENUFORGE_OIDC_REDIRECT_URL", ""),
		},
		Images: images.Config{
			Bucket:       getEnv("MENUFORGE_S3_BUCKET", "menuforge-images"),
			Region:       getEnv("MENUFORGE_S3_REGION", "us-east-1"),
			Endpoint:     getEnv("MENUFORGE_S3_ENDPOINT", ""),
			AccessKey:    getEnv("MENUFORGE_S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("MENUFORGE_S3_SECRET_KEY", ""),
			UsePathStyle: getEnvBool("MENUFORGE_S3_USE_PATH_STYLE", false),
			PublicURL:    getEnv("MENUFORGE_S3_PUBLIC_URL", ""),
		},
		Authz: AuthzConfig{
			RouteTablePath:  getEnv("MENUFORGE_ROUTE_TABLE_PATH", ""),
			TenantCacheSize: getEnvInt("MENUFORGE_TENANT_CACHE_SIZE", 256),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("MENUFORGE_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("MENUFORGE_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("MENUFORGE_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("MENUFORGE_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("MENUFORGE_OTEL_SERVICE_NAME", "menuforge"),
			OTelServiceVersion: getEnv("MENUFORGE_OTEL_SERVICE_VERSION", "dev"),
			OTelInsecure:       getEnvBool("MENUFORGE_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("MENUFORGE_POSTGRES_URL is required")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("MENUFORGE_SESSION_SECRET is required")
	}
	if c.Billing.StripeWebhookSecret == "" && c.Billing.MercadoPagoWebhookSecret == "" {
		return fmt.Errorf("at least one webhook secret must be configured")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}
