// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// BcryptCost is the bcrypt cost factor (4–31) used for PINs; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// VonageAPIKey and VonageAPISecret authenticate against the Vonage Verify API.
	VonageAPIKey    string `mapstructure:"VONAGE_API_KEY"`
	VonageAPISecret string `mapstructure:"VONAGE_API_SECRET"`
	// VonageBaseURL is the Verify API host (default https://api.nexmo.com).
	VonageBaseURL string `mapstructure:"VONAGE_BASE_URL"`
	// VonageBrand is the name shown in the SMS ("Your Goodies code is ...").
	VonageBrand string `mapstructure:"VONAGE_BRAND"`
	// OTPCodeLength is the number of digits the provider sends (4 or 6).
	OTPCodeLength int `mapstructure:"OTP_CODE_LENGTH"`
	// DevOTP replaces the SMS gateway with an in-memory one whose codes are readable via DevService.GetOTP.
	// Must not be true when Env is production.
	DevOTP bool `mapstructure:"DEV_OTP"`
	// GatewayTimeout bounds every call to the SMS gateway (e.g. "10s").
	GatewayTimeout string `mapstructure:"GATEWAY_TIMEOUT"`
	// OTPOutstandingWindow is how long a started request blocks a new one for the same phone (e.g. "10m").
	OTPOutstandingWindow string `mapstructure:"OTP_OUTSTANDING_WINDOW"`
	// OTPValidityWindow is how long a confirmed request may be used to resolve or create an account (e.g. "15m").
	OTPValidityWindow string `mapstructure:"OTP_VALIDITY_WINDOW"`

	// Redis (optional). When RedisAddr is set, authenticated session keys are cached in Redis.
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB"`
	SessionCacheTTL string `mapstructure:"SESSION_CACHE_TTL"`

	// SweepSchedule is the cron spec for deleting stale verification requests; empty disables the sweeper.
	SweepSchedule string `mapstructure:"SWEEP_SCHEDULE"`

	// Telemetry (optional).
	// OTLPEndpoint is the OTLP gRPC collector (e.g. http://localhost:4317); empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
	// KafkaBrokers is a comma-separated list of Kafka brokers for the auth event stream.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsTopic is the Kafka topic for auth events (default goodies-auth-events).
	AuthEventsTopic string `mapstructure:"AUTH_EVENTS_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("VONAGE_API_KEY", "")
	v.SetDefault("VONAGE_API_SECRET", "")
	v.SetDefault("VONAGE_BASE_URL", "https://api.nexmo.com")
	v.SetDefault("VONAGE_BRAND", "Goodies")
	v.SetDefault("OTP_CODE_LENGTH", 4)
	v.SetDefault("DEV_OTP", false)
	v.SetDefault("GATEWAY_TIMEOUT", "10s")
	v.SetDefault("OTP_OUTSTANDING_WINDOW", "10m")
	v.SetDefault("OTP_VALIDITY_WINDOW", "15m")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_CACHE_TTL", "5m")
	v.SetDefault("SWEEP_SCHEDULE", "*/5 * * * *")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "goodies-auth")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUTH_EVENTS_KAFKA_TOPIC", "goodies-auth-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	if cfg.DevOTP && cfg.Env == "production" {
		return nil, errors.New("config: DEV_OTP must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.OTPCodeLength != 4 && cfg.OTPCodeLength != 6 {
		return nil, errors.New("config: OTP_CODE_LENGTH must be 4 or 6")
	}

	return &cfg, nil
}

// GatewayTimeoutDuration parses GatewayTimeout. Returns 10s if unset or invalid.
func (c *Config) GatewayTimeoutDuration() time.Duration {
	return parseDuration(c.GatewayTimeout, 10*time.Second)
}

// OutstandingWindow parses OTPOutstandingWindow. Returns 10m if unset or invalid.
func (c *Config) OutstandingWindow() time.Duration {
	return parseDuration(c.OTPOutstandingWindow, 10*time.Minute)
}

// ValidityWindow parses OTPValidityWindow. Returns 15m if unset or invalid.
func (c *Config) ValidityWindow() time.Duration {
	return parseDuration(c.OTPValidityWindow, 15*time.Minute)
}

// SessionCacheTTLDuration parses SessionCacheTTL. Returns 5m if unset or invalid.
func (c *Config) SessionCacheTTLDuration() time.Duration {
	return parseDuration(c.SessionCacheTTL, 5*time.Minute)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the Kafka auth event stream.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
