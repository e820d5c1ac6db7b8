package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	GRPC       GRPCConfig       `mapstructure:"grpc"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Log        LogConfig        `mapstructure:"log"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // SQLite database file path
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address       string        `mapstructure:"address"` // e.g. ":50051"
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DispatchConfig controls rider matching and payouts.
type DispatchConfig struct {
	RadiusKm float64 `mapstructure:"radius_km"`
	// PayoutRate is the share of the delivery fee paid to the rider, as a decimal
	// string ("0.80"). It is the single source of the payout percentage.
	PayoutRate string `mapstructure:"payout_rate"`
}

// Rate returns the parsed payout rate. Load has already validated it.
func (d DispatchConfig) Rate() decimal.Decimal {
	r, err := decimal.NewFromString(d.PayoutRate)
	if err != nil {
		return decimal.Zero
	}
	return r
}

// KafkaConfig configures the order event publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers []string      `mapstructure:"brokers"`
	Topic   string        `mapstructure:"topic"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// SettlementConfig configures where settlement reports are uploaded.
type SettlementConfig struct {
	Region string `mapstructure:"region"`
	Bucket string `mapstructure:"bucket"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// envBindings keeps the flat environment names operators already use.
var envBindings = map[string]string{
	"database.path":        "DB_PATH",
	"grpc.address":         "GRPC_ADDRESS",
	"grpc.shutdown_grace":  "GRPC_SHUTDOWN_GRACE",
	"auth.jwt_secret":      "JWT_SECRET",
	"dispatch.radius_km":   "DISPATCH_RADIUS_KM",
	"dispatch.payout_rate": "DISPATCH_PAYOUT_RATE",
	"kafka.brokers":        "KAFKA_BROKERS",
	"kafka.topic":          "KAFKA_TOPIC",
	"kafka.timeout":        "KAFKA_TIMEOUT",
	"settlement.region":    "SETTLEMENT_REGION",
	"settlement.bucket":    "SETTLEMENT_BUCKET",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
}

const devJWTSecret = "dev-secret-change-me"

// Load loads configuration from environment variables with sensible defaults.
// JWT_SECRET is required.
func Load() (*Config, error) {
	return load("", false)
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load("", true)
}

// LoadFile reads a config file (yaml, json or toml) and overlays environment variables.
func LoadFile(path string, devDefaults bool) (*Config, error) {
	return load(path, devDefaults)
}

func load(path string, devDefaults bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if devDefaults {
		v.SetDefault("auth.jwt_secret", devJWTSecret)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "fooddelivery.db")
	v.SetDefault("grpc.address", ":50051")
	v.SetDefault("grpc.shutdown_grace", "10s")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("dispatch.radius_km", 5.0)
	v.SetDefault("dispatch.payout_rate", "0.80")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "order-events")
	v.SetDefault("kafka.timeout", "5s")
	v.SetDefault("settlement.region", "us-east-1")
	v.SetDefault("settlement.bucket", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks settings that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set; required for production")
	}
	rate, err := decimal.NewFromString(c.Dispatch.PayoutRate)
	if err != nil {
		return fmt.Errorf("invalid DISPATCH_PAYOUT_RATE %q: %w", c.Dispatch.PayoutRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("DISPATCH_PAYOUT_RATE must be between 0 and 1, got %s", rate)
	}
	if c.Dispatch.RadiusKm <= 0 {
		return fmt.Errorf("DISPATCH_RADIUS_KM must be positive, got %v", c.Dispatch.RadiusKm)
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, gRPC: %s, Auth: *** (masked) ***, Dispatch: %.1fkm@%s, Kafka: %v/%s, Log: %s}",
		c.Database.Path, c.GRPC.Address, c.Dispatch.RadiusKm, c.Dispatch.PayoutRate,
		c.Kafka.Brokers, c.Kafka.Topic, c.Log.Level)
}
