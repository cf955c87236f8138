package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the freight service configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Kinesis  KinesisConfig  `mapstructure:"kinesis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Distance DistanceConfig `mapstructure:"distance"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            string          `mapstructure:"port" validate:"required,numeric"`
	PathPrefix      string          `mapstructure:"path_prefix" validate:"omitempty,startswith=/"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig limits requests per client address. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`
	Burst             int     `mapstructure:"burst" validate:"min=0"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Type        string `mapstructure:"type" validate:"required,oneof=memory dynamodb postgres sqlite"`
	TrucksTable string `mapstructure:"trucks_table" validate:"required_if=Type dynamodb"`
	LoadsTable  string `mapstructure:"loads_table" validate:"required_if=Type dynamodb"`
	FuelTable   string `mapstructure:"fuel_table" validate:"required_if=Type dynamodb"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Type postgres"`
	SQLitePath  string `mapstructure:"sqlite_path" validate:"required_if=Type sqlite"`
}

// AWSConfig holds shared AWS client settings
type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// KinesisConfig names the event streams. Empty names disable the stream.
type KinesisConfig struct {
	LoadEventsStream    string        `mapstructure:"load_events_stream"`
	FuelPurchasesStream string        `mapstructure:"fuel_purchases_stream"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
}

// CacheConfig configures the Redis calculation cache. Empty address disables it.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db" validate:"min=0"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// DistanceConfig configures the routing service used for deadhead estimates
type DistanceConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"min=0"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

// Load reads configuration with priority:
// 1. Environment variables (FREIGHT_ prefix, plus PORT and DATABASE_URL)
// 2. Config file (config.yaml)
// 3. Defaults
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	registerDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("FREIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Platform conventions, honoured without the prefix
	if port := os.Getenv("PORT"); port != "" {
		v.Set("server.port", port)
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("storage.database_url", dbURL)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	v := viper.New()
	registerDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
