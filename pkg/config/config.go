package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Persistence modes. The mode is read once at startup and decides which
// backend implementation the session talks to.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Store drivers for the local backend.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv  string `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	AppMode string `mapstructure:"APP_MODE" validate:"required,oneof=remote local"`

	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	// Service side.
	DatabaseURL    string  `mapstructure:"DATABASE_URL" validate:"omitempty,url|uri"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`

	// Remote backend.
	APIBaseURL     string        `mapstructure:"API_BASE_URL" validate:"required_if=AppMode remote"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT" validate:"required"`

	// Local backend.
	StoreDriver   string `mapstructure:"STORE_DRIVER" validate:"required,oneof=file redis memory"`
	StorePath     string `mapstructure:"STORE_PATH" validate:"required_if=StoreDriver file"`
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required_if=StoreDriver redis"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Transient notice lifetimes.
	NoticeErrorTTL      time.Duration `mapstructure:"NOTICE_ERROR_TTL" validate:"required"`
	NoticeValidationTTL time.Duration `mapstructure:"NOTICE_VALIDATION_TTL" validate:"required"`
	NoticeSuccessTTL    time.Duration `mapstructure:"NOTICE_SUCCESS_TTL" validate:"required"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var durationKeys = []string{
	"SHUTDOWN_TIMEOUT",
	"REQUEST_TIMEOUT",
	"NOTICE_ERROR_TTL",
	"NOTICE_VALIDATION_TTL",
	"NOTICE_SUCCESS_TTL",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("questlines")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.questlines")
	v.AutomaticEnv()

	home, _ := os.UserHomeDir()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_MODE", ModeRemote)
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("API_BASE_URL", "http://localhost:8080")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("STORE_DRIVER", StoreFile)
	v.SetDefault("STORE_PATH", home+"/.questlines/store.json")
	v.SetDefault("NOTICE_ERROR_TTL", "5s")
	v.SetDefault("NOTICE_VALIDATION_TTL", "3s")
	v.SetDefault("NOTICE_SUCCESS_TTL", "3s")
	v.SetDefault("GOMAXPROCS", 0)

	// Optional config file
	_ = v.ReadInConfig()

	keys := []string{
		"APP_ENV",
		"APP_MODE",
		"HTTP_ADDR",
		"SHUTDOWN_TIMEOUT",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DATABASE_URL",
		"RATE_LIMIT_RPS",
		"RATE_LIMIT_BURST",
		"API_BASE_URL",
		"REQUEST_TIMEOUT",
		"STORE_DRIVER",
		"STORE_PATH",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"NOTICE_ERROR_TTL",
		"NOTICE_VALIDATION_TTL",
		"NOTICE_SUCCESS_TTL",
		"GOMAXPROCS",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Durations may arrive as plain strings from env
	for _, key := range durationKeys {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		switch key {
		case "SHUTDOWN_TIMEOUT":
			c.ShutdownTimeout = d
		case "REQUEST_TIMEOUT":
			c.RequestTimeout = d
		case "NOTICE_ERROR_TTL":
			c.NoticeErrorTTL = d
		case "NOTICE_VALIDATION_TTL":
			c.NoticeValidationTTL = d
		case "NOTICE_SUCCESS_TTL":
			c.NoticeSuccessTTL = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
