package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name, e.g. FEATURES_SYMBOL.
const Prefix = "FEATURES"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Instrument
	Symbol   string `envconfig:"SYMBOL" default:"SPY" validate:"required,ticker"`
	Interval string `envconfig:"INTERVAL" default:"1d" validate:"required,oneof=1d 1wk 1mo"`

	// Inputs. BarsPath takes precedence over SQLite when set.
	BarsPath   string `envconfig:"BARS_PATH"`
	BarsSheet  string `envconfig:"BARS_SHEET"`
	ChainPath  string `envconfig:"CHAIN_PATH"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/market.db" validate:"required"`

	// Redis publishing is disabled when RedisAddr is empty.
	RedisAddr     string        `envconfig:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0" validate:"min=0,max=15"`
	PublishTTL    time.Duration `envconfig:"PUBLISH_TTL" default:"24h" validate:"gt=0"`
	StreamMaxLen  int64         `envconfig:"STREAM_MAX_LEN" default:"5000" validate:"gt=0"`

	// Observability. MetricsAddr empty disables the metrics server.
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`

	// Run-outcome alerts are POSTed here; empty means log only.
	AlertWebhookURL string `envconfig:"ALERT_WEBHOOK_URL" validate:"omitempty,url"`

	// Engine. Zero means one worker per indicator.
	MaxParallelism int `envconfig:"MAX_PARALLELISM" default:"0" validate:"min=0"`
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Printf("[config] no env file loaded: %v", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("ticker", isValidTicker); err != nil {
		return fmt.Errorf("register ticker validation: %w", err)
	}
	if err := v.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// RedisEnabled reports whether results should be published to Redis.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// isValidTicker accepts exchange symbols such as SPY, BRK.B, BF-B and ^GSPC.
func isValidTicker(fl validator.FieldLevel) bool {
	ticker := fl.Field().String()
	if len(ticker) < 1 || len(ticker) > 12 {
		return false
	}
	for i, ch := range ticker {
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '.', ch == '-':
		case ch == '^' && i == 0:
		default:
			return false
		}
	}
	return true
}
