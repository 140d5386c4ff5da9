package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // REMINDER_TIMEZONE must resolve in minimal images

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config is the root application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Storage  StorageConfig  `yaml:"storage"`
	Reminder ReminderConfig `yaml:"reminder"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Log      LogConfig      `yaml:"log"`
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token       string `yaml:"token"        env:"TELEGRAM_BOT_TOKEN"`
	Debug       bool   `yaml:"debug"        env:"TELEGRAM_DEBUG"        env-default:"false"`
	PollTimeout int    `yaml:"poll_timeout" env:"TELEGRAM_POLL_TIMEOUT" env-default:"60"`
}

// StorageConfig selects and configures the medicine store.
type StorageConfig struct {
	Driver     string         `yaml:"driver"      env:"STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath string         `yaml:"sqlite_path" env:"SQLITE_PATH"    env-default:"data/medkit.db"`
	Postgres   PostgresConfig `yaml:"postgres"`
	Mongo      MongoConfig    `yaml:"mongo"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"               env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"         env:"DATABASE_MAX_CONNS"         env-default:"10"`
	MinConns        int32         `yaml:"min_conns"         env:"DATABASE_MIN_CONNS"         env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string `yaml:"uri"        env:"MONGO_URI"`
	Database   string `yaml:"database"   env:"DB_NAME"         env-default:"medicine_bot"`
	Collection string `yaml:"collection" env:"COLLECTION_NAME" env-default:"medicines"`
}

// ReminderConfig holds the expiry reminder schedule.
type ReminderConfig struct {
	Enabled       bool    `yaml:"enabled"        env:"REMINDER_ENABLED"        env-default:"true"`
	Rule          string  `yaml:"rule"           env:"REMINDER_RULE"           env-default:"FREQ=DAILY;BYHOUR=9;BYMINUTE=0;BYSECOND=0"`
	ThresholdDays int     `yaml:"threshold_days" env:"REMINDER_THRESHOLD_DAYS" env-default:"30"`
	Timezone      string  `yaml:"timezone"       env:"REMINDER_TIMEZONE"       env-default:"Europe/Moscow"`
	SendRate      float64 `yaml:"send_rate"      env:"REMINDER_SEND_RATE"      env-default:"20"`
}

// LookupConfig holds barcode lookup settings.
type LookupConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"LOOKUP_BASE_URL"   env-default:"https://barcode-list.ru"`
	Timeout   time.Duration `yaml:"timeout"    env:"LOOKUP_TIMEOUT"    env-default:"15s"`
	UserAgent string        `yaml:"user_agent" env:"LOOKUP_USER_AGENT"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Load reads configuration. A .env file in the working directory is loaded
// into the environment first when present. path (or CONFIG_PATH when path is
// empty) names a YAML file; without one, ENV and defaults are used.
// Priority: ENV > YAML > defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Validate performs business-rule validation on the loaded configuration.
// The bot token is checked separately by RequireToken: offline commands run
// without it.
func (c *Config) Validate() error {
	if err := c.Storage.validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Reminder.validate(); err != nil {
		return fmt.Errorf("reminder: %w", err)
	}
	if c.Lookup.Timeout <= 0 {
		return fmt.Errorf("lookup: LOOKUP_TIMEOUT must be > 0 (got %s)", c.Lookup.Timeout)
	}
	return nil
}

// RequireToken fails when TELEGRAM_BOT_TOKEN is empty.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is empty")
	}
	return nil
}

// Location time zone reminders and "today" are computed in.
func (r ReminderConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("REMINDER_TIMEZONE %q: %w", r.Timezone, err)
	}
	return loc, nil
}

func (s StorageConfig) validate() error {
	switch s.Driver {
	case DriverMemory:
	case DriverSQLite:
		if s.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if s.Postgres.DSN == "" {
			return errors.New("DATABASE_DSN is required for the postgres driver")
		}
		if s.Postgres.MinConns > s.Postgres.MaxConns {
			return fmt.Errorf("DATABASE_MIN_CONNS (%d) exceeds DATABASE_MAX_CONNS (%d)", s.Postgres.MinConns, s.Postgres.MaxConns)
		}
	case DriverMongo:
		if s.Mongo.URI == "" {
			return errors.New("MONGO_URI is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want memory, sqlite, postgres or mongo)", s.Driver)
	}
	return nil
}

func (r ReminderConfig) validate() error {
	if r.ThresholdDays <= 0 {
		return fmt.Errorf("REMINDER_THRESHOLD_DAYS must be > 0 (got %d)", r.ThresholdDays)
	}
	if r.SendRate < 0 {
		return fmt.Errorf("REMINDER_SEND_RATE must be >= 0 (got %v)", r.SendRate)
	}
	if _, err := r.Location(); err != nil {
		return err
	}
	return nil
}
