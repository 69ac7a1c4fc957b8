// Package config loads downblog settings from a file, DOWNBLOG_* environment
// variables and bound command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreBBolt    = "bbolt"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StorePGX      = "pgx"
	StoreMongo    = "mongo"
)

// Keys understood by Load.
const (
	KeyStore      = "store"
	KeyDSN        = "dsn"
	KeyDataDir    = "data_dir"
	KeyDatabase   = "database"
	KeyCollection = "collection"
	KeyTable      = "table"
	KeyAddr       = "addr"
	KeyLogLevel   = "log_level"
)

const EnvPrefix = "DOWNBLOG"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting of the downblog command.
type Config struct {
	Store      string `mapstructure:"store"`
	DSN        string `mapstructure:"dsn"`
	DataDir    string `mapstructure:"data_dir"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	Table      string `mapstructure:"table"`
	Addr       string `mapstructure:"addr"`
	LogLevel   string `mapstructure:"log_level"`
}

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStore, StoreMemory)
	v.SetDefault(KeyDSN, "")
	v.SetDefault(KeyDataDir, "data")
	v.SetDefault(KeyDatabase, "blog")
	v.SetDefault(KeyCollection, "posts")
	v.SetDefault(KeyTable, "posts")
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyLogLevel, "info")
}

// Load reads the configuration. configFile may be empty; its format follows its extension.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the store kind, its connection settings and the log level.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreBBolt:
		if c.DataDir == "" {
			return fmt.Errorf("%w: %s store needs %s", ErrInvalidConfig, c.Store, KeyDataDir)
		}
	case StoreSQLite:
		if c.DSN == "" && c.DataDir == "" {
			return fmt.Errorf("%w: %s store needs %s or %s", ErrInvalidConfig, c.Store, KeyDSN, KeyDataDir)
		}
	case StorePostgres, StorePGX, StoreMongo:
		if c.DSN == "" {
			return fmt.Errorf("%w: %s store needs %s", ErrInvalidConfig, c.Store, KeyDSN)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// SQLiteDSN returns the DSN, or a database file inside the data directory.
func (c Config) SQLiteDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return filepath.Join(c.DataDir, "downblog.sqlite")
}

// Level parses the log level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
