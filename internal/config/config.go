// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Rewards  RewardsConfig  `mapstructure:"rewards"`
	Poller   PollerConfig   `mapstructure:"poller"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// BattleConfig holds program-week configuration. Epoch is the first day
// of program week 1; weeks run seven days from it, and the seventh day
// is results day.
type BattleConfig struct {
	Epoch    string `mapstructure:"epoch"`
	Timezone string `mapstructure:"timezone"`
}

// RewardsConfig holds XP reward configuration.
type RewardsConfig struct {
	BaseXP   int64 `mapstructure:"base_xp"`
	MVPBonus int64 `mapstructure:"mvp_bonus"`
}

// PollerConfig holds background refresh configuration.
type PollerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Enabled  bool          `mapstructure:"enabled"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// EpochDate parses the configured program epoch in the configured
// timezone. The epoch must be a date (YYYY-MM-DD).
func (b *BattleConfig) EpochDate() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("failed to load timezone %q: %w", b.Timezone, err)
	}
	epoch, err := time.ParseInLocation("2006-01-02", b.Epoch, loc)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("failed to parse battle epoch %q: %w", b.Epoch, err)
	}
	return epoch, loc, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// e.g., SERVER_ADDR, DATABASE_HOST, BATTLE_EPOCH
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "battle")
	v.SetDefault("database.name", "battle")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Battle week defaults: weeks start on the epoch's weekday, seventh
	// day of each program week is results day.
	v.SetDefault("battle.epoch", "2025-06-01")
	v.SetDefault("battle.timezone", "UTC")

	// Reward defaults
	v.SetDefault("rewards.base_xp", 25)
	v.SetDefault("rewards.mvp_bonus", 25)

	// Poller defaults
	v.SetDefault("poller.enabled", true)
	v.SetDefault("poller.interval", "30s")
}
