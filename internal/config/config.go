package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AlertsConfig tunes alert presentation behavior
type AlertsConfig struct {
	QuietStartHour     int `mapstructure:"quiet_start_hour"`
	QuietEndHour       int `mapstructure:"quiet_end_hour"`
	DedupeWindowMins   int `mapstructure:"dedupe_window_minutes"`
	MaxImportantToasts int `mapstructure:"max_important_toasts"`
	SnoozeMinutes      int `mapstructure:"snooze_minutes"`
}

// RefreshConfig holds the evaluation timer intervals
type RefreshConfig struct {
	DataInterval  time.Duration `mapstructure:"data_interval"`
	ClockInterval time.Duration `mapstructure:"clock_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // log rotation threshold when writing to a file
	MaxBackups int    `mapstructure:"max_backups"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/console.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Alert presentation defaults
	viper.SetDefault("alerts.quiet_start_hour", 22)
	viper.SetDefault("alerts.quiet_end_hour", 7)
	viper.SetDefault("alerts.dedupe_window_minutes", 120)
	viper.SetDefault("alerts.max_important_toasts", 3)
	viper.SetDefault("alerts.snooze_minutes", 30)

	// Refresh defaults
	viper.SetDefault("refresh.data_interval", 30*time.Second)
	viper.SetDefault("refresh.clock_interval", 60*time.Second)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("logger.max_size_mb", 100)
	viper.SetDefault("logger.max_backups", 3)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Alerts.QuietStartHour < 0 || c.Alerts.QuietStartHour > 23 {
		return fmt.Errorf("alerts.quiet_start_hour must be between 0 and 23")
	}
	if c.Alerts.QuietEndHour < 0 || c.Alerts.QuietEndHour > 23 {
		return fmt.Errorf("alerts.quiet_end_hour must be between 0 and 23")
	}
	if c.Alerts.DedupeWindowMins <= 0 {
		return fmt.Errorf("alerts.dedupe_window_minutes must be positive")
	}
	if c.Alerts.MaxImportantToasts <= 0 {
		return fmt.Errorf("alerts.max_important_toasts must be positive")
	}
	if c.Alerts.SnoozeMinutes <= 0 {
		return fmt.Errorf("alerts.snooze_minutes must be positive")
	}

	if c.Refresh.DataInterval <= 0 {
		return fmt.Errorf("refresh.data_interval must be positive")
	}
	if c.Refresh.ClockInterval <= 0 {
		return fmt.Errorf("refresh.clock_interval must be positive")
	}

	return nil
}
