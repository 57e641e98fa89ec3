package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server holds HTTP server settings.
type Server struct {
	Address string `mapstructure:"address"`
	Debug   bool   `mapstructure:"debug"`
}

// DB holds database connection settings.
type DB struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Storage describes the report file store.
type Storage struct {
	Type     string `mapstructure:"type"`
	BasePath string `mapstructure:"basepath"`
	S3       S3     `mapstructure:"s3"`
}

// S3 holds settings for an S3-compatible storage backend.
type S3 struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Reports holds report generation and retention settings.
type Reports struct {
	// TemplateDir is where seeded template assets live.
	TemplateDir string `mapstructure:"template_dir"`
	// Retention is how long a generated report stays downloadable.
	Retention time.Duration `mapstructure:"retention"`
	// SweepInterval is how often the periodic expiry sweep runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// DataSource selects the fetcher implementation: "db" or "synthetic".
	DataSource string `mapstructure:"data_source"`
}

// Logging holds logrus settings.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LogSvc holds settings for the log-access service.
type LogSvc struct {
	Address string `mapstructure:"address"`
	// File is the log file served (and written) by the service.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Config aggregates all configuration sections.
type Config struct {
	Server  Server  `mapstructure:"server"`
	DB      DB      `mapstructure:"database"`
	Storage Storage `mapstructure:"storage"`
	Reports Reports `mapstructure:"reports"`
	Logging Logging `mapstructure:"logging"`
	LogSvc  LogSvc  `mapstructure:"logsvc"`
}

// Load reads configuration from file and environment via viper.
func Load() (Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/forecast-srv")

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// The config file is optional, env vars and defaults are enough.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.address", ":8004")
	viper.SetDefault("server.debug", true)

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "forecast.db")

	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.basepath", "./reports")
	viper.SetDefault("storage.s3.region", "us-east-1")
	viper.SetDefault("storage.s3.bucket", "forecast-reports")
	viper.SetDefault("storage.s3.endpoint", "")
	viper.SetDefault("storage.s3.access_key", "")
	viper.SetDefault("storage.s3.secret_key", "")

	viper.SetDefault("reports.template_dir", "./templates")
	viper.SetDefault("reports.retention", time.Hour)
	viper.SetDefault("reports.sweep_interval", 10*time.Minute)
	viper.SetDefault("reports.data_source", "db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("logsvc.address", ":8005")
	viper.SetDefault("logsvc.file", "./logs/app.log")
	viper.SetDefault("logsvc.max_size_mb", 50)
	viper.SetDefault("logsvc.max_backups", 3)
}

func validateConfig(cfg Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}

	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "sqlite" {
		return fmt.Errorf("database driver must be 'postgres' or 'sqlite', got: %s", cfg.DB.Driver)
	}
	if cfg.DB.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}

	if cfg.Storage.Type != "local" && cfg.Storage.Type != "s3" {
		return fmt.Errorf("storage type must be 'local' or 's3', got: %s", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "local" && cfg.Storage.BasePath == "" {
		return fmt.Errorf("storage basepath cannot be empty for local storage")
	}
	if cfg.Storage.Type == "s3" {
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("S3 region cannot be empty")
		}
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
	}

	if cfg.Reports.Retention <= 0 {
		return fmt.Errorf("reports retention must be positive")
	}
	if cfg.Reports.SweepInterval <= 0 {
		return fmt.Errorf("reports sweep interval must be positive")
	}
	if cfg.Reports.DataSource != "db" && cfg.Reports.DataSource != "synthetic" {
		return fmt.Errorf("reports data_source must be 'db' or 'synthetic', got: %s", cfg.Reports.DataSource)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	isValidLevel := false
	for _, level := range validLogLevels {
		if strings.ToLower(cfg.Logging.Level) == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("invalid logging level: %s. Valid levels: %v", cfg.Logging.Level, validLogLevels)
	}

	return nil
}

// IsDevelopment reports whether the service runs in debug mode.
func (c Config) IsDevelopment() bool {
	return c.Server.Debug
}

// String returns a printable representation without sensitive values.
func (c Config) String() string {
	return fmt.Sprintf("Config{Server: %+v, DB: {Driver: %s, DSN: [HIDDEN]}, Storage: %+v, Reports: %+v, Logging: %+v, LogSvc: %+v}",
		c.Server, c.DB.Driver, c.Storage, c.Reports, c.Logging, c.LogSvc)
}
