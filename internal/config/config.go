package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete wporder configuration
type Config struct {
	Table   TableConfig   `mapstructure:"table"`
	Publish PublishConfig `mapstructure:"publish"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TableConfig describes the rendered table the rows live in
type TableConfig struct {
	// HeaderRows is the number of non-data rows rendered above the first data row.
	// Observed row positions count these rows (default: 1)
	HeaderRows int `mapstructure:"header_rows"`
	// Container is the name the table body registers under with the gesture source
	Container string `mapstructure:"container"`
}

// PublishConfig controls how the persisted order reaches the remote end
type PublishConfig struct {
	// Immediate sends every change as it happens. When false, the order is only
	// picked up by the next full refresh
	Immediate bool `mapstructure:"immediate"`
	// TimeoutMs bounds a single order update (0 means no timeout)
	TimeoutMs int `mapstructure:"timeout_ms"`
	// Endpoint receives PATCH requests with the full order. Empty keeps the
	// order in memory only
	Endpoint string `mapstructure:"endpoint"`
	// APIBase prefixes work package hrefs in the payload
	APIBase string `mapstructure:"api_base"`
	// QueueSize preallocates the publish queue; it grows past this when needed
	QueueSize int `mapstructure:"queue_size"`
}

// ServerConfig controls the HTTP gesture surface
type ServerConfig struct {
	// Addr is the listen address for "wporder serve"
	Addr string `mapstructure:"addr"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is where wporder.log is written. Empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Table: TableConfig{
			HeaderRows: 1,
			Container:  "work-packages",
		},
		Publish: PublishConfig{
			Immediate: true,
			TimeoutMs: 10000,
			Endpoint:  "",
			APIBase:   "/api/v3",
			QueueSize: 16,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// Timeout returns the publish timeout as a time.Duration (0 means disabled)
func (c *PublishConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Table defaults
	viper.SetDefault("table.header_rows", defaults.Table.HeaderRows)
	viper.SetDefault("table.container", defaults.Table.Container)

	// Publish defaults
	viper.SetDefault("publish.immediate", defaults.Publish.Immediate)
	viper.SetDefault("publish.timeout_ms", defaults.Publish.TimeoutMs)
	viper.SetDefault("publish.endpoint", defaults.Publish.Endpoint)
	viper.SetDefault("publish.api_base", defaults.Publish.APIBase)
	viper.SetDefault("publish.queue_size", defaults.Publish.QueueSize)

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wporder")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wporder"
	}
	return filepath.Join(home, ".config", "wporder")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
