package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Render  RenderConfig  `mapstructure:"render"`
	Serve   ServeConfig   `mapstructure:"serve"`
}

// ServerConfig holds the chat backend connection configuration
type ServerConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"-"`
	TimeoutStr string        `mapstructure:"timeout"` // For parsing string duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// RenderConfig holds transcript rendering configuration
type RenderConfig struct {
	Color       bool   `mapstructure:"color"`
	SyntaxTheme string `mapstructure:"syntax_theme"`
}

// ServeConfig holds the embedded development server configuration
type ServeConfig struct {
	Addr        string        `mapstructure:"addr"`
	ChunkDelay  time.Duration `mapstructure:"-"`
	ChunkDelayS string        `mapstructure:"chunk_delay"`
}

// Global config instance
var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from .env, the settings file, and the
// environment. Pass an empty cfgFile to use the default search paths.
func Load(cfgFile string) (*Config, error) {
	// A local .env seeds the process environment before viper reads it,
	// matching how the backend bootstraps its own provider settings.
	_ = godotenv.Load()

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./.loom")
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.AutomaticEnv()
	bindEnvironmentVariables()

	// Missing settings file is fine, defaults and env cover everything
	_ = viper.ReadInConfig()

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(cfg); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	return cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("server.url", "http://localhost:8000")
	viper.SetDefault("server.timeout", "90s")

	viper.SetDefault("logging.log_file", "./.loom/system.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("render.color", true)
	viper.SetDefault("render.syntax_theme", "monokai")

	viper.SetDefault("serve.addr", ":8000")
	viper.SetDefault("serve.chunk_delay", "25ms")
}

// bindEnvironmentVariables binds specific environment variables to Viper keys
func bindEnvironmentVariables() {
	viper.BindEnv("server.url", "LOOM_SERVER_URL")
	viper.BindEnv("server.timeout", "LOOM_SERVER_TIMEOUT")
	viper.BindEnv("logging.log_file", "LOOM_LOG_FILE")
	viper.BindEnv("logging.level", "LOOM_LOG_LEVEL")
	viper.BindEnv("logging.preserve", "LOOM_LOG_PRESERVE")
	viper.BindEnv("render.color", "LOOM_COLOR")
	viper.BindEnv("render.syntax_theme", "LOOM_SYNTAX_THEME")
	viper.BindEnv("serve.addr", "LOOM_SERVE_ADDR")
}

// processDurations converts string durations to time.Duration
func processDurations(cfg *Config) error {
	if cfg.Server.TimeoutStr != "" {
		d, err := time.ParseDuration(cfg.Server.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid server.timeout: %w", err)
		}
		cfg.Server.Timeout = d
	} else if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 90 * time.Second
	}

	if cfg.Serve.ChunkDelayS != "" {
		d, err := time.ParseDuration(cfg.Serve.ChunkDelayS)
		if err != nil {
			return fmt.Errorf("invalid serve.chunk_delay: %w", err)
		}
		cfg.Serve.ChunkDelay = d
	} else if cfg.Serve.ChunkDelay == 0 {
		cfg.Serve.ChunkDelay = 25 * time.Millisecond
	}

	return nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
