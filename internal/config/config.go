// Package config loads ablizer settings from defaults, an optional YAML
// file, a .env file and ABLIZER_* environment variables, in increasing
// order of precedence. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ablizer/ablizer/internal/stats"
)

const (
	// DefaultFile is read when present; a missing default file is not an error.
	DefaultFile = ".ablizer.yaml"
	// EnvFile is loaded into the process environment when present.
	EnvFile = ".env"

	EnvDBPath   = "ABLIZER_DB_PATH"
	EnvAlpha    = "ABLIZER_ALPHA"
	EnvLogLevel = "ABLIZER_LOG_LEVEL"
)

type Config struct {
	DBPath   string  `yaml:"db_path"`
	Alpha    float64 `yaml:"alpha"`
	LogLevel string  `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DBPath:   "./ablizer.db",
		Alpha:    stats.DefaultAlpha,
		LogLevel: "info",
	}
}

// Load builds the configuration. An empty path means DefaultFile.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := loadEnvFile(EnvFile); err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	// Existing variables win over the file.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if fileCfg.DBPath != "" {
		c.DBPath = fileCfg.DBPath
	}
	if fileCfg.Alpha != 0 {
		c.Alpha = fileCfg.Alpha
	}
	if fileCfg.LogLevel != "" {
		c.LogLevel = fileCfg.LogLevel
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.DBPath = getEnvOrDefault(EnvDBPath, c.DBPath)
	c.LogLevel = getEnvOrDefault(EnvLogLevel, c.LogLevel)

	if v := os.Getenv(EnvAlpha); v != "" {
		alpha, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvAlpha, v, err)
		}
		c.Alpha = alpha
	}
	return nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if !(c.Alpha > 0 && c.Alpha < 1) {
		return fmt.Errorf("alpha must be between 0 and 1, got %v", c.Alpha)
	}
	if _, err := charmlog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level returns the parsed log level. Call Validate first.
func (c *Config) Level() charmlog.Level {
	level, err := charmlog.ParseLevel(c.LogLevel)
	if err != nil {
		return charmlog.InfoLevel
	}
	return level
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
