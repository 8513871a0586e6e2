package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.yaml"

// Loader assembles the runtime configuration from defaults, an optional YAML
// file, and environment variables, in that order of precedence.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader reading the default config file location.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      defaultConfigFile,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the YAML config file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the configuration. A missing config file is not an error; a
// missing API key is.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using process environment")
		}
	}

	cfg := DefaultConfig()
	origin := "defaults"

	path := l.path
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		path = env
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		origin = path
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   origin,
	}, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Server.Debug = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Classifier.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" {
		cfg.Classifier.BaseURL = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		cfg.Classifier.ModelName = v
	}
	if v := os.Getenv("MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Classifier.MaxTokens = n
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Classifier.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("UPLOAD_FOLDER"); v != "" {
		cfg.Upload.Dir = v
	}
	if v := os.Getenv("MAX_IMAGE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Security.MaxFileSize = n
		}
	}

	if cfg.Server.Debug && strings.EqualFold(cfg.Log.Level, "info") {
		cfg.Log.Level = "DEBUG"
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Classifier.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY not found in environment or config file")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Classifier.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request timeout: %d", cfg.Classifier.TimeoutSeconds)
	}
	if cfg.Security.MaxFileSize <= 0 {
		return fmt.Errorf("invalid max image size: %d", cfg.Security.MaxFileSize)
	}
	return nil
}
