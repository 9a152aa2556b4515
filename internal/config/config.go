// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidInterval is returned when FRAME_INTERVAL is less than 1.
	ErrInvalidInterval = errors.New("config: FRAME_INTERVAL must be >= 1")
	// ErrInvalidWorkers is returned when WORKERS is less than 1.
	ErrInvalidWorkers = errors.New("config: WORKERS must be >= 1")
)

// Config holds all configuration for the application.
type Config struct {
	// Frame directories
	FramesRoot    string `env:"FRAMES_ROOT, default=data/frames" json:"frames_root"`
	ProcessedRoot string `env:"PROCESSED_ROOT, default=data/processed_frames" json:"processed_root"`

	// Extraction settings
	FrameInterval int `env:"FRAME_INTERVAL, default=5" json:"frame_interval" validate:"min=1"`

	// Processing settings
	Workers int `env:"WORKERS, default=4" json:"workers" validate:"min=1"`

	// OCR settings
	OCRLanguages   string `env:"OCR_LANGUAGES, default=eng+fra+spa+deu+ita+por+rus+jpn+chi_sim+chi_tra" json:"ocr_languages"`
	TessdataPrefix string `env:"TESSDATA_PREFIX" json:"tessdata_prefix,omitempty"`
	EnhanceText    bool   `env:"ENHANCE_TEXT, default=false" json:"enhance_text"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig.
// The loaded configuration is validated before being returned.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.Field() {
				case "FrameInterval":
					return ErrInvalidInterval
				case "Workers":
					return ErrInvalidWorkers
				}
			}
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{FramesRoot: %s, ProcessedRoot: %s, FrameInterval: %d, Workers: %d, OCRLanguages: %s, TessdataPrefix: %s, EnhanceText: %t, LogFormat: %s, LogLevel: %s}",
		c.FramesRoot,
		c.ProcessedRoot,
		c.FrameInterval,
		c.Workers,
		c.OCRLanguages,
		c.TessdataPrefix,
		c.EnhanceText,
		c.LogFormat,
		c.LogLevel,
	)
}

// Level exposes the parsed slog level for handlers configured outside
// this package.
func (c *Config) Level() slog.Level {
	return parseLogLevel(c.LogLevel)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
