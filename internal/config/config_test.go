package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv() {
	os.Unsetenv("FRAMES_ROOT")
	os.Unsetenv("PROCESSED_ROOT")
	os.Unsetenv("FRAME_INTERVAL")
	os.Unsetenv("WORKERS")
	os.Unsetenv("OCR_LANGUAGES")
	os.Unsetenv("TESSDATA_PREFIX")
	os.Unsetenv("ENHANCE_TEXT")
	os.Unsetenv("LOG_FORMAT")
	os.Unsetenv("LOG_LEVEL")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/frames", cfg.FramesRoot)
	assert.Equal(t, "data/processed_frames", cfg.ProcessedRoot)
	assert.Equal(t, 5, cfg.FrameInterval)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "eng+fra+spa+deu+ita+por+rus+jpn+chi_sim+chi_tra", cfg.OCRLanguages)
	assert.Empty(t, cfg.TessdataPrefix)
	assert.False(t, cfg.EnhanceText)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("FRAMES_ROOT", "/custom/frames")
	t.Setenv("PROCESSED_ROOT", "/custom/processed")
	t.Setenv("FRAME_INTERVAL", "10")
	t.Setenv("WORKERS", "8")
	t.Setenv("OCR_LANGUAGES", "eng")
	t.Setenv("TESSDATA_PREFIX", "/usr/share/tessdata")
	t.Setenv("ENHANCE_TEXT", "true")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/custom/frames", cfg.FramesRoot)
	assert.Equal(t, "/custom/processed", cfg.ProcessedRoot)
	assert.Equal(t, 10, cfg.FrameInterval)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "eng", cfg.OCRLanguages)
	assert.Equal(t, "/usr/share/tessdata", cfg.TessdataPrefix)
	assert.True(t, cfg.EnhanceText)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("non-numeric interval", func(t *testing.T) {
		t.Setenv("FRAME_INTERVAL", "not-a-number")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("zero interval", func(t *testing.T) {
		t.Setenv("FRAME_INTERVAL", "0")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("zero workers", func(t *testing.T) {
		t.Setenv("WORKERS", "0")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidWorkers)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{FrameInterval: 1, Workers: 1}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("negative interval", func(t *testing.T) {
		cfg := &Config{FrameInterval: -3, Workers: 2}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidInterval)
	})

	t.Run("negative workers", func(t *testing.T) {
		cfg := &Config{FrameInterval: 5, Workers: -1}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidWorkers)
	})
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		FramesRoot:    "/data/frames",
		ProcessedRoot: "/data/processed",
		FrameInterval: 5,
		Workers:       4,
		OCRLanguages:  "eng+fra",
		LogFormat:     "json",
		LogLevel:      "info",
	}

	str := cfg.String()

	assert.Contains(t, str, "/data/frames")
	assert.Contains(t, str, "/data/processed")
	assert.Contains(t, str, "eng+fra")
}

func TestConfig_NewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		cfg := &Config{LogFormat: "json", LogLevel: "info"}
		require.NotNil(t, cfg.NewLogger())
	})

	t.Run("text", func(t *testing.T) {
		cfg := &Config{LogFormat: "text", LogLevel: "debug"}
		require.NotNil(t, cfg.NewLogger())
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
