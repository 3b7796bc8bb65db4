package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "cuesync.yaml"

// Config holds every tunable setting. Values are layered: defaults, the YAML
// file, a .env file, then CUESYNC_* environment variables. Command-line flags
// are applied last by the CLI.
type Config struct {
	Format string `yaml:"format"`

	Transcribe struct {
		Provider           string `yaml:"provider"`
		Model              string `yaml:"model"`
		Language           string `yaml:"language"`
		TranscriptLanguage string `yaml:"transcript_language"`
		ChunkMinutes       int    `yaml:"chunk_minutes"`
		Concurrency        int    `yaml:"concurrency"`
	} `yaml:"transcribe"`

	Translate struct {
		Provider    string `yaml:"provider"`
		Model       string `yaml:"model"`
		BatchSize   int    `yaml:"batch_size"`
		Concurrency int    `yaml:"concurrency"`
	} `yaml:"translate"`

	Clock struct {
		TickMS int     `yaml:"tick_ms"`
		Rate   float64 `yaml:"rate"`
	} `yaml:"clock"`

	Server struct {
		Listen   string `yaml:"listen"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"server"`

	FFmpeg struct {
		FFmpegPath  string `yaml:"ffmpeg_path"`
		FFprobePath string `yaml:"ffprobe_path"`
	} `yaml:"ffmpeg"`

	// never read from the YAML file
	APIKeys struct {
		Gemini    string `yaml:"-"`
		OpenAI    string `yaml:"-"`
		Anthropic string `yaml:"-"`
	} `yaml:"-"`
}

func Default() *Config {
	c := &Config{Format: "srt"}

	c.Transcribe.Provider = "gemini"
	c.Transcribe.TranscriptLanguage = "native"
	c.Transcribe.ChunkMinutes = 5
	c.Transcribe.Concurrency = 3

	c.Translate.Provider = "gemini"
	c.Translate.BatchSize = 50
	c.Translate.Concurrency = 3

	c.Clock.TickMS = 250
	c.Clock.Rate = 1

	c.Server.Listen = "127.0.0.1:8750"
	c.Server.LogLevel = "info"

	return c
}

// Load builds the configuration. A missing file at path is ignored unless
// required is set, which the CLI does when --config was given explicitly.
// envFiles default to ".env"; missing ones are skipped.
func Load(path string, required bool, envFiles ...string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("CUESYNC_FORMAT", &c.Format)
	str("CUESYNC_TRANSCRIBE_PROVIDER", &c.Transcribe.Provider)
	str("CUESYNC_TRANSCRIBE_MODEL", &c.Transcribe.Model)
	str("CUESYNC_TRANSLATE_PROVIDER", &c.Translate.Provider)
	str("CUESYNC_TRANSLATE_MODEL", &c.Translate.Model)
	str("CUESYNC_LISTEN", &c.Server.Listen)
	str("CUESYNC_LOG_LEVEL", &c.Server.LogLevel)
	str("CUESYNC_FFMPEG_PATH", &c.FFmpeg.FFmpegPath)
	str("CUESYNC_FFPROBE_PATH", &c.FFmpeg.FFprobePath)
	str("GEMINI_API_KEY", &c.APIKeys.Gemini)
	str("OPENAI_API_KEY", &c.APIKeys.OpenAI)
	str("ANTHROPIC_API_KEY", &c.APIKeys.Anthropic)

	if err := num("CUESYNC_TICK_MS", &c.Clock.TickMS); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("CUESYNC_CLOCK_RATE")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CUESYNC_CLOCK_RATE: %w", err)
		}
		c.Clock.Rate = f
	}
	return nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Format) {
	case "srt", "vtt", "ass":
	default:
		return fmt.Errorf("format must be srt, vtt or ass, got %q", c.Format)
	}
	if c.Clock.TickMS <= 0 {
		return fmt.Errorf("clock.tick_ms must be positive, got %d", c.Clock.TickMS)
	}
	if c.Clock.Rate <= 0 {
		return fmt.Errorf("clock.rate must be positive, got %v", c.Clock.Rate)
	}
	if c.Transcribe.ChunkMinutes <= 0 {
		return fmt.Errorf("transcribe.chunk_minutes must be positive, got %d", c.Transcribe.ChunkMinutes)
	}
	if c.Translate.BatchSize <= 0 || c.Translate.Concurrency <= 0 || c.Transcribe.Concurrency <= 0 {
		return fmt.Errorf("batch size and concurrency must be positive")
	}
	return nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Clock.TickMS) * time.Millisecond
}

// APIKey returns the key for an AI provider or an error naming the
// variable to set.
func (c *Config) APIKey(provider string) (string, error) {
	var key, env string
	switch strings.ToLower(provider) {
	case "gemini":
		key, env = c.APIKeys.Gemini, "GEMINI_API_KEY"
	case "openai":
		key, env = c.APIKeys.OpenAI, "OPENAI_API_KEY"
	case "anthropic":
		key, env = c.APIKeys.Anthropic, "ANTHROPIC_API_KEY"
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
	if key == "" {
		return "", fmt.Errorf("API key is required: use --api-key flag or set %s environment variable", env)
	}
	return key, nil
}
