// Package config loads settings from flags, environment and config.yaml
// through viper, and validates them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Record       RecordConfig     `mapstructure:"record"`
	Audio        AudioConfig      `mapstructure:"audio"`
	Recognizer   RecognizerConfig `mapstructure:"recognizer"`
	Classifier   ClassifierConfig `mapstructure:"classifier"`
	Images       ImagesConfig     `mapstructure:"images"`
	GeminiAPIKey string           `mapstructure:"gemini_api_key"`
	DatabaseURL  string           `mapstructure:"database_url"`
	HTTPPort     int              `mapstructure:"http_port" validate:"min=1,max=65535"`
}

type RecordConfig struct {
	// Duration is in whole seconds.
	Duration  int    `mapstructure:"duration" validate:"min=3,max=10"`
	Genre     string `mapstructure:"genre" validate:"genre"`
	Platform  string `mapstructure:"platform" validate:"platform"`
	DrainTail bool   `mapstructure:"drain_tail"`
	QueueSize int    `mapstructure:"queue_size" validate:"min=1,max=4096"`
}

func (r RecordConfig) DurationTime() time.Duration {
	return time.Duration(r.Duration) * time.Second
}

type AudioConfig struct {
	Command string `mapstructure:"command" validate:"oneof=arecord sox ffmpeg"`
	Device  string `mapstructure:"device"`
	// Input replays a WAV file instead of opening the microphone.
	Input string `mapstructure:"input"`
}

type RecognizerConfig struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type ClassifierConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=http gemini"`
	URL     string `mapstructure:"url" validate:"required_if=Backend http"`
	Format  string `mapstructure:"format" validate:"oneof=detect huggingface"`
	Token   string `mapstructure:"token"`
	Model   string `mapstructure:"model"`
}

type ImagesConfig struct {
	Dir string `mapstructure:"dir"`
}

// SetDefaults registers every key so that AutomaticEnv can see it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("record.duration", 5)
	v.SetDefault("record.genre", "pop")
	v.SetDefault("record.platform", "spotify")
	v.SetDefault("record.drain_tail", false)
	v.SetDefault("record.queue_size", 64)

	v.SetDefault("audio.command", "arecord")
	v.SetDefault("audio.device", "")
	v.SetDefault("audio.input", "")

	v.SetDefault("recognizer.url", "ws://localhost:2700")
	v.SetDefault("recognizer.timeout", "5s")

	v.SetDefault("classifier.backend", "http")
	v.SetDefault("classifier.url", "http://localhost:8000")
	v.SetDefault("classifier.format", "detect")
	v.SetDefault("classifier.token", "")
	v.SetDefault("classifier.model", "")

	v.SetDefault("images.dir", "images")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("database_url", "")
	v.SetDefault("http_port", 8081)
}

// Load reads v into a Config over the defaults and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Record.Platform = strings.ToLower(strings.TrimSpace(cfg.Record.Platform))
	cfg.Classifier.Backend = strings.ToLower(strings.TrimSpace(cfg.Classifier.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := NewValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %s", strings.Join(FormatValidationErrors(err), ", "))
	}
	if c.Classifier.Backend == "gemini" && c.GeminiAPIKey == "" {
		return errors.New("invalid config: gemini classifier needs gemini_api_key")
	}
	return nil
}
