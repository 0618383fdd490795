package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Record.Duration != 5 || cfg.Record.DurationTime() != 5*time.Second {
		t.Errorf("duration = %d", cfg.Record.Duration)
	}
	if cfg.Record.Genre != "pop" || cfg.Record.Platform != "spotify" {
		t.Errorf("record = %+v", cfg.Record)
	}
	if cfg.Record.QueueSize != 64 || cfg.Record.DrainTail {
		t.Errorf("queue = %d drain = %v", cfg.Record.QueueSize, cfg.Record.DrainTail)
	}
	if cfg.Recognizer.URL != "ws://localhost:2700" || cfg.Recognizer.Timeout != 5*time.Second {
		t.Errorf("recognizer = %+v", cfg.Recognizer)
	}
	if cfg.Audio.Command != "arecord" || cfg.Images.Dir != "images" || cfg.HTTPPort != 8081 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
record:
  duration: 8
  genre: jazz
  platform: YouTube
recognizer:
  timeout: 2s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUDIO_COMMAND", "sox")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Record.Duration != 8 || cfg.Record.Genre != "jazz" {
		t.Errorf("record = %+v", cfg.Record)
	}
	if cfg.Record.Platform != "youtube" {
		t.Errorf("platform = %q", cfg.Record.Platform)
	}
	if cfg.Recognizer.Timeout != 2*time.Second {
		t.Errorf("timeout = %v", cfg.Recognizer.Timeout)
	}
	if cfg.Audio.Command != "sox" {
		t.Errorf("command = %q", cfg.Audio.Command)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		want string
	}{
		{"short duration", "record.duration", 2, "Duration"},
		{"long duration", "record.duration", 11, "Duration"},
		{"genre", "record.genre", "polka", "genre"},
		{"platform", "record.platform", "tidal", "platform"},
		{"recorder", "audio.command", "parecord", "Command"},
		{"backend", "classifier.backend", "openai", "Backend"},
		{"format", "classifier.format", "xml", "Format"},
		{"gemini key", "classifier.backend", "gemini", "gemini_api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestHTTPBackendNeedsURL(t *testing.T) {
	v := viper.New()
	v.Set("classifier.url", "")
	if _, err := Load(v); err == nil {
		t.Fatal("expected error for http backend without url")
	}

	v = viper.New()
	v.Set("classifier.url", "")
	v.Set("classifier.backend", "gemini")
	v.Set("gemini_api_key", "key")
	if _, err := Load(v); err != nil {
		t.Errorf("gemini backend without url: %v", err)
	}
}

func TestValidatorTags(t *testing.T) {
	type sample struct {
		Genre    string `validate:"genre"`
		Platform string `validate:"platform"`
		Label    string `validate:"label"`
	}
	v := NewValidator()

	if err := v.Struct(sample{"lofi", "spotify", "fear"}); err != nil {
		t.Errorf("valid sample: %v", err)
	}
	err := v.Struct(sample{"polka", "vinyl", "love"})
	if err == nil {
		t.Fatal("expected errors")
	}
	if got := FormatValidationErrors(err); len(got) != 3 {
		t.Errorf("got %d messages: %v", len(got), got)
	}
}
