package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestDecode(t *testing.T) {
	doc := `
engine:
  max_iterations: 500
  debug: true
  breakpoints: [3, 7]
canvas: {width: 800, height: 600}
audio: {soundfont: "gm.sf2", volume: 0.25}
`
	cfg, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.Engine.MaxIterations != 500 || !cfg.Engine.Debug || len(cfg.Engine.Breakpoints) != 2 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Canvas.Width != 800 || cfg.Audio.SoundFont != "gm.sf2" || cfg.Audio.Volume != 0.25 {
		t.Errorf("cfg = %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.Engine.MaxCallDepth != 64 || cfg.Window.Title != "TempleCode" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.Engine.MaxIterations != 10000 {
		t.Errorf("max_iterations = %d", cfg.Engine.MaxIterations)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	if _, err := Decode(strings.NewReader("engine:\n  max_iteration: 5\n")); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templecode.yaml")
	if err := os.WriteFile(path, []byte("window: {title: Demo}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Window.Title != "Demo" {
		t.Errorf("title = %q", cfg.Window.Title)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"HEADLESS":            "true",
		"TIMEOUT":             "30",
		"LOG_LEVEL":           "DEBUG",
		"TEMPLECODE_ENCODING": "Shift-JIS",
		"TEMPLECODE_SAVE_DIR": "/tmp/saves",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if !cfg.Headless || cfg.TimeoutDuration() != 30*time.Second || cfg.LogLevel != "debug" ||
		cfg.Encoding != "shift-jis" || cfg.Session.Dir != "/tmp/saves" {
		t.Errorf("cfg = %+v", cfg)
	}

	env = map[string]string{"TIMEOUT": "soon"}
	if err := Default().ApplyEnv(lookup); err == nil {
		t.Error("expected error for bad TIMEOUT")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"timeout", func(c *Config) { c.Timeout = -1 }, "timeout"},
		{"encoding", func(c *Config) { c.Encoding = "ebcdic" }, "encoding"},
		{"iterations", func(c *Config) { c.Engine.MaxIterations = 0 }, "max_iterations"},
		{"depth", func(c *Config) { c.Engine.MaxCallDepth = -2 }, "max_call_depth"},
		{"delta", func(c *Config) { c.Engine.MinDeltaMS = 50; c.Engine.MaxDeltaMS = 10 }, "delta range"},
		{"breakpoint", func(c *Config) { c.Engine.Breakpoints = []int{0} }, "breakpoints[0]"},
		{"canvas", func(c *Config) { c.Canvas.Width = 0 }, "canvas size"},
		{"window", func(c *Config) { c.Window.Height = -5 }, "window size"},
		{"volume", func(c *Config) { c.Audio.Volume = 2 }, "audio.volume"},
		{"session", func(c *Config) { c.Session.Dir = "" }, "session.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if len(verr.Issues) != 1 || !strings.Contains(verr.Issues[0], tt.want) {
				t.Errorf("issues = %q, want one mentioning %q", verr.Issues, tt.want)
			}
		})
	}
}

func TestDeltaDurations(t *testing.T) {
	e := Default().Engine
	if e.MinDelta() != time.Millisecond || e.MaxDelta() != 100*time.Millisecond {
		t.Errorf("delta = %v..%v", e.MinDelta(), e.MaxDelta())
	}
}
