// Package config holds runtime settings. Values are layered: defaults, a
// YAML file, environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete settings tree.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Headless  bool   `yaml:"headless"`
	Timeout   int    `yaml:"timeout"` // seconds, 0 is unlimited
	Encoding  string `yaml:"encoding"`

	Engine  EngineConfig  `yaml:"engine"`
	Canvas  CanvasConfig  `yaml:"canvas"`
	Session SessionConfig `yaml:"session"`
	Audio   AudioConfig   `yaml:"audio"`
	Window  WindowConfig  `yaml:"window"`
}

// EngineConfig configures the interpreter.
type EngineConfig struct {
	MaxIterations int   `yaml:"max_iterations"`
	MinDeltaMS    int   `yaml:"min_delta_ms"`
	MaxDeltaMS    int   `yaml:"max_delta_ms"`
	MaxCallDepth  int   `yaml:"max_call_depth"`
	Debug         bool  `yaml:"debug"`
	Breakpoints   []int `yaml:"breakpoints"`
}

// CanvasConfig is the logical drawing area.
type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// SessionConfig locates saved sessions.
type SessionConfig struct {
	Dir string `yaml:"dir"`
}

// AudioConfig configures the mixer.
type AudioConfig struct {
	SoundFont string  `yaml:"soundfont"`
	Muted     bool    `yaml:"muted"`
	Volume    float64 `yaml:"volume"`
}

// WindowConfig configures the desktop window.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Encodings accepted for program sources.
var Encodings = []string{"auto", "utf-8", "shift-jis", "euc-jp", "windows-1252"}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Encoding:  "auto",
		Engine: EngineConfig{
			MaxIterations: 10000,
			MinDeltaMS:    1,
			MaxDeltaMS:    100,
			MaxCallDepth:  64,
		},
		Canvas:  CanvasConfig{Width: 640, Height: 480},
		Session: SessionConfig{Dir: "~/.templecode/saves"},
		Audio:   AudioConfig{Volume: 0.5},
		Window:  WindowConfig{Title: "TempleCode", Width: 960, Height: 720},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a YAML document over the defaults. An empty document
// yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from HEADLESS, TIMEOUT, LOG_LEVEL,
// TEMPLECODE_ENCODING and TEMPLECODE_SAVE_DIR.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if v, ok := lookup("HEADLESS"); ok && v != "" {
		c.Headless = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := lookup("TIMEOUT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: TIMEOUT: %w", err)
		}
		c.Timeout = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup("TEMPLECODE_ENCODING"); ok && v != "" {
		c.Encoding = strings.ToLower(v)
	}
	if v, ok := lookup("TEMPLECODE_SAVE_DIR"); ok && v != "" {
		c.Session.Dir = v
	}
	return nil
}

// TimeoutDuration returns Timeout as a duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ValidationError aggregates every rejected setting.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs ValidationError
	issue := func(format string, args ...any) {
		errs.Issues = append(errs.Issues, fmt.Sprintf(format, args...))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		issue("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		issue("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.Timeout < 0 {
		issue("timeout must be non-negative, got %d", c.Timeout)
	}
	if !validEncoding(c.Encoding) {
		issue("encoding must be one of %s, got %q", strings.Join(Encodings, ", "), c.Encoding)
	}

	e := c.Engine
	if e.MaxIterations <= 0 {
		issue("engine.max_iterations must be positive, got %d", e.MaxIterations)
	}
	if e.MaxCallDepth <= 0 {
		issue("engine.max_call_depth must be positive, got %d", e.MaxCallDepth)
	}
	if e.MinDeltaMS < 0 || e.MaxDeltaMS < e.MinDeltaMS {
		issue("engine delta range must satisfy 0 <= min_delta_ms <= max_delta_ms, got %d..%d", e.MinDeltaMS, e.MaxDeltaMS)
	}
	for i, bp := range e.Breakpoints {
		if bp < 1 {
			issue("engine.breakpoints[%d] must be a 1-based line number, got %d", i, bp)
		}
	}

	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		issue("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		issue("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		issue("audio.volume must be between 0 and 1, got %g", c.Audio.Volume)
	}
	if c.Session.Dir == "" {
		issue("session.dir must be provided")
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func validEncoding(name string) bool {
	for _, e := range Encodings {
		if e == name {
			return true
		}
	}
	return false
}

// MinDelta returns the tick clamp lower bound.
func (e EngineConfig) MinDelta() time.Duration {
	return time.Duration(e.MinDeltaMS) * time.Millisecond
}

// MaxDelta returns the tick clamp upper bound.
func (e EngineConfig) MaxDelta() time.Duration {
	return time.Duration(e.MaxDeltaMS) * time.Millisecond
}
