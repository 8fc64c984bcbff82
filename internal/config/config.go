package config

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/capture"
)

// Config represents the complete service configuration
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Audio    AudioConfig    `yaml:"audio"`
	Playback PlaybackConfig `yaml:"playback"`
	Render   RenderConfig   `yaml:"render"`
	Capture  CaptureConfig  `yaml:"capture"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// AudioConfig contains the PCM contract for script audio payloads
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// PlaybackConfig contains pacing parameters for segments without usable audio
type PlaybackConfig struct {
	FallbackFloorMs int `yaml:"fallback_floor_ms"` // minimum fallback duration
	PerWordMs       int `yaml:"per_word_ms"`       // reading time per word
	CharsPerWord    int `yaml:"chars_per_word"`
}

// RenderConfig contains the presentation surface parameters
type RenderConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"` // hex, e.g. "#000000"
}

// CaptureConfig contains media export configuration
type CaptureConfig struct {
	FrameRate  int                 `yaml:"frame_rate"`
	FFmpegPath string              `yaml:"ffmpeg_path"`
	Containers []capture.Container `yaml:"containers"` // preference order; empty means built-in defaults
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}

	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("render config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates the audio contract. Script payloads are raw PCM with a
// fixed format, so anything else is a deployment mistake.
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 24000 {
		return fmt.Errorf("sample_rate must be 24000 Hz for script audio, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono) for script audio, got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16 for script audio, got %d", a.BitDepth)
	}

	return nil
}

// Validate validates playback pacing configuration
func (p *PlaybackConfig) Validate() error {
	if p.FallbackFloorMs < 1 {
		return fmt.Errorf("fallback_floor_ms must be at least 1, got %d", p.FallbackFloorMs)
	}

	if p.PerWordMs < 1 {
		return fmt.Errorf("per_word_ms must be at least 1, got %d", p.PerWordMs)
	}

	if p.CharsPerWord < 1 {
		return fmt.Errorf("chars_per_word must be at least 1, got %d", p.CharsPerWord)
	}

	return nil
}

// Validate validates render surface configuration
func (r *RenderConfig) Validate() error {
	if r.Width < 1 {
		return fmt.Errorf("width must be positive, got %d", r.Width)
	}

	if r.Height < 1 {
		return fmt.Errorf("height must be positive, got %d", r.Height)
	}

	if _, err := parseHexColor(r.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.FrameRate < 1 || c.FrameRate > 120 {
		return fmt.Errorf("frame_rate must be between 1 and 120, got %d", c.FrameRate)
	}

	if c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}

	for i, container := range c.Containers {
		if container.Name == "" || container.Extension == "" || container.VideoCodec == "" {
			return fmt.Errorf("containers[%d] must set name, extension and video_codec", i)
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetFallbackFloor returns the fallback floor as a time.Duration
func (p *PlaybackConfig) GetFallbackFloor() time.Duration {
	return time.Duration(p.FallbackFloorMs) * time.Millisecond
}

// GetPerWord returns the per-word reading budget as a time.Duration
func (p *PlaybackConfig) GetPerWord() time.Duration {
	return time.Duration(p.PerWordMs) * time.Millisecond
}

// GetBackgroundColor returns the parsed background color
func (r *RenderConfig) GetBackgroundColor() color.RGBA {
	c, err := parseHexColor(r.Background)
	if err != nil {
		// Validate rejects unparseable values before this is reachable.
		return color.RGBA{A: 255}
	}
	return c
}

// GetContainers returns the configured container preference order, or the
// built-in defaults when none are configured.
func (c *CaptureConfig) GetContainers() []capture.Container {
	if len(c.Containers) == 0 {
		return capture.DefaultCandidates()
	}
	return c.Containers
}

// parseHexColor parses "#RRGGBB" into an opaque RGBA color.
func parseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("expected color in #RRGGBB form, got '%s'", s)
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color '%s': %w", s, err)
	}

	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
