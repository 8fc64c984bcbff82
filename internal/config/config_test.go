package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
		},
		Audio: AudioConfig{
			SampleRate: 24000,
			Channels:   1,
			BitDepth:   16,
		},
		Playback: PlaybackConfig{
			FallbackFloorMs: 2000,
			PerWordMs:       300,
			CharsPerWord:    5,
		},
		Render: RenderConfig{
			Width:      1280,
			Height:     720,
			Background: "#000000",
		},
		Capture: CaptureConfig{
			FrameRate:  30,
			FFmpegPath: "ffmpeg",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid http port",
			mutate:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name:        "invalid audio sample rate",
			mutate:      func(c *Config) { c.Audio.SampleRate = 16000 },
			expectError: true,
			errorMsg:    "sample_rate must be 24000 Hz",
		},
		{
			name:        "invalid audio channels",
			mutate:      func(c *Config) { c.Audio.Channels = 2 },
			expectError: true,
			errorMsg:    "channels must be 1",
		},
		{
			name:        "zero fallback floor",
			mutate:      func(c *Config) { c.Playback.FallbackFloorMs = 0 },
			expectError: true,
			errorMsg:    "fallback_floor_ms must be at least 1",
		},
		{
			name:        "zero surface width",
			mutate:      func(c *Config) { c.Render.Width = 0 },
			expectError: true,
			errorMsg:    "width must be positive",
		},
		{
			name:        "malformed background color",
			mutate:      func(c *Config) { c.Render.Background = "black" },
			expectError: true,
			errorMsg:    "#RRGGBB",
		},
		{
			name:        "invalid frame rate",
			mutate:      func(c *Config) { c.Capture.FrameRate = 0 },
			expectError: true,
			errorMsg:    "frame_rate must be between 1 and 120",
		},
		{
			name:        "empty ffmpeg path",
			mutate:      func(c *Config) { c.Capture.FFmpegPath = "" },
			expectError: true,
			errorMsg:    "ffmpeg_path cannot be empty",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "trace" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
http:
  port: 8080
  address: "0.0.0.0"
audio:
  sample_rate: 24000
  channels: 1
  bit_depth: 16
playback:
  fallback_floor_ms: 2000
  per_word_ms: 300
  chars_per_word: 5
render:
  width: 1280
  height: 720
  background: "#1a1a2e"
capture:
  frame_rate: 30
  ffmpeg_path: "ffmpeg"
  containers:
    - name: "webm"
      extension: "webm"
      video_codec: "libvpx-vp9"
      audio_codec: "libopus"
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
http:
  port: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
http:
  port: 8080
  # missing address
`,
			expectError: true,
			errorMsg:    "address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	playback := PlaybackConfig{
		FallbackFloorMs: 2000,
		PerWordMs:       300,
	}

	if playback.GetFallbackFloor() != 2*time.Second {
		t.Errorf("Expected 2 seconds, got %v", playback.GetFallbackFloor())
	}

	if playback.GetPerWord() != 300*time.Millisecond {
		t.Errorf("Expected 300ms, got %v", playback.GetPerWord())
	}
}

func TestBackgroundColorParsing(t *testing.T) {
	render := RenderConfig{Width: 100, Height: 100, Background: "#1a2b3c"}
	if err := render.Validate(); err != nil {
		t.Fatalf("Valid color rejected: %v", err)
	}

	got := render.GetBackgroundColor()
	want := color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 255}
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCaptureContainerDefaults(t *testing.T) {
	capture := CaptureConfig{FrameRate: 30, FFmpegPath: "ffmpeg"}

	containers := capture.GetContainers()
	if len(containers) == 0 {
		t.Fatal("Expected built-in container defaults for empty config")
	}
	if containers[0].Name != "webm" {
		t.Errorf("Expected webm as preferred default, got %s", containers[0].Name)
	}
}

// Helper function to check if a string contains a substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > len(substr) && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
