package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default configuration values exported for documentation and validation.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultFPS            = 60
	DefaultMode           = "human"
	DefaultRecord         = "panes"
	DefaultLayout         = "auto"
	DefaultTTSModel       = "tts-1"
	DefaultTTSVoice       = "alloy"
	DefaultTTSSpeed       = 1.0
	DefaultSpeakBufferMs  = 300
	DefaultStepPauseMs    = 400
	DefaultTailPauseMs    = 1200
	DefaultScreenFPS      = 30
	DefaultWindSeed       = 1
)

// Config is the complete runtime configuration for a recording session.
// Values merge in order: defaults, then an optional YAML file, then
// DEMOREEL_* environment variables.
type Config struct {
	BaseURL   string    `yaml:"baseURL"`
	Mode      string    `yaml:"mode"`   // human | fast
	Record    string    `yaml:"record"` // none | panes | screen
	Artifacts string    `yaml:"artifacts"`
	FPS       int       `yaml:"fps"`
	Viewport  Viewport  `yaml:"viewport"`
	Layout    Layout    `yaml:"layout"`
	Encoder   Encoder   `yaml:"encoder"`
	Narration Narration `yaml:"narration"`
	Timing    Timing    `yaml:"timing"`
	Screen    Screen    `yaml:"screen"`
	Preview   bool      `yaml:"preview"`

	// Set from flags/environment, never from the file.
	Verbose bool `yaml:"-"`
	CI      bool `yaml:"-"`
}

// Viewport is the logical page size; captured pixels may differ by an
// integer device-pixel factor, which composition corrects for.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Layout selects how multiple pane streams are arranged in the composite.
type Layout struct {
	Mode string `yaml:"mode"` // auto | row | grid
	Cols int    `yaml:"cols"` // grid columns; 0 = ceil(sqrt(n))
}

// Encoder points at the external encoder binaries.
type Encoder struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
}

// Narration configures the speech synthesizer. The API key is only read
// from the environment so it never ends up in a committed YAML file.
type Narration struct {
	Enabled  bool    `yaml:"enabled"`
	Model    string  `yaml:"model"`
	Voice    string  `yaml:"voice"`
	Speed    float64 `yaml:"speed"`
	BufferMs int     `yaml:"bufferMs"`
	CacheDir string  `yaml:"cacheDir"`
	APIKey   string  `yaml:"-"`
}

// Timing tunes scenario pacing.
type Timing struct {
	StepPauseMs int   `yaml:"stepPauseMs"`
	TailPauseMs int   `yaml:"tailPauseMs"`
	WindSeed    int64 `yaml:"windSeed"`
}

// Screen configures whole-display capture (record: screen).
type Screen struct {
	Display   string `yaml:"display"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Framerate int    `yaml:"framerate"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Mode:      DefaultMode,
		Record:    DefaultRecord,
		Artifacts: "demoreel-out",
		FPS:       DefaultFPS,
		Viewport:  Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		Layout:    Layout{Mode: DefaultLayout},
		Encoder:   Encoder{FFmpeg: "ffmpeg", FFprobe: "ffprobe"},
		Narration: Narration{
			Model:    DefaultTTSModel,
			Voice:    DefaultTTSVoice,
			Speed:    DefaultTTSSpeed,
			BufferMs: DefaultSpeakBufferMs,
		},
		Timing: Timing{
			StepPauseMs: DefaultStepPauseMs,
			TailPauseMs: DefaultTailPauseMs,
			WindSeed:    DefaultWindSeed,
		},
		Screen: Screen{Display: ":0.0", Width: 1920, Height: 1080, Framerate: DefaultScreenFPS},
	}
}

// Load builds a Config from defaults, the YAML file at path (or
// "demoreel.yaml" in the working directory when path is empty and the file
// exists), and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("demoreel.yaml"); err == nil {
			path = "demoreel.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers DEMOREEL_* overrides plus the credential fallbacks on top
// of the loaded values.
func (c *Config) applyEnv() {
	if v := os.Getenv("DEMOREEL_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("DEMOREEL_RECORD"); v != "" {
		c.Record = v
	}
	if v := os.Getenv("DEMOREEL_ARTIFACTS"); v != "" {
		c.Artifacts = v
	}
	if v := os.Getenv("DEMOREEL_FFMPEG"); v != "" {
		c.Encoder.FFmpeg = v
	}
	if v := os.Getenv("DEMOREEL_FFPROBE"); v != "" {
		c.Encoder.FFprobe = v
	}
	if v := os.Getenv("DEMOREEL_TTS_VOICE"); v != "" {
		c.Narration.Voice = v
	}
	if v := os.Getenv("DEMOREEL_TTS_MODEL"); v != "" {
		c.Narration.Model = v
	}
	if v := os.Getenv("DEMOREEL_WIND_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Timing.WindSeed = n
		}
	}

	c.Narration.APIKey = os.Getenv("DEMOREEL_OPENAI_KEY")
	if c.Narration.APIKey == "" {
		c.Narration.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	// Unattended runs escalate timing-sanity warnings to failures.
	if v := os.Getenv("CI"); v != "" && v != "false" && v != "0" {
		c.CI = true
	}
}

// Validate rejects configurations the session cannot run with. Violations
// are programmer/operator errors and are reported synchronously.
func (c *Config) Validate() error {
	switch c.Mode {
	case "human", "fast":
	default:
		return fmt.Errorf("config: mode must be human or fast, got %q", c.Mode)
	}
	switch c.Record {
	case "none", "panes", "screen":
	default:
		return fmt.Errorf("config: record must be none, panes or screen, got %q", c.Record)
	}
	switch c.Layout.Mode {
	case "auto", "row", "grid":
	default:
		return fmt.Errorf("config: layout.mode must be auto, row or grid, got %q", c.Layout.Mode)
	}
	if c.Layout.Cols < 0 {
		return fmt.Errorf("config: layout.cols must not be negative")
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return fmt.Errorf("config: viewport must be positive, got %dx%d", c.Viewport.Width, c.Viewport.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("config: fps must be positive, got %d", c.FPS)
	}
	if c.Narration.Speed < 0.25 || c.Narration.Speed > 4.0 {
		return fmt.Errorf("config: narration.speed must be within [0.25, 4.0], got %g", c.Narration.Speed)
	}
	return nil
}

// CacheDir resolves the narration clip cache location, defaulting under the
// user cache directory.
func (c *Config) CacheDir() string {
	if c.Narration.CacheDir != "" {
		return c.Narration.CacheDir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(c.Artifacts, "tts-cache")
	}
	return filepath.Join(base, "demoreel", "tts")
}

// NarrationReady reports whether speech synthesis can actually run.
func (c *Config) NarrationReady() bool {
	return c.Narration.Enabled && strings.TrimSpace(c.Narration.APIKey) != ""
}
