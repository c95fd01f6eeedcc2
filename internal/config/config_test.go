package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1280, cfg.Viewport.Width)
	assert.Equal(t, 720, cfg.Viewport.Height)
	assert.Equal(t, 60, cfg.FPS)
	assert.Equal(t, "human", cfg.Mode)
	assert.Equal(t, "panes", cfg.Record)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demoreel.yaml")
	body := `
mode: fast
record: screen
fps: 30
viewport:
  width: 1920
  height: 1080
layout:
  mode: grid
  cols: 2
narration:
  enabled: true
  voice: nova
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fast", cfg.Mode)
	assert.Equal(t, "screen", cfg.Record)
	assert.Equal(t, 30, cfg.FPS)
	assert.Equal(t, 1920, cfg.Viewport.Width)
	assert.Equal(t, "grid", cfg.Layout.Mode)
	assert.Equal(t, 2, cfg.Layout.Cols)
	assert.True(t, cfg.Narration.Enabled)
	assert.Equal(t, "nova", cfg.Narration.Voice)
	// untouched keys keep their defaults
	assert.Equal(t, "ffmpeg", cfg.Encoder.FFmpeg)
	assert.Equal(t, DefaultStepPauseMs, cfg.Timing.StepPauseMs)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demoreel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: human\n"), 0o644))

	t.Setenv("DEMOREEL_MODE", "fast")
	t.Setenv("DEMOREEL_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fast", cfg.Mode)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.Encoder.FFmpeg)
}

func TestAPIKeyFallback(t *testing.T) {
	t.Setenv("DEMOREEL_OPENAI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.Narration.APIKey)

	t.Setenv("DEMOREEL_OPENAI_KEY", "sk-primary")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-primary", cfg.Narration.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "turbo" }},
		{"bad record", func(c *Config) { c.Record = "gif" }},
		{"bad layout", func(c *Config) { c.Layout.Mode = "mosaic" }},
		{"negative cols", func(c *Config) { c.Layout.Cols = -1 }},
		{"zero viewport", func(c *Config) { c.Viewport.Width = 0 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"speed too high", func(c *Config) { c.Narration.Speed = 5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNarrationReady(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.NarrationReady())

	cfg.Narration.Enabled = true
	assert.False(t, cfg.NarrationReady(), "enabled but no key")

	cfg.Narration.APIKey = "sk-test"
	assert.True(t, cfg.NarrationReady())
}
