package ffmpeg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenArgsLinux(t *testing.T) {
	args, err := screenArgs("linux", "cap.mp4", ScreenOptions{
		Display:   ":1.0",
		Width:     1920,
		Height:    1080,
		Framerate: 30,
	})
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-f x11grab")
	assert.Contains(t, joined, "-video_size 1920x1080")
	assert.Contains(t, joined, "-framerate 30")
	assert.Contains(t, joined, "-i :1.0")
	assert.Contains(t, joined, "-preset ultrafast")
	assert.Equal(t, "cap.mp4", args[len(args)-1])
}

func TestScreenArgsLinuxDefaults(t *testing.T) {
	args, err := screenArgs("linux", "cap.mp4", ScreenOptions{})
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-i :0.0")
	assert.Contains(t, joined, "-framerate 30")
	assert.NotContains(t, joined, "-video_size", "unknown geometry grabs the full display")
}

func TestScreenArgsDarwin(t *testing.T) {
	args, err := screenArgs("darwin", "cap.mp4", ScreenOptions{Framerate: 30})
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-f avfoundation")
	assert.Contains(t, joined, "-capture_cursor 1")
	assert.Contains(t, joined, "-i 1:none")
}

func TestScreenArgsDarwinIgnoresX11Display(t *testing.T) {
	args, err := screenArgs("darwin", "cap.mp4", ScreenOptions{Display: ":0.0"})
	require.NoError(t, err)
	assert.Contains(t, strings.Join(args, " "), "-i 1:none")
}

func TestScreenArgsUnsupportedPlatform(t *testing.T) {
	_, err := screenArgs("windows", "cap.mp4", ScreenOptions{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestCaptureValidationErrorRemediation(t *testing.T) {
	err := &CaptureValidationError{Path: "cap.mp4", OS: "darwin"}
	assert.Contains(t, err.Error(), "Screen Recording permission")

	err = &CaptureValidationError{Path: "cap.mp4", OS: "linux"}
	assert.Contains(t, err.Error(), "DISPLAY")
}
