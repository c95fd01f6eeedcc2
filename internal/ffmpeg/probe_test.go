package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeOutput(t *testing.T) {
	// ffprobe's JSON writer emits nb_read_frames as a string
	data := []byte(`{
		"streams": [{"width": 2560, "height": 1440, "nb_read_frames": "280"}],
		"format": {"duration": "5.016000"}
	}`)

	info, err := parseProbeOutput(data)
	require.NoError(t, err)
	assert.Equal(t, 2560, info.Width)
	assert.Equal(t, 1440, info.Height)
	assert.Equal(t, 280, info.FrameCount)
	assert.InDelta(t, 5.016, info.Duration, 1e-9)
}

func TestParseProbeOutputWithoutFrameCount(t *testing.T) {
	data := []byte(`{
		"streams": [{"width": 1280, "height": 720}],
		"format": {"duration": "2.000000"}
	}`)

	info, err := parseProbeOutput(data)
	require.NoError(t, err)
	assert.Zero(t, info.FrameCount)
	assert.Equal(t, 1280, info.Width)
	assert.InDelta(t, 2.0, info.Duration, 1e-9)
}

func TestParseProbeOutputEmpty(t *testing.T) {
	info, err := parseProbeOutput([]byte(`{}`))
	require.NoError(t, err)
	assert.Zero(t, info.FrameCount)
	assert.Zero(t, info.Duration)
}

func TestParseProbeOutputBadJSON(t *testing.T) {
	_, err := parseProbeOutput([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseProbeOutputBadFrameCount(t *testing.T) {
	_, err := parseProbeOutput([]byte(`{"streams":[{"nb_read_frames":"N/A?"}]}`))
	assert.Error(t, err)
}
