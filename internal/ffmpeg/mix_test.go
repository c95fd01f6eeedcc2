package ffmpeg

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMixAudioNoClipsIsNoOp(t *testing.T) {
	// a runner pointing at a nonexistent binary proves no subprocess runs
	r := NewRunner("/nonexistent/ffmpeg", "/nonexistent/ffprobe", nil)

	out, err := r.MixAudio(context.Background(), "video.mp4", nil, "mixed.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video.mp4", out)

	out, err = r.MixAudio(context.Background(), "video.mp4", []AudioClip{}, "mixed.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video.mp4", out)
}

func TestMixArgs(t *testing.T) {
	clips := []AudioClip{
		{Path: "speech.mp3", StartMs: 1200, Volume: 1},
		{Path: "pop.wav", StartMs: 4500, Volume: 0.4},
	}
	args := mixArgs("demo.mp4", 12.5, clips, "out.mp4")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-i demo.mp4 -i speech.mp3 -i pop.wav")
	assert.Contains(t, joined, "[1:a]adelay=1200|1200,volume=1.00,apad=whole_dur=12.500[a0]")
	assert.Contains(t, joined, "[2:a]adelay=4500|4500,volume=0.40,apad=whole_dur=12.500[a1]")
	assert.Contains(t, joined, "[a0][a1]amix=inputs=2:duration=first:normalize=0[aout]")
	assert.Contains(t, joined, "-map 0:v -map [aout]")
	assert.Contains(t, joined, "-c:v copy", "video must never be re-encoded during the mix")
	assert.Contains(t, joined, "-c:a aac")
	assert.Equal(t, "out.mp4", args[len(args)-1])
}

func TestMixArgsZeroVolumeMeansFull(t *testing.T) {
	args := mixArgs("demo.mp4", 3, []AudioClip{{Path: "c.mp3", StartMs: 0}}, "out.mp4")
	assert.Contains(t, strings.Join(args, " "), "volume=1.00")
}
