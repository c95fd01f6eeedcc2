package capture

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncoderArgs(t *testing.T) {
	args := encoderArgs("pane-1.mp4")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-f image2pipe")
	assert.Contains(t, joined, "-vcodec mjpeg")
	assert.Contains(t, joined, "-use_wallclock_as_timestamps 1")
	assert.Contains(t, joined, "-i -")
	assert.Contains(t, joined, "-preset ultrafast")
	assert.Contains(t, joined, "-pix_fmt yuv420p")
	assert.Equal(t, "pane-1.mp4", args[len(args)-1])
}

func TestEncoderStderrTail(t *testing.T) {
	short := "broken pipe"
	assert.Equal(t, short, encoderStderrTail(short))

	long := strings.Repeat("x", 1000) + "END"
	tail := encoderStderrTail(long)
	assert.Len(t, tail, 300)
	assert.True(t, strings.HasSuffix(tail, "END"))
}
