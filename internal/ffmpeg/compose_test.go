package ffmpeg

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveLayout(t *testing.T) {
	cases := []struct {
		name     string
		mode     LayoutMode
		cols     int
		n        int
		wantMode LayoutMode
		wantCols int
	}{
		{"auto two is row", LayoutAuto, 0, 2, LayoutRow, 0},
		{"auto three is row", LayoutAuto, 0, 3, LayoutRow, 0},
		{"auto four is grid", LayoutAuto, 0, 4, LayoutGrid, 2},
		{"auto nine is grid", LayoutAuto, 0, 9, LayoutGrid, 3},
		{"auto five rounds cols up", LayoutAuto, 0, 5, LayoutGrid, 3},
		{"explicit cols forces grid", LayoutAuto, 3, 2, LayoutGrid, 3},
		{"explicit row", LayoutRow, 0, 5, LayoutRow, 0},
		{"explicit grid default cols", LayoutGrid, 0, 2, LayoutGrid, 2},
		{"explicit grid explicit cols", LayoutGrid, 3, 7, LayoutGrid, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mode, cols := effectiveLayout(tc.mode, tc.cols, tc.n)
			assert.Equal(t, tc.wantMode, mode)
			assert.Equal(t, tc.wantCols, cols)
		})
	}
}

func TestFilterChainExactSpacing(t *testing.T) {
	opts := ComposeOptions{Duration: 5 * time.Second, FPS: 60}

	chain := filterChain(&StreamInfo{FrameCount: 280}, opts)
	assert.Contains(t, chain, "setpts=N*(5.000000/280)/TB")
	assert.Contains(t, chain, "fps=60")

	chain = filterChain(&StreamInfo{FrameCount: 305}, opts)
	assert.Contains(t, chain, "setpts=N*(5.000000/305)/TB")
}

func TestFilterChainWarpFallback(t *testing.T) {
	opts := ComposeOptions{Duration: 10 * time.Second, FPS: 60}

	// frame count unknown, raw duration known: warp by T/raw
	chain := filterChain(&StreamInfo{Duration: 20}, opts)
	assert.Contains(t, chain, "setpts=(PTS-STARTPTS)*0.5000")

	// warp factor clamps at both ends
	chain = filterChain(&StreamInfo{Duration: 100}, opts)
	assert.Contains(t, chain, "*0.2500")
	chain = filterChain(&StreamInfo{Duration: 1}, opts)
	assert.Contains(t, chain, "*4.0000")
}

func TestFilterChainNothingProbeable(t *testing.T) {
	chain := filterChain(&StreamInfo{}, ComposeOptions{Duration: 5 * time.Second, FPS: 60})
	assert.Contains(t, chain, "setpts=PTS-STARTPTS")
	assert.NotContains(t, chain, "*")
}

func TestCropScaling(t *testing.T) {
	crop := CropRect{X: 100, Y: 0, W: 800, H: 720}
	assert.Equal(t, CropRect{X: 200, Y: 0, W: 1600, H: 1440}, crop.Scale(2))
	assert.Equal(t, crop, crop.Scale(1))
	assert.Equal(t, crop, crop.Scale(0), "factor floors at 1")
}

func TestCropEvenAlignment(t *testing.T) {
	crop := CropRect{X: 3, Y: 5, W: 801, H: 433}
	aligned := crop.EvenAligned()
	assert.Equal(t, CropRect{X: 3, Y: 5, W: 800, H: 432}, aligned)
}

func TestDprFactor(t *testing.T) {
	assert.Equal(t, 2, dprFactor(&StreamInfo{Width: 2560}, 1280))
	assert.Equal(t, 1, dprFactor(&StreamInfo{Width: 1280}, 1280))
	assert.Equal(t, 1, dprFactor(&StreamInfo{Width: 0}, 1280))
	assert.Equal(t, 1, dprFactor(nil, 1280))
	assert.Equal(t, 1, dprFactor(&StreamInfo{Width: 2560}, 0))
	// 1.5x fractional ratios round to the nearest integer
	assert.Equal(t, 2, dprFactor(&StreamInfo{Width: 1920}, 1280))
}

func TestFilterChainCropUsesProbedWidth(t *testing.T) {
	crop := CropRect{X: 100, Y: 0, W: 800, H: 720}
	opts := ComposeOptions{
		Duration:     5 * time.Second,
		FPS:          60,
		Crop:         &crop,
		LogicalWidth: 1280,
	}
	chain := filterChain(&StreamInfo{FrameCount: 300, Width: 2560}, opts)
	assert.Contains(t, chain, "crop=1600:1440:200:0")
}

func TestCropFromBoxClampsAndAligns(t *testing.T) {
	// near the viewport edge: padding cannot push the rect outside
	rect := CropFromBox(10, 10, 300, 200, 20, 1280, 720)
	assert.Equal(t, CropRect{X: 0, Y: 0, W: 330, H: 230}.EvenAligned(), rect)

	rect = CropFromBox(1200, 600, 100, 150, 16, 1280, 720)
	assert.Equal(t, 1184, rect.X)
	assert.Equal(t, 584, rect.Y)
	assert.LessOrEqual(t, rect.X+rect.W, 1280)
	assert.LessOrEqual(t, rect.Y+rect.H, 720)
	assert.Zero(t, rect.W%2)
	assert.Zero(t, rect.H%2)
}

func TestStackFilterRow(t *testing.T) {
	f := stackFilter(3, LayoutRow, 0)
	assert.Equal(t, "[v0][v1][v2]hstack=inputs=3:shortest=1[vout]", f)
}

func TestStackFilterGrid(t *testing.T) {
	// offsets accumulate from the prior stream in the same row / prior rows
	f := stackFilter(4, LayoutGrid, 2)
	assert.Equal(t, "[v0][v1][v2][v3]xstack=inputs=4:layout=0_0|w0_0|0_h0|w2_h0:shortest=1[vout]", f)
}

func TestStackFilterGridPartialLastRow(t *testing.T) {
	f := stackFilter(5, LayoutGrid, 3)
	assert.Contains(t, f, "xstack=inputs=5:layout=")
	// five cells exactly
	layout := f[strings.Index(f, "layout=")+len("layout="):]
	layout = layout[:strings.Index(layout, ":shortest")]
	assert.Len(t, strings.Split(layout, "|"), 5)
}

func TestComposeArgsMultiInput(t *testing.T) {
	inputs := []string{"a.mp4", "b.mp4"}
	infos := []*StreamInfo{{FrameCount: 280}, {FrameCount: 305}}
	args := composeArgs(inputs, infos, "out.mp4", ComposeOptions{
		Layout:   LayoutAuto,
		Duration: 5 * time.Second,
		FPS:      60,
	})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-i a.mp4 -i b.mp4")
	assert.Contains(t, joined, "hstack=inputs=2")
	assert.Contains(t, joined, "5.000000/280")
	assert.Contains(t, joined, "5.000000/305")
	assert.Contains(t, joined, "-map [vout]")
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-movflags +faststart")
	assert.Equal(t, "out.mp4", args[len(args)-1])
}

func TestSingleArgsHasNoStack(t *testing.T) {
	args := singleArgs("only.mp4", &StreamInfo{FrameCount: 120}, "out.mp4", ComposeOptions{
		Duration: 2 * time.Second,
		FPS:      60,
	})
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-vf")
	assert.NotContains(t, joined, "stack")
	assert.NotContains(t, joined, "-filter_complex")
}

func TestParseLayout(t *testing.T) {
	m, err := ParseLayout("row")
	require.NoError(t, err)
	assert.Equal(t, LayoutRow, m)

	m, err = ParseLayout("")
	require.NoError(t, err)
	assert.Equal(t, LayoutAuto, m)

	_, err = ParseLayout("mosaic")
	assert.Error(t, err)
}
