package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// LayoutMode arranges multiple pane streams in the composite frame.
type LayoutMode string

const (
	LayoutAuto LayoutMode = "auto"
	LayoutRow  LayoutMode = "row"
	LayoutGrid LayoutMode = "grid"
)

// ParseLayout converts a config string into a LayoutMode.
func ParseLayout(s string) (LayoutMode, error) {
	switch LayoutMode(s) {
	case LayoutAuto, LayoutRow, LayoutGrid:
		return LayoutMode(s), nil
	case "":
		return LayoutAuto, nil
	default:
		return "", fmt.Errorf("unknown layout %q", s)
	}
}

// Warp clamp bounds for the fallback timestamp correction.
const (
	minWarp = 0.25
	maxWarp = 4.0
)

// CropRect is a crop region in pixels, measured in the logical viewport
// until Scale converts it to captured pixels.
type CropRect struct {
	X int
	Y int
	W int
	H int
}

// Scale multiplies the rect by an integer device-pixel factor and realigns
// the dimensions to even values, which yuv420 output requires.
func (c CropRect) Scale(factor int) CropRect {
	if factor < 1 {
		factor = 1
	}
	scaled := CropRect{X: c.X * factor, Y: c.Y * factor, W: c.W * factor, H: c.H * factor}
	return scaled.EvenAligned()
}

// EvenAligned rounds W and H down to even values.
func (c CropRect) EvenAligned() CropRect {
	c.W -= c.W % 2
	c.H -= c.H % 2
	return c
}

// CropFromBox converts a DOM bounding box plus padding into a crop rect
// clamped to the viewport.
func CropFromBox(x, y, w, h, pad float64, viewportW, viewportH int) CropRect {
	x0 := math.Max(0, x-pad)
	y0 := math.Max(0, y-pad)
	x1 := math.Min(float64(viewportW), x+w+pad)
	y1 := math.Min(float64(viewportH), y+h+pad)
	rect := CropRect{
		X: int(math.Round(x0)),
		Y: int(math.Round(y0)),
		W: int(math.Round(x1 - x0)),
		H: int(math.Round(y1 - y0)),
	}
	return rect.EvenAligned()
}

// ComposeOptions tunes the composition of raw pane captures.
type ComposeOptions struct {
	Layout       LayoutMode
	Cols         int           // grid columns; 0 = ceil(sqrt(n))
	Duration     time.Duration // measured wall-clock scenario duration
	FPS          int           // output framerate; 0 = 60
	Crop         *CropRect     // logical-pixel crop applied per stream
	LogicalWidth int           // configured viewport width, for DPR correction
}

// Compose merges raw per-pane captures into one video. Raw capture
// timestamps come from independently started encoders and drift, so each
// stream is retimed to the measured scenario duration and resampled to a
// constant framerate before stacking. A failed composite degrades to
// re-encoding the first stream alone, so a broken filter graph still
// yields a watchable artifact.
func (r *Runner) Compose(ctx context.Context, inputs []string, out string, opts ComposeOptions) error {
	if len(inputs) == 0 {
		return fmt.Errorf("compose: no inputs")
	}

	infos := r.probeAll(ctx, inputs)

	if len(inputs) == 1 {
		return r.run(ctx, singleArgs(inputs[0], infos[0], out, opts)...)
	}

	if err := r.run(ctx, composeArgs(inputs, infos, out, opts)...); err != nil {
		r.log.Warnf("composite failed, falling back to first stream: %v", err)
		if fbErr := r.run(ctx, singleArgs(inputs[0], infos[0], out, opts)...); fbErr != nil {
			return fmt.Errorf("compose: %w (single-stream fallback also failed: %v)", err, fbErr)
		}
	}
	return nil
}

// probeAll probes every input concurrently. A stream that cannot be fully
// probed still composes, it just gets the less exact timestamp correction.
func (r *Runner) probeAll(ctx context.Context, inputs []string) []*StreamInfo {
	infos := make([]*StreamInfo, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range inputs {
		g.Go(func() error {
			info, err := r.Probe(gctx, path)
			if err != nil {
				r.log.Warnf("probe %s: %v", path, err)
				info = &StreamInfo{}
				if d, derr := r.ProbeDuration(gctx, path); derr == nil {
					info.Duration = d
				}
			}
			infos[i] = info
			return nil
		})
	}
	_ = g.Wait()
	return infos
}

// effectiveLayout resolves auto layout and the grid column count.
func effectiveLayout(mode LayoutMode, cols, n int) (LayoutMode, int) {
	layout := mode
	if layout == LayoutAuto || layout == "" {
		switch {
		case cols > 0:
			layout = LayoutGrid
		case n <= 3:
			layout = LayoutRow
		default:
			layout = LayoutGrid
		}
	}
	if layout == LayoutGrid && cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(n))))
	}
	return layout, cols
}

// filterChain builds the per-stream correction chain: retime, optional
// crop, constant framerate.
func filterChain(info *StreamInfo, opts ComposeOptions) string {
	parts := make([]string, 0, 3)

	target := opts.Duration.Seconds()
	switch {
	case target > 0 && info != nil && info.FrameCount > 0:
		// Frame N shows at N*(T/f): every corrected stream spans exactly
		// the measured duration regardless of raw timestamp noise.
		parts = append(parts, fmt.Sprintf("setpts=N*(%.6f/%d)/TB", target, info.FrameCount))
	case target > 0 && info != nil && info.Duration > 0:
		factor := clampFloat(target/info.Duration, minWarp, maxWarp)
		parts = append(parts, fmt.Sprintf("setpts=(PTS-STARTPTS)*%.4f", factor))
	default:
		parts = append(parts, "setpts=PTS-STARTPTS")
	}

	if opts.Crop != nil {
		crop := opts.Crop.Scale(dprFactor(info, opts.LogicalWidth))
		parts = append(parts, fmt.Sprintf("crop=%d:%d:%d:%d", crop.W, crop.H, crop.X, crop.Y))
	}

	fps := opts.FPS
	if fps <= 0 {
		fps = 60
	}
	parts = append(parts, fmt.Sprintf("fps=%d", fps))
	return strings.Join(parts, ",")
}

// dprFactor derives the integer scale between captured and logical pixels.
func dprFactor(info *StreamInfo, logicalWidth int) int {
	if info == nil || info.Width <= 0 || logicalWidth <= 0 {
		return 1
	}
	f := int(math.Round(float64(info.Width) / float64(logicalWidth)))
	if f < 1 {
		f = 1
	}
	return f
}

// streamFilter labels one input's correction chain for the filter graph.
func streamFilter(i int, info *StreamInfo, opts ComposeOptions) string {
	return fmt.Sprintf("[%d:v]%s[v%d]", i, filterChain(info, opts), i)
}

// stackFilter arranges the corrected streams. Row concatenates
// horizontally; grid tiles with offsets accumulated from the widths and
// heights of prior streams, so unequal pane sizes still tile.
func stackFilter(n int, layout LayoutMode, cols int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[v%d]", i)
	}

	if layout == LayoutRow {
		fmt.Fprintf(&b, "hstack=inputs=%d:shortest=1[vout]", n)
		return b.String()
	}

	cells := make([]string, n)
	for i := 0; i < n; i++ {
		row, col := i/cols, i%cols
		x := "0"
		if col > 0 {
			parts := make([]string, 0, col)
			for j := row * cols; j < i; j++ {
				parts = append(parts, fmt.Sprintf("w%d", j))
			}
			x = strings.Join(parts, "+")
		}
		y := "0"
		if row > 0 {
			parts := make([]string, 0, row)
			for q := 0; q < row; q++ {
				parts = append(parts, fmt.Sprintf("h%d", q*cols))
			}
			y = strings.Join(parts, "+")
		}
		cells[i] = x + "_" + y
	}
	fmt.Fprintf(&b, "xstack=inputs=%d:layout=%s:shortest=1[vout]", n, strings.Join(cells, "|"))
	return b.String()
}

// composeArgs assembles the full multi-input invocation.
func composeArgs(inputs []string, infos []*StreamInfo, out string, opts ComposeOptions) []string {
	layout, cols := effectiveLayout(opts.Layout, opts.Cols, len(inputs))

	var graph strings.Builder
	for i, info := range infos {
		graph.WriteString(streamFilter(i, info, opts))
		graph.WriteString(";")
	}
	graph.WriteString(stackFilter(len(inputs), layout, cols))

	args := []string{"-hide_banner", "-loglevel", "error"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args, "-filter_complex", graph.String(), "-map", "[vout]")
	args = append(args, encodeArgs()...)
	args = append(args, "-y", out)
	return args
}

// singleArgs re-encodes one stream with the correction chain but no stack.
func singleArgs(input string, info *StreamInfo, out string, opts ComposeOptions) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", input, "-vf", filterChain(info, opts)}
	args = append(args, encodeArgs()...)
	args = append(args, "-y", out)
	return args
}

func encodeArgs() []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
