package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/v0xg/demoreel/internal/logging"
)

// ExecError carries the tail of the encoder's stderr, which is where ffmpeg
// explains itself.
type ExecError struct {
	Bin    string
	Args   []string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Bin, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// Runner invokes the external encoder binaries. It is stateless and safe
// for concurrent use.
type Runner struct {
	FFmpeg  string
	FFprobe string
	log     *logging.Logger
}

// NewRunner wires a runner to the given binaries. Empty paths fall back to
// the bare command names resolved via PATH.
func NewRunner(ffmpegBin, ffprobeBin string, log *logging.Logger) *Runner {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{FFmpeg: ffmpegBin, FFprobe: ffprobeBin, log: log}
}

// Available reports whether both binaries resolve.
func (r *Runner) Available() error {
	if _, err := exec.LookPath(r.FFmpeg); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(r.FFprobe); err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	return nil
}

// run executes ffmpeg to completion.
func (r *Runner) run(ctx context.Context, args ...string) error {
	r.log.Debugf("ffmpeg %s", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, r.FFmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ExecError{Bin: r.FFmpeg, Args: args, Stderr: stderrTail(stderr.String()), Err: err}
	}
	return nil
}

// Synth renders a lavfi source description to a file. Used for bundled
// sound effects so no binary assets ship with the tool.
func (r *Runner) Synth(ctx context.Context, source, out string) error {
	return r.run(ctx, "-hide_banner", "-loglevel", "error", "-f", "lavfi", "-i", source, "-y", out)
}

// stderrTail keeps the last few lines of encoder output; the head is
// usually banner noise.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 6 {
		lines = lines[len(lines)-6:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
