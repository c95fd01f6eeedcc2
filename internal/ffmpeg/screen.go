package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/v0xg/demoreel/internal/logging"
)

// Stop escalation timing for the capture process.
const (
	screenQuitWait      = 5 * time.Second
	screenInterruptWait = 3 * time.Second
)

// CaptureValidationError means the screen recorder produced a file with no
// decodable frames, which on both supported platforms is an environment
// problem rather than a scenario problem.
type CaptureValidationError struct {
	Path string
	OS   string
}

func (e *CaptureValidationError) Error() string {
	msg := fmt.Sprintf("screen capture %s contains no decodable frames", e.Path)
	switch e.OS {
	case "darwin":
		return msg + "; grant Screen Recording permission to your terminal in System Settings > Privacy & Security"
	case "linux":
		return msg + "; no capturable X display (set DISPLAY, or run under Xvfb / a desktop session)"
	default:
		return msg
	}
}

// ScreenOptions configures whole-display capture.
type ScreenOptions struct {
	Display   string // x11 display (linux) or avfoundation device (darwin)
	Width     int
	Height    int
	Framerate int
}

// ScreenRecorder is a running whole-display ffmpeg capture. The encoder's
// stdin is the control channel: "q" asks it to finalize the container
// properly, which a signal does not guarantee.
type ScreenRecorder struct {
	path   string
	goos   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	done   chan error
	runner *Runner
	log    *logging.Logger
}

// StartScreenRecording launches the platform capture process writing to
// path. Unsupported platforms error immediately.
func (r *Runner) StartScreenRecording(path string, opts ScreenOptions) (*ScreenRecorder, error) {
	args, err := screenArgs(runtime.GOOS, path, opts)
	if err != nil {
		return nil, err
	}

	// Lifecycle is managed through stdin and signals, not a context.
	cmd := exec.Command(r.FFmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("screen capture: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("screen capture: start: %w", err)
	}
	r.log.Infof("screen capture started (pid %d) -> %s", cmd.Process.Pid, path)

	rec := &ScreenRecorder{
		path:   path,
		goos:   runtime.GOOS,
		cmd:    cmd,
		stdin:  stdin,
		stderr: &stderr,
		done:   make(chan error, 1),
		runner: r,
		log:    r.log,
	}
	go func() { rec.done <- cmd.Wait() }()
	return rec, nil
}

// screenArgs builds the capture-device invocation for a platform.
func screenArgs(goos, path string, opts ScreenOptions) ([]string, error) {
	fr := opts.Framerate
	if fr <= 0 {
		fr = 30
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	switch goos {
	case "linux":
		display := opts.Display
		if display == "" {
			display = ":0.0"
		}
		args = append(args, "-f", "x11grab", "-framerate", fmt.Sprint(fr))
		if opts.Width > 0 && opts.Height > 0 {
			args = append(args, "-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height))
		}
		args = append(args, "-i", display)
	case "darwin":
		device := opts.Display
		if device == "" || strings.HasPrefix(device, ":") {
			// avfoundation device index; "1" is the main display on a
			// default setup, ":none" skips audio capture here.
			device = "1:none"
		}
		args = append(args,
			"-f", "avfoundation",
			"-framerate", fmt.Sprint(fr),
			"-capture_cursor", "1",
			"-i", device,
		)
	default:
		return nil, fmt.Errorf("screen capture not supported on %s", goos)
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-y", path,
	)
	return args, nil
}

// Path returns the capture file location.
func (rec *ScreenRecorder) Path() string { return rec.path }

// Stop ends the capture: graceful quit over stdin, then an interrupt, then
// a kill. After the process exits the file is probed; zero decoded frames
// is a hard failure with platform remediation.
func (rec *ScreenRecorder) Stop(ctx context.Context) error {
	exited, waitErr := rec.terminate()
	if waitErr != nil {
		rec.log.Warnf("screen capture exit: %v (stderr: %s)", waitErr, stderrTail(rec.stderr.String()))
	}
	if !exited {
		return fmt.Errorf("screen capture did not exit after kill")
	}

	info, err := rec.runner.Probe(ctx, rec.path)
	if err != nil || info.FrameCount == 0 {
		if err != nil {
			rec.log.Warnf("screen capture probe: %v", err)
		}
		return &CaptureValidationError{Path: rec.path, OS: rec.goos}
	}
	rec.log.Infof("screen capture stopped: %d frames, %.2fs", info.FrameCount, info.Duration)
	return nil
}

// terminate walks the quit → interrupt → kill ladder and reports the
// process's exit error, if any.
func (rec *ScreenRecorder) terminate() (exited bool, waitErr error) {
	select {
	case err := <-rec.done:
		// exited before we asked; probe decides whether anything was captured
		return true, err
	default:
	}

	if _, err := io.WriteString(rec.stdin, "q\n"); err == nil {
		select {
		case err := <-rec.done:
			return true, err
		case <-time.After(screenQuitWait):
			rec.log.Warnf("screen capture ignored quit, interrupting")
		}
	}

	if err := rec.cmd.Process.Signal(os.Interrupt); err == nil {
		select {
		case err := <-rec.done:
			return true, err
		case <-time.After(screenInterruptWait):
			rec.log.Warnf("screen capture ignored interrupt, killing")
		}
	}

	_ = rec.cmd.Process.Kill()
	select {
	case err := <-rec.done:
		return true, err
	case <-time.After(time.Second):
		return false, nil
	}
}

// Process exposes the underlying capture process for exit-time cleanup.
func (rec *ScreenRecorder) Process() *os.Process {
	if rec.cmd == nil {
		return nil
	}
	return rec.cmd.Process
}
