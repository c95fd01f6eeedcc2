package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/demoreel/internal/logging"
)

const (
	defaultQuality   = 80
	drainWait        = 3 * time.Second
	encoderFlushWait = 15 * time.Second
)

// Options configures a per-pane screencast recorder.
type Options struct {
	FFmpeg  string // encoder binary; "" = "ffmpeg"
	Quality int    // JPEG quality 1-100; 0 = 80
	Log     *logging.Logger
}

// Recorder streams one page's screencast frames into an external encoder.
// The browser pushes JPEG frames over the devtools event stream; each frame
// is acked (or the browser stops sending) and piped to ffmpeg's stdin,
// which timestamps them against the wall clock. Those timestamps drift
// between panes, which composition corrects later.
type Recorder struct {
	page   *rod.Page
	path   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	log    *logging.Logger

	cancel  context.CancelFunc
	drained chan struct{}

	frames      atomic.Int64
	writeFailed atomic.Bool

	stopOnce sync.Once
	stopErr  error
}

// Start launches the encoder and begins the page screencast.
func Start(page *rod.Page, path string, opts Options) (*Recorder, error) {
	bin := opts.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}

	// The encoder exits on stdin EOF, so its lifecycle is not tied to a
	// context.
	cmd := exec.Command(bin, encoderArgs(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("pane capture: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("pane capture: start encoder: %w", err)
	}

	ctx, cancel := context.WithCancel(page.GetContext())
	evtPage := page.Context(ctx)

	rec := &Recorder{
		page:    page,
		path:    path,
		cmd:     cmd,
		stdin:   stdin,
		stderr:  &stderr,
		log:     log,
		cancel:  cancel,
		drained: make(chan struct{}),
	}

	wait := evtPage.EachEvent(func(e *proto.PageScreencastFrame) {
		// ack first; an unacked frame stalls the whole stream
		if err := (proto.PageScreencastFrameAck{SessionID: e.SessionID}).Call(evtPage); err != nil {
			return
		}
		if rec.writeFailed.Load() {
			return
		}
		if _, err := rec.stdin.Write(e.Data); err != nil {
			if rec.writeFailed.CompareAndSwap(false, true) {
				rec.log.Warnf("pane capture %s: encoder write: %v", path, err)
			}
			return
		}
		rec.frames.Add(1)
	})
	go func() {
		wait()
		close(rec.drained)
	}()

	quality := opts.Quality
	if quality <= 0 {
		quality = defaultQuality
	}
	everyNth := 1
	err = proto.PageStartScreencast{
		Format:        proto.PageStartScreencastFormatJpeg,
		Quality:       &quality,
		EveryNthFrame: &everyNth,
	}.Call(page)
	if err != nil {
		cancel()
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("pane capture: start screencast: %w", err)
	}

	log.Infof("pane capture started -> %s", path)
	return rec, nil
}

// Stop ends the screencast, drains in-flight frames, closes the encoder's
// stdin and waits for it to finalize the file. Safe to call once per
// recorder; repeated calls return the first result.
func (rec *Recorder) Stop(ctx context.Context) error {
	rec.stopOnce.Do(func() { rec.stopErr = rec.stop(ctx) })
	return rec.stopErr
}

func (rec *Recorder) stop(ctx context.Context) error {
	// the page may already be closing; stopping the screencast then is fine
	_ = proto.PageStopScreencast{}.Call(rec.page)
	rec.cancel()
	select {
	case <-rec.drained:
	case <-time.After(drainWait):
		rec.log.Warnf("pane capture %s: frame drain timed out", rec.path)
	}
	_ = rec.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- rec.cmd.Wait() }()
	var err error
	select {
	case err = <-done:
	case <-time.After(encoderFlushWait):
		rec.log.Warnf("pane capture %s: encoder flush timed out, killing", rec.path)
		_ = rec.cmd.Process.Kill()
		err = <-done
	case <-ctx.Done():
		_ = rec.cmd.Process.Kill()
		err = <-done
	}
	if err != nil {
		return fmt.Errorf("pane capture %s: encoder: %w (stderr: %s)", rec.path, err, encoderStderrTail(rec.stderr.String()))
	}

	rec.log.Infof("pane capture stopped: %d frames -> %s", rec.frames.Load(), rec.path)
	return nil
}

// Frames reports how many frames reached the encoder.
func (rec *Recorder) Frames() int64 { return rec.frames.Load() }

// Path returns the raw capture file location.
func (rec *Recorder) Path() string { return rec.path }

// Process exposes the encoder process for exit-time cleanup.
func (rec *Recorder) Process() *os.Process {
	if rec.cmd == nil {
		return nil
	}
	return rec.cmd.Process
}

// encoderArgs builds the image2pipe sink invocation. Wall-clock timestamps
// make the raw file's timing honest about when frames actually arrived;
// the scale filter keeps dimensions even for yuv420 output.
func encoderArgs(out string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-use_wallclock_as_timestamps", "1",
		"-i", "-",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-y", out,
	}
}

func encoderStderrTail(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
