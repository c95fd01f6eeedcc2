package session

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/go-rod/rod"

	"github.com/v0xg/demoreel/internal/logging"
)

const (
	terminalRows     = 32
	terminalCols     = 120
	terminalHangWait = 2 * time.Second
)

// terminalViewHTML is the log-view document rendered into a terminal
// pane's page; output is appended to #log as the subprocess emits it.
const terminalViewHTML = `<!doctype html><html><head><meta charset="utf-8"><style>
body{background:#101214;color:#d8dee9;font:13px/1.45 ui-monospace,monospace;margin:0;padding:12px}
pre{white-space:pre-wrap;word-break:break-all;margin:0}
</style></head><body><pre id="log"></pre></body></html>`

const appendLogJS = `(text) => {
	document.getElementById('log').textContent += text;
	window.scrollTo(0, document.body.scrollHeight);
}`

// ansiEscape matches CSI sequences; terminal output is mirrored as plain
// text, so color and cursor codes are dropped.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// TerminalOptions describes the subprocess behind a terminal pane.
type TerminalOptions struct {
	Label   string
	Command string
	Args    []string
	Dir     string
	Env     []string
}

// Terminal is a pty-backed subprocess whose output is teed to a log file
// and mirrored into the pane's log-view page by a single consumer
// goroutine.
type Terminal struct {
	cmd     *exec.Cmd
	tty     *os.File
	logPath string
	done    chan struct{}
	log     *logging.Logger
}

// LogPath returns the file receiving the subprocess output.
func (t *Terminal) LogPath() string { return t.logPath }

// Process exposes the underlying process for supervision.
func (t *Terminal) Process() *os.Process { return t.cmd.Process }

func startTerminal(opts TerminalOptions, logPath string, page *rod.Page, log *logging.Logger) (*Terminal, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("terminal pane needs a command")
	}
	out, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create terminal log: %w", err)
	}

	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Env = append(cmd.Env, opts.Env...)

	tty, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: terminalRows, Cols: terminalCols})
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("start %s: %w", opts.Command, err)
	}

	t := &Terminal{
		cmd:     cmd,
		tty:     tty,
		logPath: logPath,
		done:    make(chan struct{}),
		log:     log,
	}
	go t.consume(out, page)
	return t, nil
}

// consume is the sole reader of the pty. It returns when the subprocess
// exits or the pty is closed by stop.
func (t *Terminal) consume(out *os.File, page *rod.Page) {
	defer close(t.done)
	defer out.Close()

	buf := make([]byte, 4096)
	for {
		n, err := t.tty.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, werr := out.Write(chunk); werr != nil {
				t.log.Warnf("terminal log write: %v", werr)
			}
			if page != nil {
				text := ansiEscape.ReplaceAllString(string(chunk), "")
				if _, eerr := page.Eval(appendLogJS, text); eerr != nil {
					t.log.Debugf("terminal view update: %v", eerr)
				}
			}
		}
		if err != nil {
			// pty read fails with EIO once the child exits
			break
		}
	}
	_ = t.cmd.Wait()
}

// stop closes the pty, escalating through SIGTERM to SIGKILL when the
// subprocess lingers.
func (t *Terminal) stop() {
	_ = t.tty.Close()
	select {
	case <-t.done:
		return
	case <-time.After(terminalHangWait):
	}

	t.log.Warnf("terminal %s still running, sending SIGTERM", t.cmd.Path)
	_ = t.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-t.done:
		return
	case <-time.After(terminalHangWait):
	}

	t.log.Warnf("terminal %s ignored SIGTERM, killing", t.cmd.Path)
	_ = t.cmd.Process.Kill()
	<-t.done
}
