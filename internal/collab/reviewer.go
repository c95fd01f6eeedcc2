package collab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/v0xg/demoreel/internal/logging"
)

const reviewerQuitWait = 3 * time.Second

// ReviewerOptions configures the independent third editor, an external
// process that edits the shared document on its own and logs every
// change it makes.
type ReviewerOptions struct {
	Command string
	Args    []string
	Dir     string
}

// Reviewer drives the external editor through a line command protocol on
// its stdin. Everything the process prints is consumed by one goroutine
// and timestamped into a change log.
type Reviewer struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	logPath string
	done    chan struct{}
	log     *logging.Logger
}

// ChangeLog returns the file collecting the reviewer's output.
func (r *Reviewer) ChangeLog() string { return r.logPath }

// Process exposes the underlying process for supervision.
func (r *Reviewer) Process() *os.Process { return r.cmd.Process }

// Send writes one command line to the reviewer.
func (r *Reviewer) Send(command string) error {
	if _, err := io.WriteString(r.stdin, command+"\n"); err != nil {
		return fmt.Errorf("reviewer command %q: %w", command, err)
	}
	return nil
}

func startReviewer(opts ReviewerOptions, docURL, logPath string, log *logging.Logger) (*Reviewer, error) {
	out, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create reviewer log: %w", err)
	}

	cmd := exec.Command(opts.Command, append(append([]string{}, opts.Args...), docURL)...)
	cmd.Dir = opts.Dir
	pr, pw, err := os.Pipe()
	if err != nil {
		out.Close()
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	stdin, err := cmd.StdinPipe()
	if err != nil {
		out.Close()
		pr.Close()
		pw.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		out.Close()
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("start reviewer %s: %w", opts.Command, err)
	}
	// parent's copy of the write end; the child keeps its own
	pw.Close()
	log.Infof("reviewer started (pid %d) -> %s", cmd.Process.Pid, logPath)

	r := &Reviewer{
		cmd:     cmd,
		stdin:   stdin,
		logPath: logPath,
		done:    make(chan struct{}),
		log:     log,
	}
	go r.consume(pr, out)
	return r, nil
}

// consume is the sole reader of the reviewer's merged output.
func (r *Reviewer) consume(pr *os.File, out *os.File) {
	defer close(r.done)
	defer out.Close()
	defer pr.Close()

	sc := bufio.NewScanner(pr)
	for sc.Scan() {
		fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.RFC3339Nano), sc.Text())
	}
	_ = r.cmd.Wait()
}

// stop asks the reviewer to quit over the command protocol, escalating
// to signals when it lingers.
func (r *Reviewer) stop() {
	_ = r.Send("quit")
	_ = r.stdin.Close()
	select {
	case <-r.done:
		return
	case <-time.After(reviewerQuitWait):
	}

	r.log.Warnf("reviewer ignored quit, sending SIGTERM")
	_ = r.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-r.done:
		return
	case <-time.After(reviewerQuitWait):
	}

	r.log.Warnf("reviewer ignored SIGTERM, killing")
	_ = r.cmd.Process.Kill()
	<-r.done
}
