package session

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/v0xg/demoreel/internal/logging"
)

// reaper kills registered subprocesses when the run is interrupted, so an
// aborted session never leaves an encoder recording forever.
type reaper struct {
	mu    sync.Mutex
	procs map[int]*os.Process
	sigs  chan os.Signal
	quit  chan struct{}
	log   *logging.Logger
}

func newReaper(log *logging.Logger) *reaper {
	return &reaper{
		procs: make(map[int]*os.Process),
		sigs:  make(chan os.Signal, 1),
		quit:  make(chan struct{}),
		log:   log,
	}
}

func (r *reaper) arm() {
	signal.Notify(r.sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-r.sigs:
			r.log.Warnf("received %s, terminating subprocesses", sig)
			r.killAll()
			os.Exit(130)
		case <-r.quit:
		}
	}()
}

func (r *reaper) register(p *os.Process) {
	if p == nil {
		return
	}
	r.mu.Lock()
	r.procs[p.Pid] = p
	r.mu.Unlock()
}

func (r *reaper) release(p *os.Process) {
	if p == nil {
		return
	}
	r.mu.Lock()
	delete(r.procs, p.Pid)
	r.mu.Unlock()
}

// disarm restores default signal handling once the session owns no more
// subprocesses.
func (r *reaper) disarm() {
	signal.Stop(r.sigs)
	close(r.quit)
}

func (r *reaper) killAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pid, p := range r.procs {
		if err := p.Kill(); err != nil {
			r.log.Debugf("kill %d: %v", pid, err)
		}
	}
	r.procs = make(map[int]*os.Process)
}
