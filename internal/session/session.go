package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/v0xg/demoreel/internal/actor"
	"github.com/v0xg/demoreel/internal/capture"
	"github.com/v0xg/demoreel/internal/config"
	"github.com/v0xg/demoreel/internal/ffmpeg"
	"github.com/v0xg/demoreel/internal/logging"
	"github.com/v0xg/demoreel/internal/narrate"
	"github.com/v0xg/demoreel/internal/preview"
)

// State tracks the session lifecycle. Transitions only move forward.
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateRunning
	StateFinishing
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateFinishing:
		return "finishing"
	case StateFinished:
		return "finished"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrFinished is returned when a finished session is used again; Finish
// runs exactly once per session.
var ErrFinished = errors.New("session already finished")

// StepRecord is one captioned beat of a scenario. Times are milliseconds
// from session start, measured on the same clock as audio events, so
// subtitles, narration and video share one timeline.
type StepRecord struct {
	Index   int    `json:"index"`
	Caption string `json:"caption"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	PaneID  string `json:"paneId,omitempty"`
	Role    string `json:"role,omitempty"`
	Err     string `json:"error,omitempty"`
}

// StepTag attributes a step to a pane or a collaboration role.
type StepTag struct {
	PaneID string
	Role   string
}

// Scenario is the user-provided script run between Init and Finish.
type Scenario func(ctx context.Context, s *Session) error

// Session orchestrates one recording run: the browser, its panes, their
// captures, the narration track and the final composition. Methods are
// driven from the scenario goroutine; shared state is still locked
// because capture and terminal goroutines run concurrently.
type Session struct {
	cfg      *config.Config
	log      *logging.Logger
	runner   *ffmpeg.Runner
	director narrate.Director

	launcher *launcher.Launcher
	browser  *rod.Browser

	mu        sync.Mutex
	state     State
	panes     map[string]*Pane
	paneOrder []string
	paneSeq   int
	stepSeq   int
	steps     []StepRecord
	snapshots [][]byte

	runID       string
	artifactDir string
	startedAt   time.Time

	screen    *ffmpeg.ScreenRecorder
	crop      *ffmpeg.CropRect
	placement placement
	reaper    *reaper
}

// New prepares the artifact directory, logging, encoder and narration for
// one run. The browser is not launched until Init.
func New(cfg *config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := time.Now().Format("20060102-150405") + "-" + uuid.NewString()[:8]
	artifactDir := filepath.Join(cfg.Artifacts, runID)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	log, err := logging.New(artifactDir, "run", cfg.Verbose)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:         cfg,
		log:         log,
		runner:      ffmpeg.NewRunner(cfg.Encoder.FFmpeg, cfg.Encoder.FFprobe, log.Component("encoder")),
		panes:       make(map[string]*Pane),
		runID:       runID,
		artifactDir: artifactDir,
		reaper:      newReaper(log.Component("reaper")),
	}

	s.director, err = narrate.New(narrate.Options{
		Enabled:  cfg.Narration.Enabled,
		APIKey:   cfg.Narration.APIKey,
		Model:    cfg.Narration.Model,
		Voice:    cfg.Narration.Voice,
		Speed:    cfg.Narration.Speed,
		BufferMs: cfg.Narration.BufferMs,
		CacheDir: cfg.CacheDir(),
		Clock:    func() time.Duration { return time.Since(s.startedAt) },
		Encoder:  s.runner,
		Log:      log.Component("narrate"),
	})
	if err != nil {
		return nil, err
	}
	if cfg.Narration.Enabled && !s.director.Enabled() {
		log.Warnf("narration requested but no API key found, running silent")
	}

	log.Infof("run %s -> %s", runID, artifactDir)
	return s, nil
}

// Init launches the browser and, for whole-screen runs, the display
// capture. Screen recording forces a headed browser, because a headless
// one never reaches the display being captured; pane recording stays
// headless.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateCreated {
		st := s.state
		s.mu.Unlock()
		if st >= StateFinishing {
			return ErrFinished
		}
		return fmt.Errorf("init: session already %s", st)
	}
	s.mu.Unlock()

	s.reaper.arm()

	headed := s.cfg.Record == "screen"
	l := launcher.New().Headless(!headed)
	if bin, has := launcher.LookPath(); has {
		l = l.Bin(bin)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	s.launcher = l

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("connect browser: %w", err)
	}
	s.browser = browser
	s.log.Infof("browser connected (headed=%v)", headed)

	if headed {
		s.placement = &tilePlacement{
			width:  s.cfg.Viewport.Width,
			height: s.cfg.Viewport.Height,
			log:    s.log.Component("tile"),
		}
	} else {
		s.placement = noopPlacement{}
	}

	if s.cfg.Record == "screen" {
		rec, err := s.runner.StartScreenRecording(filepath.Join(s.artifactDir, "screen-raw.mp4"), ffmpeg.ScreenOptions{
			Display:   s.cfg.Screen.Display,
			Width:     s.cfg.Screen.Width,
			Height:    s.cfg.Screen.Height,
			Framerate: s.cfg.Screen.Framerate,
		})
		if err != nil {
			s.log.Warnf("screen capture unavailable, continuing without video: %v", err)
		} else {
			s.screen = rec
			s.reaper.register(rec.Process())
		}
	}

	s.mu.Lock()
	s.state = StateInitialized
	s.startedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// PageOptions describes a new browser pane.
type PageOptions struct {
	Label string
	URL   string
}

// OpenPage creates an isolated browsing context, an actor bound to its
// page and, when pane recording is on, a capture feeding the pane's raw
// video. The capture starts before navigation so the first paint is in
// the recording; a capture that fails to start is logged and the pane
// proceeds without video.
func (s *Session) OpenPage(ctx context.Context, opts PageOptions) (*Pane, error) {
	if err := s.checkOpen("open page"); err != nil {
		return nil, err
	}

	id, label, seq := s.nextPane(opts.Label)
	page, bctx, err := s.newPage(id)
	if err != nil {
		return nil, err
	}

	pane := &Pane{ID: id, Kind: PaneBrowser, Label: label, Page: page, browserCtx: bctx}
	pane.rec = s.startCapture(id, page)

	start := actor.Point{
		X: float64(s.cfg.Viewport.Width) / 2,
		Y: float64(s.cfg.Viewport.Height) / 2,
	}
	pane.Actor = actor.New(page, actor.Options{
		Mode: actor.Mode(s.cfg.Mode),
		// distinct pane, distinct but still reproducible wind
		Seed:   s.cfg.Timing.WindSeed + int64(seq-1),
		Start:  &start,
		Cursor: s.cfg.Record != "none",
		Log:    s.log.Component("actor"),
	})

	s.addPane(pane)
	s.placement.apply(s.orderedPanes())

	if opts.URL != "" {
		if err := pane.Actor.Goto(ctx, opts.URL); err != nil {
			// pane stays registered so Finish tears it down
			return nil, fmt.Errorf("pane %s: %w", id, err)
		}
	}
	s.log.Infof("pane %s (%s) open", id, label)
	return pane, nil
}

// OpenTerminal starts a subprocess under a pty and mirrors its output
// into a log-view page, so command-line work records like any other pane.
func (s *Session) OpenTerminal(ctx context.Context, opts TerminalOptions) (*Pane, error) {
	if err := s.checkOpen("open terminal"); err != nil {
		return nil, err
	}

	id, label, _ := s.nextPane(opts.Label)
	page, bctx, err := s.newPage(id)
	if err != nil {
		return nil, err
	}
	if err := page.SetDocumentContent(terminalViewHTML); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("terminal view: %w", err)
	}

	pane := &Pane{ID: id, Kind: PaneTerminal, Label: label, Page: page, browserCtx: bctx}
	pane.rec = s.startCapture(id, page)

	term, err := startTerminal(opts, filepath.Join(s.artifactDir, id+".log"), page, s.log.Component("terminal"))
	if err != nil {
		if pane.rec != nil {
			_ = pane.rec.Stop(ctx)
		}
		_ = page.Close()
		return nil, err
	}
	pane.Terminal = term
	s.reaper.register(term.Process())

	s.addPane(pane)
	s.placement.apply(s.orderedPanes())
	s.log.Infof("pane %s (%s) running %s", id, label, opts.Command)
	return pane, nil
}

// Step runs one captioned beat of the scenario and returns its 1-based
// index. Indices are assigned in call order; a record is appended even
// when fn fails, so subtitles and metadata always reflect what was
// attempted.
func (s *Session) Step(ctx context.Context, caption string, fn func(ctx context.Context) error) (int, error) {
	return s.StepTagged(ctx, StepTag{}, caption, fn)
}

// StepTagged is Step with pane or role attribution for multi-actor runs.
func (s *Session) StepTagged(ctx context.Context, tag StepTag, caption string, fn func(ctx context.Context) error) (int, error) {
	s.mu.Lock()
	switch s.state {
	case StateInitialized:
		s.state = StateRunning
	case StateRunning:
	case StateFinishing, StateFinished:
		s.mu.Unlock()
		return 0, ErrFinished
	default:
		s.mu.Unlock()
		return 0, fmt.Errorf("step %q: session not initialized", caption)
	}
	s.stepSeq++
	index := s.stepSeq
	s.mu.Unlock()

	s.log.Infof("step %d: %s", index, caption)
	start := s.sinceStart()
	err := fn(ctx)
	if err == nil {
		s.snapshotStep()
		if p := s.cfg.Timing.StepPauseMs; p > 0 && s.cfg.Mode != "fast" {
			time.Sleep(time.Duration(p) * time.Millisecond)
		}
	}
	end := s.sinceStart()

	rec := StepRecord{
		Index:   index,
		Caption: caption,
		StartMs: start,
		EndMs:   end,
		PaneID:  tag.PaneID,
		Role:    tag.Role,
	}
	if err != nil {
		rec.Err = err.Error()
	}
	s.mu.Lock()
	s.steps = append(s.steps, rec)
	s.mu.Unlock()

	if err != nil {
		s.log.Errorf("step %d failed: %v", index, err)
		return index, fmt.Errorf("step %d (%s): %w", index, caption, err)
	}
	return index, nil
}

// Say speaks one narration line, blocking until it finishes so the video
// pacing matches the voice track.
func (s *Session) Say(ctx context.Context, text string) error {
	return s.director.Speak(ctx, text, narrate.SpeakOptions{})
}

// Effect schedules a named sound effect without blocking.
func (s *Session) Effect(ctx context.Context, name string) error {
	return s.director.Effect(ctx, name, narrate.EffectOptions{})
}

// Director exposes the narration director for calls needing options.
func (s *Session) Director() narrate.Director { return s.director }

// CropTo restricts the composed output to one element's box, padded and
// clamped to the viewport. The crop applies to every pane stream.
func (s *Session) CropTo(ctx context.Context, paneID, selector string, pad float64) error {
	pane, err := s.Pane(paneID)
	if err != nil {
		return err
	}
	if pane.Actor == nil {
		return fmt.Errorf("crop: pane %s has no actor", paneID)
	}
	x, y, w, h, err := pane.Actor.Box(ctx, selector)
	if err != nil {
		return err
	}
	crop := ffmpeg.CropFromBox(x, y, w, h, pad, s.cfg.Viewport.Width, s.cfg.Viewport.Height)
	s.mu.Lock()
	s.crop = &crop
	s.mu.Unlock()
	s.log.Infof("crop -> %dx%d at %d,%d", crop.W, crop.H, crop.X, crop.Y)
	return nil
}

// Finish drains captures, composes the recording, mixes narration and
// writes subtitles plus metadata. It runs exactly once; later calls
// return ErrFinished. Partial artifacts are still written when a stage
// fails, and the returned error reports the first hard failure.
func (s *Session) Finish(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.state == StateFinishing || s.state == StateFinished {
		s.mu.Unlock()
		return nil, ErrFinished
	}
	s.state = StateFinishing
	s.mu.Unlock()
	s.log.Infof("finishing")

	// let the last UI change land in the recording
	if p := s.cfg.Timing.TailPauseMs; p > 0 && s.cfg.Mode != "fast" && s.cfg.Record != "none" {
		time.Sleep(time.Duration(p) * time.Millisecond)
	}
	durationMs := s.sinceStart()

	raws, hard := s.stopCaptures(ctx)
	s.closeBrowser()
	s.stopTerminals()

	events := s.director.Events()
	var videoPath string
	if len(raws) > 0 {
		v, err := s.composeVideo(ctx, raws, durationMs, events)
		if err != nil {
			s.log.Errorf("%v", err)
		} else {
			videoPath = v
			if terr := s.checkTiming(ctx, videoPath, durationMs); terr != nil && hard == nil {
				hard = terr
			}
		}
	}

	previewPath := s.writePreview()

	steps := s.stepRecords()
	vttPath := filepath.Join(s.artifactDir, "demo.vtt")
	if err := WriteVTT(vttPath, steps); err != nil {
		s.log.Errorf("subtitles: %v", err)
		vttPath = ""
	}

	metaPath := filepath.Join(s.artifactDir, "metadata.json")
	meta := metadata{
		RunID:       s.runID,
		CreatedAt:   time.Now().UTC(),
		Mode:        s.cfg.Mode,
		Record:      s.cfg.Record,
		Viewport:    fmt.Sprintf("%dx%d", s.cfg.Viewport.Width, s.cfg.Viewport.Height),
		FPS:         s.cfg.FPS,
		WindSeed:    s.cfg.Timing.WindSeed,
		DurationMs:  durationMs,
		Video:       videoPath,
		Subtitles:   vttPath,
		Preview:     previewPath,
		Steps:       steps,
		AudioEvents: events,
	}
	if err := writeMetadata(metaPath, meta); err != nil {
		s.log.Errorf("metadata: %v", err)
		metaPath = ""
	}

	s.reaper.disarm()
	s.mu.Lock()
	s.state = StateFinished
	s.mu.Unlock()

	s.log.Infof("finished: %dms, %d steps, artifacts in %s", durationMs, len(steps), s.artifactDir)
	return &Result{
		RunID:       s.runID,
		ArtifactDir: s.artifactDir,
		Video:       videoPath,
		Subtitles:   vttPath,
		Metadata:    metaPath,
		Preview:     previewPath,
		DurationMs:  durationMs,
		Steps:       steps,
		AudioEvents: events,
	}, hard
}

// Abort captures failure screenshots for every browser pane, then runs
// the normal finish so partial artifacts survive for debugging.
func (s *Session) Abort(ctx context.Context, cause error) (*Result, error) {
	s.log.Errorf("aborting: %v", cause)
	for _, p := range s.orderedPanes() {
		if p.Kind != PaneBrowser || p.Page == nil {
			continue
		}
		data, err := p.Page.Screenshot(false, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			s.log.Debugf("failure screenshot %s: %v", p.ID, err)
			continue
		}
		shot := filepath.Join(s.artifactDir, "failure-"+p.ID+".png")
		if err := os.WriteFile(shot, data, 0o644); err != nil {
			s.log.Debugf("failure screenshot %s: %v", p.ID, err)
		} else {
			s.log.Infof("failure screenshot -> %s", shot)
		}
	}
	return s.Finish(ctx)
}

// Run executes a scenario inside a fully managed session lifecycle.
func Run(ctx context.Context, cfg *config.Config, scenario Scenario) (*Result, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		res, _ := s.Finish(ctx)
		return res, err
	}
	if err := scenario(ctx, s); err != nil {
		res, _ := s.Abort(ctx, err)
		return res, err
	}
	return s.Finish(ctx)
}

// Pane returns a pane by ID.
func (s *Session) Pane(id string) (*Pane, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.panes[id]
	if !ok {
		return nil, fmt.Errorf("unknown pane %q", id)
	}
	return p, nil
}

// Panes returns all panes in creation order.
func (s *Session) Panes() []*Pane { return s.orderedPanes() }

func (s *Session) RunID() string          { return s.runID }
func (s *Session) ArtifactDir() string    { return s.artifactDir }
func (s *Session) Config() *config.Config { return s.cfg }
func (s *Session) Log() *logging.Logger   { return s.log }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// newPage opens a viewport-sized page in its own browsing context and
// wires its console into the run log.
func (s *Session) newPage(id string) (*rod.Page, *rod.Browser, error) {
	bctx, err := s.browser.Incognito()
	if err != nil {
		return nil, nil, fmt.Errorf("browsing context: %w", err)
	}
	page, err := bctx.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, nil, fmt.Errorf("open page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.Viewport.Width,
		Height:            s.cfg.Viewport.Height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		_ = page.Close()
		return nil, nil, fmt.Errorf("set viewport: %w", err)
	}
	s.watchConsole(id, page)
	return page, bctx, nil
}

// watchConsole streams page console output and exceptions into the run
// log; the loop ends when the page closes.
func (s *Session) watchConsole(id string, page *rod.Page) {
	go page.EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
		s.log.Debugf("%s console.%s: %s", id, e.Type, consoleText(e))
	}, func(e *proto.RuntimeExceptionThrown) {
		s.log.Warnf("%s page error: %s", id, exceptionText(e))
	})()
}

// startCapture attaches a screencast recorder when pane recording is on.
func (s *Session) startCapture(id string, page *rod.Page) *capture.Recorder {
	if s.cfg.Record != "panes" {
		return nil
	}
	raw := filepath.Join(s.artifactDir, id+"-raw.mp4")
	rec, err := capture.Start(page, raw, capture.Options{
		FFmpeg: s.cfg.Encoder.FFmpeg,
		Log:    s.log.Component("capture"),
	})
	if err != nil {
		s.log.Warnf("capture for %s unavailable: %v", id, err)
		return nil
	}
	s.reaper.register(rec.Process())
	return rec
}

// stopCaptures flushes every pane encoder concurrently, then the screen
// recorder, and returns the raw files that actually contain frames in
// pane creation order. A screen capture that produced zero frames is the
// one capture failure treated as hard.
func (s *Session) stopCaptures(ctx context.Context) ([]string, error) {
	panes := s.orderedPanes()

	g := new(errgroup.Group)
	for _, p := range panes {
		if p.rec == nil {
			continue
		}
		rec := p.rec
		g.Go(func() error {
			if err := rec.Stop(ctx); err != nil {
				s.log.Warnf("capture stop: %v", err)
			}
			s.reaper.release(rec.Process())
			return nil
		})
	}
	_ = g.Wait()

	var raws []string
	for _, p := range panes {
		if path := p.CapturePath(); path != "" {
			raws = append(raws, path)
		}
	}

	var hard error
	if s.screen != nil {
		err := s.screen.Stop(ctx)
		s.reaper.release(s.screen.Process())
		var vErr *ffmpeg.CaptureValidationError
		switch {
		case errors.As(err, &vErr):
			hard = err
		case err != nil:
			s.log.Warnf("screen capture stop: %v", err)
		default:
			raws = append(raws, s.screen.Path())
		}
	}
	return raws, hard
}

// closeBrowser tears down pages, their browsing contexts, then the
// browser itself and the launcher's temp profile.
func (s *Session) closeBrowser() {
	for _, p := range s.orderedPanes() {
		if p.Page != nil {
			if err := p.Page.Close(); err != nil {
				s.log.Debugf("close %s: %v", p.ID, err)
			}
		}
		if p.browserCtx != nil && s.browser != nil {
			err := proto.TargetDisposeBrowserContext{
				BrowserContextID: p.browserCtx.BrowserContextID,
			}.Call(s.browser)
			if err != nil {
				s.log.Debugf("dispose context %s: %v", p.ID, err)
			}
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.Debugf("close browser: %v", err)
		}
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

func (s *Session) stopTerminals() {
	for _, p := range s.orderedPanes() {
		if p.Terminal != nil {
			p.Terminal.stop()
			s.reaper.release(p.Terminal.Process())
		}
	}
}

// composeVideo merges the raw captures and lays the audio track over
// them. Raw files are deleted only after the composite exists; a failed
// mix keeps the silent composite rather than losing the video.
func (s *Session) composeVideo(ctx context.Context, raws []string, durationMs int64, events []narrate.AudioEvent) (string, error) {
	final := filepath.Join(s.artifactDir, "demo.mp4")
	target := final
	if len(events) > 0 {
		target = filepath.Join(s.artifactDir, "composite.mp4")
	}

	layout, _ := ffmpeg.ParseLayout(s.cfg.Layout.Mode)
	err := s.runner.Compose(ctx, raws, target, ffmpeg.ComposeOptions{
		Layout:       layout,
		Cols:         s.cfg.Layout.Cols,
		Duration:     time.Duration(durationMs) * time.Millisecond,
		FPS:          s.cfg.FPS,
		Crop:         s.crop,
		LogicalWidth: s.cfg.Viewport.Width,
	})
	if err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}
	for _, raw := range raws {
		if rerr := os.Remove(raw); rerr != nil {
			s.log.Debugf("remove %s: %v", raw, rerr)
		}
	}
	if len(events) == 0 {
		return final, nil
	}

	clips := make([]ffmpeg.AudioClip, len(events))
	for i, ev := range events {
		clips[i] = ffmpeg.AudioClip{Path: ev.Path, StartMs: ev.StartMs, Volume: ev.Volume}
	}
	out, err := s.runner.MixAudio(ctx, target, clips, final)
	if err != nil {
		s.log.Errorf("audio mix failed, keeping silent video: %v", err)
		if rerr := os.Rename(target, final); rerr != nil {
			return target, nil
		}
		return final, nil
	}
	if rerr := os.Remove(target); rerr != nil {
		s.log.Debugf("remove %s: %v", target, rerr)
	}
	return out, nil
}

// checkTiming compares the produced video duration against the measured
// scenario duration. Drift beyond tolerance is a warning, escalated to an
// error under CI so a bad encode fails the pipeline.
func (s *Session) checkTiming(ctx context.Context, video string, wantMs int64) error {
	gotSec, err := s.runner.ProbeDuration(ctx, video)
	if err != nil {
		s.log.Warnf("probe %s: %v", video, err)
		return nil
	}
	gotMs := int64(gotSec * 1000)
	diff := gotMs - wantMs
	if diff < 0 {
		diff = -diff
	}
	tol := timingTolerance(wantMs)
	if diff <= tol {
		s.log.Infof("video %s: %dms (measured %dms)", filepath.Base(video), gotMs, wantMs)
		return nil
	}
	msg := fmt.Sprintf("video duration %dms deviates from measured %dms by %dms (tolerance %dms)", gotMs, wantMs, diff, tol)
	if s.cfg.CI {
		return errors.New(msg)
	}
	s.log.Warnf("%s", msg)
	return nil
}

// timingTolerance allows 10% drift plus a fixed floor for very short runs.
func timingTolerance(wantMs int64) int64 {
	return wantMs/10 + 500
}

// snapshotStep grabs a preview frame from the first browser pane.
func (s *Session) snapshotStep() {
	if !s.cfg.Preview {
		return
	}
	pane := s.firstBrowserPane()
	if pane == nil || pane.Page == nil {
		return
	}
	data, err := pane.Page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		s.log.Debugf("preview frame: %v", err)
		return
	}
	s.mu.Lock()
	s.snapshots = append(s.snapshots, data)
	s.mu.Unlock()
}

// writePreview renders the collected step snapshots into a looping GIF.
func (s *Session) writePreview() string {
	s.mu.Lock()
	frames := s.snapshots
	s.mu.Unlock()
	if len(frames) == 0 {
		return ""
	}
	path := filepath.Join(s.artifactDir, "preview.gif")
	if err := preview.Write(path, frames, preview.Options{}); err != nil {
		s.log.Warnf("preview: %v", err)
		return ""
	}
	s.log.Infof("preview -> %s", path)
	return path
}

func (s *Session) checkOpen(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateInitialized, StateRunning:
		return nil
	case StateFinishing, StateFinished:
		return ErrFinished
	default:
		return fmt.Errorf("%s: session not initialized", op)
	}
}

func (s *Session) nextPane(label string) (id, lbl string, seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paneSeq++
	id = fmt.Sprintf("pane-%d", s.paneSeq)
	if label == "" {
		label = id
	}
	return id, label, s.paneSeq
}

func (s *Session) addPane(p *Pane) {
	s.mu.Lock()
	s.panes[p.ID] = p
	s.paneOrder = append(s.paneOrder, p.ID)
	s.mu.Unlock()
}

func (s *Session) orderedPanes() []*Pane {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Pane, 0, len(s.paneOrder))
	for _, id := range s.paneOrder {
		out = append(out, s.panes[id])
	}
	return out
}

func (s *Session) firstBrowserPane() *Pane {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.paneOrder {
		if p := s.panes[id]; p.Kind == PaneBrowser {
			return p
		}
	}
	return nil
}

func (s *Session) stepRecords() []StepRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StepRecord, len(s.steps))
	copy(out, s.steps)
	return out
}

// sinceStart is the shared session clock; zero before Init so a failed
// startup still finishes cleanly.
func (s *Session) sinceStart() int64 {
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt).Milliseconds()
}

func consoleText(e *proto.RuntimeConsoleAPICalled) string {
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		if arg.Value.Nil() {
			parts = append(parts, arg.Description)
		} else {
			parts = append(parts, arg.Value.String())
		}
	}
	return strings.Join(parts, " ")
}

func exceptionText(e *proto.RuntimeExceptionThrown) string {
	d := e.ExceptionDetails
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	return d.Text
}
