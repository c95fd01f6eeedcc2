package narrate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/v0xg/demoreel/internal/logging"
)

const (
	defaultBuffer       = 300 * time.Millisecond
	effectDefaultVolume = 0.7
)

// Director schedules narration and effects against the session clock.
// Speak blocks the calling step for the clip's duration so video pacing
// matches the voice track; Effect returns immediately and may overlap
// speech. Implementations collect AudioEvents for the final mix.
type Director interface {
	Speak(ctx context.Context, text string, opts SpeakOptions) error
	Effect(ctx context.Context, name string, opts EffectOptions) error
	Events() []AudioEvent
	Enabled() bool
}

// Encoder is the slice of the external encoder the director needs: clip
// duration probing and lavfi synthesis for bundled effects.
type Encoder interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Synth(ctx context.Context, source, out string) error
}

// Options configures the director.
type Options struct {
	Enabled  bool
	APIKey   string
	Model    string
	Voice    string
	Speed    float64
	BufferMs int    // extra pause after each spoken line
	CacheDir string // clip cache location
	Clock    func() time.Duration
	Encoder  Encoder
	Log      *logging.Logger
}

// New selects the real or the inert director exactly once, so scenario
// code never branches on whether narration is available.
func New(opts Options) (Director, error) {
	if !opts.Enabled || strings.TrimSpace(opts.APIKey) == "" {
		return &noopDirector{}, nil
	}
	cache, err := NewClipCache(opts.CacheDir)
	if err != nil {
		return nil, err
	}
	buffer := defaultBuffer
	if opts.BufferMs > 0 {
		buffer = time.Duration(opts.BufferMs) * time.Millisecond
	}
	clock := opts.Clock
	if clock == nil {
		start := time.Now()
		clock = func() time.Duration { return time.Since(start) }
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	return &director{
		synth:  newTTS(opts.APIKey, opts.Model, opts.Voice, opts.Speed),
		cache:  cache,
		enc:    opts.Encoder,
		clock:  clock,
		buffer: buffer,
		log:    log,
	}, nil
}

type director struct {
	synth  synthesizer
	cache  *ClipCache
	enc    Encoder
	clock  func() time.Duration
	buffer time.Duration
	log    *logging.Logger

	mu     sync.Mutex
	events []AudioEvent
}

func (d *director) Enabled() bool { return true }

func (d *director) Speak(ctx context.Context, text string, opts SpeakOptions) error {
	path, err := d.clipFor(ctx, text)
	if err != nil {
		return err
	}

	durSec, err := d.enc.ProbeDuration(ctx, path)
	if err != nil {
		return fmt.Errorf("speak: probe clip: %w", err)
	}
	durMs := int64(math.Round(durSec * 1000))

	vol := opts.Volume
	if vol <= 0 {
		vol = 1
	}
	d.append(AudioEvent{
		Kind:       KindSpeak,
		StartMs:    d.clock().Milliseconds(),
		DurationMs: durMs,
		Path:       path,
		Label:      text,
		Volume:     vol,
	})

	d.log.Debugf("speak %dms: %s", durMs, text)
	time.Sleep(time.Duration(durMs)*time.Millisecond + d.buffer)
	return nil
}

func (d *director) Effect(ctx context.Context, name string, opts EffectOptions) error {
	var (
		path  string
		durMs int64
		err   error
	)
	if opts.Path != "" {
		path = opts.Path
		durSec, perr := d.enc.ProbeDuration(ctx, path)
		if perr != nil {
			return fmt.Errorf("effect %q: probe clip: %w", name, perr)
		}
		durMs = int64(math.Round(durSec * 1000))
	} else {
		path, durMs, err = d.resolveEffect(ctx, name)
		if err != nil {
			return err
		}
	}

	vol := opts.Volume
	if vol <= 0 {
		vol = effectDefaultVolume
	}
	d.append(AudioEvent{
		Kind:       KindEffect,
		StartMs:    d.clock().Milliseconds(),
		DurationMs: durMs,
		Path:       path,
		Label:      name,
		Volume:     vol,
	})
	d.log.Debugf("effect %s at %dms", name, d.clock().Milliseconds())
	return nil
}

// clipFor returns the cached clip for a line, synthesizing on miss.
func (d *director) clipFor(ctx context.Context, text string) (string, error) {
	key := d.synth.CacheKey(text)
	if path, ok := d.cache.Lookup(key, "mp3"); ok {
		return path, nil
	}
	data, err := d.synth.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	return d.cache.Store(key, "mp3", data)
}

func (d *director) append(ev AudioEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *director) Events() []AudioEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]AudioEvent, len(d.events))
	copy(out, d.events)
	return out
}

// noopDirector swallows all narration calls.
type noopDirector struct{}

func (noopDirector) Speak(context.Context, string, SpeakOptions) error    { return nil }
func (noopDirector) Effect(context.Context, string, EffectOptions) error { return nil }
func (noopDirector) Events() []AudioEvent                                { return nil }
func (noopDirector) Enabled() bool                                       { return false }
