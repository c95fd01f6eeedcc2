package narrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/demoreel/internal/logging"
)

type fakeSynth struct {
	calls int
	data  []byte
}

func (f *fakeSynth) Synthesize(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.data, nil
}

func (f *fakeSynth) CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

type fakeEncoder struct {
	probeSec   float64
	synthCalls int
}

func (f *fakeEncoder) ProbeDuration(context.Context, string) (float64, error) {
	return f.probeSec, nil
}

func (f *fakeEncoder) Synth(_ context.Context, _ string, out string) error {
	f.synthCalls++
	return os.WriteFile(out, []byte("RIFF"), 0o644)
}

func newTestDirector(t *testing.T, clock func() time.Duration) (*director, *fakeSynth, *fakeEncoder) {
	t.Helper()
	cache, err := NewClipCache(t.TempDir())
	require.NoError(t, err)
	synth := &fakeSynth{data: []byte("mp3bytes")}
	enc := &fakeEncoder{probeSec: 0.05}
	d := &director{
		synth:  synth,
		cache:  cache,
		enc:    enc,
		clock:  clock,
		buffer: 10 * time.Millisecond,
		log:    logging.Nop(),
	}
	return d, synth, enc
}

func fixedClock(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}

func TestSpeakRecordsEventAndBlocks(t *testing.T) {
	d, _, _ := newTestDirector(t, fixedClock(1200*time.Millisecond))

	start := time.Now()
	require.NoError(t, d.Speak(context.Background(), "hello there", SpeakOptions{}))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond, "speak must block for clip+buffer")

	events := d.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, KindSpeak, ev.Kind)
	assert.EqualValues(t, 1200, ev.StartMs)
	assert.EqualValues(t, 50, ev.DurationMs)
	assert.Equal(t, "hello there", ev.Label)
	assert.Equal(t, 1.0, ev.Volume)
	assert.FileExists(t, ev.Path)
}

func TestSpeakReusesCachedClip(t *testing.T) {
	d, synth, _ := newTestDirector(t, fixedClock(0))

	require.NoError(t, d.Speak(context.Background(), "same line", SpeakOptions{}))
	require.NoError(t, d.Speak(context.Background(), "same line", SpeakOptions{}))

	assert.Equal(t, 1, synth.calls, "second speak should hit the cache")
	assert.Len(t, d.Events(), 2, "cached clips still produce events")
}

func TestSpeakVolumeOverride(t *testing.T) {
	d, _, _ := newTestDirector(t, fixedClock(0))
	require.NoError(t, d.Speak(context.Background(), "quiet", SpeakOptions{Volume: 0.5}))
	assert.Equal(t, 0.5, d.Events()[0].Volume)
}

func TestEffectDoesNotBlock(t *testing.T) {
	d, _, enc := newTestDirector(t, fixedClock(3*time.Second))

	start := time.Now()
	require.NoError(t, d.Effect(context.Background(), "pop", EffectOptions{}))
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	events := d.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, KindEffect, ev.Kind)
	assert.EqualValues(t, 3000, ev.StartMs)
	assert.EqualValues(t, 90, ev.DurationMs)
	assert.Equal(t, "pop", ev.Label)
	assert.Equal(t, effectDefaultVolume, ev.Volume)
	assert.Equal(t, 1, enc.synthCalls)

	// second use hits the cache
	require.NoError(t, d.Effect(context.Background(), "pop", EffectOptions{}))
	assert.Equal(t, 1, enc.synthCalls)
}

func TestEffectUnknownName(t *testing.T) {
	d, _, _ := newTestDirector(t, fixedClock(0))
	err := d.Effect(context.Background(), "kaboom", EffectOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown effect")
	assert.Contains(t, err.Error(), "pop", "error should list the bundled names")
}

func TestEffectExplicitPath(t *testing.T) {
	d, _, enc := newTestDirector(t, fixedClock(0))
	enc.probeSec = 1.25

	clip := t.TempDir() + "/custom.wav"
	require.NoError(t, os.WriteFile(clip, []byte("RIFF"), 0o644))

	require.NoError(t, d.Effect(context.Background(), "custom", EffectOptions{Path: clip, Volume: 0.9}))

	events := d.Events()
	require.Len(t, events, 1)
	assert.Equal(t, clip, events[0].Path)
	assert.EqualValues(t, 1250, events[0].DurationMs)
	assert.Equal(t, 0.9, events[0].Volume)
	assert.Zero(t, enc.synthCalls)
}

func TestEventsAreOrderedAndCopied(t *testing.T) {
	d, _, _ := newTestDirector(t, fixedClock(0))
	require.NoError(t, d.Effect(context.Background(), "click", EffectOptions{}))
	require.NoError(t, d.Effect(context.Background(), "chime", EffectOptions{}))

	events := d.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "click", events[0].Label)
	assert.Equal(t, "chime", events[1].Label)

	events[0].Label = "mutated"
	assert.Equal(t, "click", d.Events()[0].Label, "Events must return a copy")
}

func TestNewSubstitutesNoopWhenUnavailable(t *testing.T) {
	for name, opts := range map[string]Options{
		"disabled": {Enabled: false, APIKey: "sk-x"},
		"no key":   {Enabled: true, APIKey: ""},
	} {
		t.Run(name, func(t *testing.T) {
			d, err := New(opts)
			require.NoError(t, err)
			assert.False(t, d.Enabled())
			assert.NoError(t, d.Speak(context.Background(), "ignored", SpeakOptions{}))
			assert.NoError(t, d.Effect(context.Background(), "pop", EffectOptions{}))
			assert.Nil(t, d.Events())
		})
	}
}

func TestNewRealDirector(t *testing.T) {
	d, err := New(Options{
		Enabled:  true,
		APIKey:   "sk-test",
		CacheDir: t.TempDir(),
		Encoder:  &fakeEncoder{probeSec: 1},
	})
	require.NoError(t, err)
	assert.True(t, d.Enabled())
}

func TestEffectNamesSorted(t *testing.T) {
	names := EffectNames()
	assert.Equal(t, []string{"chime", "click", "error", "pop", "whoosh"}, names)
}
