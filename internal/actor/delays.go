package actor

import (
	"fmt"
	"math"
	"time"
)

// Mode selects the timing profile for a page actor.
type Mode string

const (
	// ModeHuman animates the pointer and paces every primitive.
	ModeHuman Mode = "human"
	// ModeFast skips animation and resolves every delay to zero.
	ModeFast Mode = "fast"
)

// ParseMode converts a config string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHuman, ModeFast:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown actor mode %q", s)
	}
}

// Range is a delay window in milliseconds.
type Range struct {
	Min int
	Max int
}

// Pick resolves the range to a single duration: Min when the range is empty
// or inverted, otherwise the rounded midpoint. Identical inputs always yield
// identical timing, so recordings are reproducible run to run.
func (r Range) Pick() time.Duration {
	ms := r.Min
	if r.Max > r.Min {
		ms = int(math.Round(float64(r.Min+r.Max) / 2))
	}
	return time.Duration(ms) * time.Millisecond
}

// Delays is the full named timing profile of an actor. All values are
// millisecond ranges resolved via Pick.
type Delays struct {
	Breathe      Range // idle beat between scenario moments
	PostNav      Range // settle after navigation
	PostScroll   Range // settle after a scroll gesture
	MoveStep     Range // per point along a pointer path
	ClickHold    Range // button held down during a click
	PostClick    Range // settle after releasing a click
	PreType      Range // focus-to-first-keystroke gap
	PerKey       Range // between keystrokes
	WordPause    Range // extra beat at word boundaries
	SelectOpen   Range // dropdown open before choosing
	SelectOption Range // settle after choosing an option
	PostDrag     Range // settle after releasing a drag
}

// HumanDelays is the default profile for ModeHuman.
func HumanDelays() Delays {
	return Delays{
		Breathe:      Range{600, 1400},
		PostNav:      Range{500, 900},
		PostScroll:   Range{350, 700},
		MoveStep:     Range{8, 18},
		ClickHold:    Range{60, 120},
		PostClick:    Range{150, 350},
		PreType:      Range{200, 400},
		PerKey:       Range{40, 90},
		WordPause:    Range{60, 140},
		SelectOpen:   Range{250, 450},
		SelectOption: Range{200, 380},
		PostDrag:     Range{250, 500},
	}
}

// FastDelays is the all-zero profile for ModeFast.
func FastDelays() Delays {
	return Delays{}
}

// DelaysFor returns the default profile for a mode.
func DelaysFor(mode Mode) Delays {
	if mode == ModeFast {
		return FastDelays()
	}
	return HumanDelays()
}

// ranges lists every named range, for iteration in diagnostics and tests.
func (d Delays) ranges() []Range {
	return []Range{
		d.Breathe, d.PostNav, d.PostScroll, d.MoveStep,
		d.ClickHold, d.PostClick, d.PreType, d.PerKey,
		d.WordPause, d.SelectOpen, d.SelectOption, d.PostDrag,
	}
}
