package session

import (
	"github.com/go-rod/rod"

	"github.com/v0xg/demoreel/internal/actor"
	"github.com/v0xg/demoreel/internal/capture"
)

// PaneKind tags the two pane variants.
type PaneKind string

const (
	PaneBrowser  PaneKind = "browser"
	PaneTerminal PaneKind = "terminal"
)

// Pane is one managed surface within a session: a browser page driven by
// an actor, or a terminal subprocess mirrored into a log-view page. Panes
// are created by OpenPage/OpenTerminal and destroyed by Finish; the
// session is the only mutator of pane state.
type Pane struct {
	ID    string
	Kind  PaneKind
	Label string

	// browser surface; terminal panes use Page for their log view
	Page  *rod.Page
	Actor *actor.Actor

	Terminal *Terminal

	// isolated browsing context owning Page
	browserCtx *rod.Browser
	// per-pane recording sink, nil when recording is off or start failed
	rec *capture.Recorder
}

// CapturePath returns the pane's raw capture file, or "" when the pane
// recorded nothing.
func (p *Pane) CapturePath() string {
	if p.rec == nil || p.rec.Frames() == 0 {
		return ""
	}
	return p.rec.Path()
}
