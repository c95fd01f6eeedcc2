package session

import (
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/demoreel/internal/logging"
)

const (
	tileGap = 8
	// headed Chrome adds a title bar and toolbar above the viewport
	windowChromeHeight = 88
)

// placement positions pane windows on the desktop. It only matters for
// headed runs feeding a whole-screen recording; headless runs get the
// no-op strategy. The choice is made once at Init and never revisited.
type placement interface {
	apply(panes []*Pane)
}

type noopPlacement struct{}

func (noopPlacement) apply([]*Pane) {}

// tilePlacement lays pane windows out in a single left-to-right row so a
// screen capture sees them side by side without overlap.
type tilePlacement struct {
	width  int
	height int
	log    *logging.Logger
}

func (t *tilePlacement) apply(panes []*Pane) {
	col := 0
	for _, p := range panes {
		if p.Page == nil {
			continue
		}
		left := tileOrigin(col, t.width)
		top := 0
		w := t.width
		h := t.height + windowChromeHeight
		err := p.Page.SetWindow(&proto.BrowserBounds{
			Left:        &left,
			Top:         &top,
			Width:       &w,
			Height:      &h,
			WindowState: proto.BrowserWindowStateNormal,
		})
		if err != nil {
			// window bounds are unsupported on some targets; keep going
			t.log.Debugf("tile %s: %v", p.ID, err)
		}
		col++
	}
}

func tileOrigin(col, width int) int {
	return col * (width + tileGap)
}
