package actor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/demoreel/internal/logging"
)

const (
	defaultWaitTimeout = 10 * time.Second
	defaultSeed        = 1
)

// NotFoundError reports a selector that did not resolve to a visible element
// within the wait timeout.
type NotFoundError struct {
	Selector string
	Cause    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s: %v", e.Selector, e.Cause)
}

func (e *NotFoundError) Unwrap() error { return e.Cause }

// Options configures a new Actor.
type Options struct {
	Mode        Mode
	Delays      *Delays       // nil = mode default
	Seed        int64         // wind randomness; 0 = fixed default
	WaitTimeout time.Duration // element resolution bound; 0 = 10s
	Start       *Point        // initial pointer position; nil = viewport center guess
	Cursor      bool          // inject the in-page cursor overlay
	Log         *logging.Logger
}

// Actor drives one page with physically plausible pointer and keyboard
// input. It is bound to exactly one page and keeps the last commanded
// pointer position across calls. Not safe for concurrent use.
type Actor struct {
	page        *rod.Page
	mode        Mode
	delays      Delays
	rng         *rand.Rand
	log         *logging.Logger
	overlay     *cursorOverlay
	waitTimeout time.Duration

	// last commanded pointer position, page-space pixels
	x, y float64
}

// New binds an actor to a page. The wind generator is seeded so identical
// scenarios produce identical paths.
func New(page *rod.Page, opts Options) *Actor {
	mode := opts.Mode
	if mode == "" {
		mode = ModeHuman
	}
	delays := DelaysFor(mode)
	if opts.Delays != nil {
		delays = *opts.Delays
	}
	seed := opts.Seed
	if seed == 0 {
		seed = defaultSeed
	}
	wt := opts.WaitTimeout
	if wt <= 0 {
		wt = defaultWaitTimeout
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	start := Point{X: 640, Y: 360}
	if opts.Start != nil {
		start = *opts.Start
	}

	a := &Actor{
		page:        page,
		mode:        mode,
		delays:      delays,
		rng:         rand.New(rand.NewSource(seed)),
		log:         log,
		overlay:     &cursorOverlay{enabled: opts.Cursor, log: log},
		waitTimeout: wt,
		x:           math.Round(start.X),
		y:           math.Round(start.Y),
	}
	a.overlay.install(page)
	return a
}

// Mode returns the actor's timing profile.
func (a *Actor) Mode() Mode { return a.mode }

// Position returns the last commanded pointer position.
func (a *Actor) Position() (x, y float64) { return a.x, a.y }

// Goto navigates the page and waits for the load event. The cursor overlay
// does not survive navigation and is reinstalled.
func (a *Actor) Goto(ctx context.Context, url string) error {
	a.log.Debugf("goto %s", url)
	page := a.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("goto %s: wait load: %w", url, err)
	}
	a.overlay.install(page)
	a.pause(a.delays.PostNav)
	return nil
}

// WaitFor blocks until the selector resolves to a visible element, bounded
// by the wait timeout.
func (a *Actor) WaitFor(ctx context.Context, selector string) error {
	_, err := a.resolve(ctx, selector)
	return err
}

// Center resolves the selector and returns the center of its content quad.
func (a *Actor) Center(ctx context.Context, selector string) (Point, error) {
	el, err := a.resolve(ctx, selector)
	if err != nil {
		return Point{}, err
	}
	return elementCenter(el)
}

// Box resolves the selector and returns its page-space bounding box.
func (a *Actor) Box(ctx context.Context, selector string) (x, y, w, h float64, err error) {
	el, err := a.resolve(ctx, selector)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	shape, err := el.Shape()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("box %s: %w", selector, err)
	}
	box := shape.Box()
	if box == nil {
		return 0, 0, 0, 0, fmt.Errorf("box %s: element has no shape", selector)
	}
	return box.X, box.Y, box.Width, box.Height, nil
}

// Click moves the pointer to the element's center and presses the left
// button. After the call the pointer sits exactly on the rounded center.
func (a *Actor) Click(ctx context.Context, selector string) error {
	a.log.Debugf("click %s", selector)
	el, err := a.resolve(ctx, selector)
	if err != nil {
		return err
	}
	pt, err := elementCenter(el)
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	if err := a.moveTo(pt); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	if err := a.press(); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	a.pause(a.delays.PostClick)
	return nil
}

// Type clicks the element to focus it and enters text. Human mode sends one
// keystroke at a time with extra pauses at word boundaries; fast mode
// injects the whole string.
func (a *Actor) Type(ctx context.Context, selector, text string) error {
	a.log.Debugf("type %d chars into %s", len(text), selector)
	el, err := a.resolve(ctx, selector)
	if err != nil {
		return err
	}
	pt, err := elementCenter(el)
	if err != nil {
		return fmt.Errorf("type %s: %w", selector, err)
	}
	if err := a.moveTo(pt); err != nil {
		return fmt.Errorf("type %s: %w", selector, err)
	}
	if err := a.press(); err != nil {
		return fmt.Errorf("type %s: %w", selector, err)
	}
	a.pause(a.delays.PreType)

	if a.mode == ModeFast {
		if err := a.page.InsertText(text); err != nil {
			return fmt.Errorf("type %s: %w", selector, err)
		}
		return nil
	}
	for _, r := range text {
		if err := a.page.Keyboard.Type(input.Key(r)); err != nil {
			return fmt.Errorf("type %s: key %q: %w", selector, r, err)
		}
		a.pause(a.delays.PerKey)
		if wordBoundary(r) {
			a.pause(a.delays.WordPause)
		}
	}
	return nil
}

// SelectOption opens a native select and picks the option whose text equals
// optionText after trimming. No exact match is an error.
func (a *Actor) SelectOption(ctx context.Context, selector, optionText string) error {
	el, err := a.resolve(ctx, selector)
	if err != nil {
		return err
	}
	pt, err := elementCenter(el)
	if err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	if err := a.moveTo(pt); err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	if err := a.press(); err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	a.pause(a.delays.SelectOpen)

	obj, err := el.Eval(selectOptionJS, optionText)
	if err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	if !obj.Value.Bool() {
		return fmt.Errorf("select %s: no option with text %q", selector, optionText)
	}
	a.pause(a.delays.SelectOption)
	return nil
}

// Scroll applies a scroll delta to the actually-scrollable node inside the
// element: the element itself, a known nested scroll viewport, or the first
// scrollable descendant, in that order. Human mode eases the delta over
// several sub-scrolls.
func (a *Actor) Scroll(ctx context.Context, selector string, dx, dy float64) error {
	el, err := a.resolve(ctx, selector)
	if err != nil {
		return err
	}
	if a.mode == ModeFast {
		if _, err := el.Eval(scrollJS, dx, dy); err != nil {
			return fmt.Errorf("scroll %s: %w", selector, err)
		}
		a.pause(a.delays.PostScroll)
		return nil
	}

	const steps = 8
	var doneX, doneY float64
	for i := 1; i <= steps; i++ {
		t := smoothstep(float64(i) / steps)
		if _, err := el.Eval(scrollJS, dx*t-doneX, dy*t-doneY); err != nil {
			return fmt.Errorf("scroll %s: %w", selector, err)
		}
		doneX, doneY = dx*t, dy*t
		a.pause(a.delays.MoveStep)
	}
	a.pause(a.delays.PostScroll)
	return nil
}

// Drag presses on the first element, moves along an eased path to the
// second and releases.
func (a *Actor) Drag(ctx context.Context, fromSelector, toSelector string) error {
	a.log.Debugf("drag %s -> %s", fromSelector, toSelector)
	from, err := a.Center(ctx, fromSelector)
	if err != nil {
		return err
	}
	to, err := a.Center(ctx, toSelector)
	if err != nil {
		return err
	}
	if err := a.dragGesture(from, to); err != nil {
		return fmt.Errorf("drag %s -> %s: %w", fromSelector, toSelector, err)
	}
	return nil
}

// DragByOffset drags the element by a pixel offset from its center.
func (a *Actor) DragByOffset(ctx context.Context, selector string, dx, dy float64) error {
	from, err := a.Center(ctx, selector)
	if err != nil {
		return err
	}
	to := Point{X: from.X + dx, Y: from.Y + dy}
	if err := a.dragGesture(from, to); err != nil {
		return fmt.Errorf("drag %s by (%.0f,%.0f): %w", selector, dx, dy, err)
	}
	return nil
}

// Draw traces a polyline over the element, with points relative to its
// top-left corner. Meant for canvas surfaces.
func (a *Actor) Draw(ctx context.Context, selector string, points []Point) error {
	if len(points) < 2 {
		return fmt.Errorf("draw %s: need at least 2 points, got %d", selector, len(points))
	}
	a.log.Debugf("draw %d points on %s", len(points), selector)
	el, err := a.resolve(ctx, selector)
	if err != nil {
		return err
	}
	origin, err := elementTopLeft(el)
	if err != nil {
		return fmt.Errorf("draw %s: %w", selector, err)
	}

	abs := make([]Point, len(points))
	for i, p := range points {
		abs[i] = Point{X: origin.X + p.X, Y: origin.Y + p.Y}
	}

	if err := a.moveTo(abs[0]); err != nil {
		return fmt.Errorf("draw %s: %w", selector, err)
	}
	if err := a.page.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("draw %s: %w", selector, err)
	}
	for i := 1; i < len(abs); i++ {
		if err := a.glide(abs[i-1], abs[i]); err != nil {
			_ = a.page.Mouse.Up(proto.InputMouseButtonLeft, 1)
			return fmt.Errorf("draw %s: %w", selector, err)
		}
	}
	if err := a.page.Mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("draw %s: %w", selector, err)
	}
	a.pause(a.delays.PostDrag)
	return nil
}

// Breathe inserts an idle beat, letting the recording sit on the current
// frame for a moment.
func (a *Actor) Breathe() {
	a.pause(a.delays.Breathe)
}

// resolve finds a visible element within the wait timeout and rebinds it to
// the caller's context.
func (a *Actor) resolve(ctx context.Context, selector string) (*rod.Element, error) {
	page := a.page.Context(ctx).Timeout(a.waitTimeout)
	el, err := page.Element(selector)
	if err != nil {
		return nil, &NotFoundError{Selector: selector, Cause: err}
	}
	if err := el.WaitVisible(); err != nil {
		return nil, &NotFoundError{Selector: selector, Cause: err}
	}
	return el.CancelTimeout(), nil
}

// moveTo animates the pointer to target (human) or jumps it (fast). The
// pointer always lands exactly on the rounded target.
func (a *Actor) moveTo(target Point) error {
	tx, ty := math.Round(target.X), math.Round(target.Y)
	if a.mode == ModeFast {
		if err := a.page.Mouse.MoveTo(proto.NewPoint(tx, ty)); err != nil {
			return err
		}
		a.x, a.y = tx, ty
		return nil
	}

	path := windMousePath(a.rng, Point{X: a.x, Y: a.y}, Point{X: tx, Y: ty})
	base := a.delays.MoveStep.Pick()
	for i, p := range path {
		if err := a.page.Mouse.MoveTo(proto.NewPoint(p.X, p.Y)); err != nil {
			return err
		}
		a.sleep(paceStep(base, i, len(path)))
	}
	last := path[len(path)-1]
	a.x, a.y = last.X, last.Y
	return nil
}

// glide moves the pointer along a smoothstep line while a button may be
// held. Used for drag and draw segments.
func (a *Actor) glide(from, to Point) error {
	path := linePath(from, to, pathSteps(from, to))
	base := a.delays.MoveStep.Pick()
	for i, p := range path {
		if err := a.page.Mouse.MoveTo(proto.NewPoint(p.X, p.Y)); err != nil {
			return err
		}
		a.sleep(paceStep(base, i, len(path)))
	}
	last := path[len(path)-1]
	a.x, a.y = last.X, last.Y
	return nil
}

// dragGesture runs a full press-glide-release drag between two page points.
func (a *Actor) dragGesture(from, to Point) error {
	if err := a.moveTo(from); err != nil {
		return err
	}
	if err := a.page.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	a.pause(a.delays.ClickHold)
	if err := a.glide(from, to); err != nil {
		_ = a.page.Mouse.Up(proto.InputMouseButtonLeft, 1)
		return err
	}
	if err := a.page.Mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	a.pause(a.delays.PostDrag)
	return nil
}

// press clicks the left button at the current pointer position with the
// configured hold time.
func (a *Actor) press() error {
	if err := a.page.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	a.pause(a.delays.ClickHold)
	return a.page.Mouse.Up(proto.InputMouseButtonLeft, 1)
}

func (a *Actor) pause(r Range) {
	a.sleep(r.Pick())
}

func (a *Actor) sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func wordBoundary(r rune) bool {
	return r == ' ' || r == '@' || r == '.'
}

// elementCenter averages the corners of the element's first content quad.
func elementCenter(el *rod.Element) (Point, error) {
	shape, err := el.Shape()
	if err != nil {
		return Point{}, err
	}
	if len(shape.Quads) == 0 {
		return Point{}, fmt.Errorf("element has no visible shape")
	}
	q := shape.Quads[0]
	return Point{
		X: (q[0] + q[2] + q[4] + q[6]) / 4,
		Y: (q[1] + q[3] + q[5] + q[7]) / 4,
	}, nil
}

// elementTopLeft returns the minimum corner of the first content quad.
func elementTopLeft(el *rod.Element) (Point, error) {
	shape, err := el.Shape()
	if err != nil {
		return Point{}, err
	}
	if len(shape.Quads) == 0 {
		return Point{}, fmt.Errorf("element has no visible shape")
	}
	q := shape.Quads[0]
	return Point{
		X: math.Min(math.Min(q[0], q[2]), math.Min(q[4], q[6])),
		Y: math.Min(math.Min(q[1], q[3]), math.Min(q[5], q[7])),
	}, nil
}

const selectOptionJS = `(text) => {
	const options = Array.from(this.options || []);
	const idx = options.findIndex(o => (o.textContent || '').trim() === text);
	if (idx < 0) return false;
	this.selectedIndex = idx;
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// scrollJS finds the node that actually scrolls. Selectors often point at a
// styled wrapper while a nested viewport owns the overflow.
const scrollJS = `(dx, dy) => {
	const scrollable = (n) => {
		if (!(n instanceof Element)) return false;
		const s = getComputedStyle(n);
		const y = (s.overflowY === 'auto' || s.overflowY === 'scroll') && n.scrollHeight > n.clientHeight;
		const x = (s.overflowX === 'auto' || s.overflowX === 'scroll') && n.scrollWidth > n.clientWidth;
		return y || x;
	};
	let node = scrollable(this) ? this : null;
	if (!node) {
		const known = ['[data-scroll-viewport]', '.scroll-viewport',
			'[data-radix-scroll-area-viewport]', '.overflow-y-auto', '.overflow-auto'];
		for (const sel of known) {
			const cand = this.querySelector(sel);
			if (cand && scrollable(cand)) { node = cand; break; }
		}
	}
	if (!node) {
		const walker = document.createTreeWalker(this, NodeFilter.SHOW_ELEMENT);
		let cur;
		while ((cur = walker.nextNode())) {
			if (scrollable(cur)) { node = cur; break; }
		}
	}
	(node || this).scrollBy(dx, dy);
}`
