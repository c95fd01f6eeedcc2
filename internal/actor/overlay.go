package actor

import (
	"github.com/go-rod/rod"

	"github.com/v0xg/demoreel/internal/logging"
)

// Headless captures contain no OS pointer, so the actor can optionally
// inject a DOM cursor that tracks the injected mouse events. The element
// follows real mousemove events via a capture-phase listener, which keeps
// pointer animation to one protocol call per path point.
const cursorOverlayJS = `() => {
	if (window.__reelCursor) return;
	const c = document.createElement('div');
	c.style.cssText = 'position:fixed;left:-20px;top:-20px;width:14px;height:14px;' +
		'border-radius:50%;background:rgba(30,30,30,0.85);' +
		'border:2px solid rgba(255,255,255,0.9);' +
		'box-shadow:0 1px 4px rgba(0,0,0,0.4);' +
		'pointer-events:none;z-index:2147483647;' +
		'transform:translate(-50%,-50%);will-change:left,top;';
	document.documentElement.appendChild(c);
	window.__reelCursor = c;
	document.addEventListener('mousemove', (e) => {
		c.style.left = e.clientX + 'px';
		c.style.top = e.clientY + 'px';
	}, { capture: true, passive: true });
	document.addEventListener('mousedown', (e) => {
		const p = document.createElement('div');
		p.style.cssText = 'position:fixed;width:34px;height:34px;border-radius:50%;' +
			'border:2px solid rgba(66,133,244,0.85);pointer-events:none;' +
			'z-index:2147483646;transform:translate(-50%,-50%);opacity:1;' +
			'transition:opacity 350ms ease-out,transform 350ms ease-out;';
		p.style.left = e.clientX + 'px';
		p.style.top = e.clientY + 'px';
		document.documentElement.appendChild(p);
		requestAnimationFrame(() => {
			p.style.opacity = '0';
			p.style.transform = 'translate(-50%,-50%) scale(1.6)';
		});
		setTimeout(() => p.remove(), 400);
	}, { capture: true, passive: true });
}`

// cursorOverlay installs the synthetic pointer into a document. Injection is
// best-effort: a page that rejects the script still records, just without a
// visible cursor.
type cursorOverlay struct {
	enabled bool
	log     *logging.Logger
}

func (o *cursorOverlay) install(page *rod.Page) {
	if !o.enabled {
		return
	}
	if _, err := page.Eval(cursorOverlayJS); err != nil {
		o.log.Debugf("cursor overlay install failed: %v", err)
	}
}
