// Package collab runs two independent browser actors against a shared,
// externally-synchronized document and audits how fast changes made by
// one become visible to the other.
package collab

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/v0xg/demoreel/internal/logging"
	"github.com/v0xg/demoreel/internal/session"
)

// Role tags collaboration steps with the actor performing them.
type Role string

const (
	RoleA    Role = "actorA"
	RoleB    Role = "actorB"
	RoleBoth Role = "both"
)

const (
	defaultRelayWait   = 15 * time.Second
	defaultJoinTimeout = 10 * time.Second
	docPollInterval    = 200 * time.Millisecond
)

// Options configures a two-actor collaboration run on top of an
// initialized session.
type Options struct {
	BaseURL     string        // app serving the shared document UI
	DocPath     string        // path actorA opens to create the doc; "" = "/"
	RelayURL    string        // sync relay websocket, probed before start; "" skips the probe
	RelayWait   time.Duration // relay readiness bound; 0 = 15s
	JoinTimeout time.Duration // how long the app gets to mint a doc address; 0 = 10s
	Reviewer    *ReviewerOptions
}

// Run is a collaboration session in flight: one session, two browser
// panes, and optionally a reviewer process editing the same document.
type Run struct {
	Session *session.Session
	A       *session.Pane
	B       *session.Pane
	DocURL  string

	reviewer *Reviewer
	log      *logging.Logger
}

// Start boots the shared document. ActorA navigates and the app mints a
// document address through the external relay, published in the page's
// location fragment; actorB joins that exact address, and the optional
// reviewer process attaches last.
func Start(ctx context.Context, s *session.Session, opts Options) (*Run, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("collab: base URL required")
	}
	log := s.Log().Component("collab")

	if opts.RelayURL != "" {
		wait := opts.RelayWait
		if wait <= 0 {
			wait = defaultRelayWait
		}
		wctx, cancel := context.WithTimeout(ctx, wait)
		err := WaitReady(wctx, opts.RelayURL)
		cancel()
		if err != nil {
			return nil, err
		}
		log.Infof("relay ready at %s", opts.RelayURL)
	}

	docPath := opts.DocPath
	if docPath == "" {
		docPath = "/"
	}
	a, err := s.OpenPage(ctx, session.PageOptions{Label: string(RoleA), URL: opts.BaseURL + docPath})
	if err != nil {
		return nil, err
	}

	joinTimeout := opts.JoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = defaultJoinTimeout
	}
	docURL, err := waitDocAddress(ctx, a, joinTimeout)
	if err != nil {
		return nil, fmt.Errorf("shared document address: %w", err)
	}
	log.Infof("document at %s", docURL)

	b, err := s.OpenPage(ctx, session.PageOptions{Label: string(RoleB), URL: docURL})
	if err != nil {
		return nil, err
	}

	r := &Run{Session: s, A: a, B: b, DocURL: docURL, log: log}
	if opts.Reviewer != nil {
		rev, err := startReviewer(*opts.Reviewer, docURL,
			filepath.Join(s.ArtifactDir(), "reviewer.log"), log.Component("reviewer"))
		if err != nil {
			return nil, err
		}
		r.reviewer = rev
	}
	return r, nil
}

// StepA runs a step attributed to the first actor.
func (r *Run) StepA(ctx context.Context, caption string, fn func(ctx context.Context) error) (int, error) {
	return r.Session.StepTagged(ctx, session.StepTag{PaneID: r.A.ID, Role: string(RoleA)}, caption, fn)
}

// StepB runs a step attributed to the second actor.
func (r *Run) StepB(ctx context.Context, caption string, fn func(ctx context.Context) error) (int, error) {
	return r.Session.StepTagged(ctx, session.StepTag{PaneID: r.B.ID, Role: string(RoleB)}, caption, fn)
}

// StepBoth runs a step involving both actors at once.
func (r *Run) StepBoth(ctx context.Context, caption string, fn func(ctx context.Context) error) (int, error) {
	return r.Session.StepTagged(ctx, session.StepTag{Role: string(RoleBoth)}, caption, fn)
}

// Review sends one command line to the reviewer process.
func (r *Run) Review(command string) error {
	if r.reviewer == nil {
		return fmt.Errorf("no reviewer attached")
	}
	return r.reviewer.Send(command)
}

// Finish stops the reviewer, finishes the underlying session, then
// writes per-role subtitle tracks and the sync audit next to the
// combined artifacts. A non-positive sync delta fails the run even
// though all artifacts are written.
func (r *Run) Finish(ctx context.Context) (*session.Result, *Report, error) {
	if r.reviewer != nil {
		r.reviewer.stop()
	}

	res, err := r.Session.Finish(ctx)
	if err != nil {
		return res, nil, err
	}

	for _, role := range []Role{RoleA, RoleB} {
		roleSteps := session.FilterRole(res.Steps, string(role))
		if len(roleSteps) == 0 {
			continue
		}
		path := filepath.Join(res.ArtifactDir, fmt.Sprintf("demo-%s.vtt", role))
		if werr := session.WriteVTT(path, roleSteps); werr != nil {
			r.log.Warnf("role subtitles %s: %v", role, werr)
		}
	}

	report := Audit(res.Steps)
	if werr := writeReport(filepath.Join(res.ArtifactDir, "sync-report.json"), report); werr != nil {
		r.log.Warnf("sync report: %v", werr)
	}
	r.log.Infof("%s", report.Summary())
	if report.Failed > 0 {
		return res, report, fmt.Errorf("sync audit: %d of %d pairs non-positive", report.Failed, len(report.Pairs))
	}
	return res, report, nil
}

// waitDocAddress polls actorA's page until the app publishes the shared
// document address in the location fragment.
func waitDocAddress(ctx context.Context, pane *session.Pane, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		obj, err := pane.Page.Eval(`() => window.location.href`)
		if err == nil {
			href := obj.Value.Str()
			if i := strings.Index(href, "#"); i >= 0 && i < len(href)-1 {
				return href, nil
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("no location fragment after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(docPollInterval):
		}
	}
}
