package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/v0xg/demoreel/internal/session"
)

// builtinScenarios maps scenario names to runnable scripts. App-specific
// scenarios register here; the generic smoke scenario works against any
// page.
var builtinScenarios = map[string]session.Scenario{
	"smoke": smokeScenario,
}

func scenarioNames() []string {
	names := make([]string, 0, len(builtinScenarios))
	for name := range builtinScenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// smokeScenario opens the base URL, looks around and settles, proving the
// capture, narration, composition and subtitle pipeline end to end
// without depending on any app-specific DOM.
func smokeScenario(ctx context.Context, s *session.Session) error {
	cfg := s.Config()
	if cfg.BaseURL == "" {
		return fmt.Errorf("smoke scenario needs --base-url (or baseURL in the config file)")
	}

	pane, err := s.OpenPage(ctx, session.PageOptions{Label: "app", URL: cfg.BaseURL})
	if err != nil {
		return err
	}

	if _, err := s.Step(ctx, "Open the app", func(ctx context.Context) error {
		if err := pane.Actor.WaitFor(ctx, "body"); err != nil {
			return err
		}
		return s.Say(ctx, "Here is the application, freshly loaded.")
	}); err != nil {
		return err
	}

	if _, err := s.Step(ctx, "Look around the page", func(ctx context.Context) error {
		pane.Actor.Breathe()
		if err := pane.Actor.Scroll(ctx, "html", 0, 400); err != nil {
			return err
		}
		pane.Actor.Breathe()
		return pane.Actor.Scroll(ctx, "html", 0, -400)
	}); err != nil {
		return err
	}

	_, err = s.Step(ctx, "Settle on the result", func(ctx context.Context) error {
		pane.Actor.Breathe()
		return s.Say(ctx, "And that is the whole tour.")
	})
	return err
}
