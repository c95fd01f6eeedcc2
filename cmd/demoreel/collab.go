package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v0xg/demoreel/internal/collab"
	"github.com/v0xg/demoreel/internal/config"
	"github.com/v0xg/demoreel/internal/session"
)

var (
	relayURL        string
	docPath         string
	reviewerCommand string
)

func collabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collab",
		Short: "Record a two-actor collaboration demo with a sync audit",
		Long: `collab opens two independent browser actors on the same shared document.
Actor A creates the document, actor B joins it via the address the app
publishes in the location fragment, and both take turns editing while
the audit measures how fast changes propagate.

The app is expected to tag its UI: an input [data-collab-input], a
submit control [data-collab-submit], and added items rendered with
[data-collab-item="<text>"].`,
		RunE: runCollab,
	}
	cmd.Flags().StringVar(&relayURL, "relay", "", "Document-sync relay WebSocket URL to wait for")
	cmd.Flags().StringVar(&docPath, "doc-path", "", "Path actor A opens to create the document (default /)")
	cmd.Flags().StringVar(&reviewerCommand, "reviewer", "", "Optional reviewer command editing the same document")
	return cmd
}

func runCollab(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("collab needs --base-url (or baseURL in the config file)")
	}

	fmt.Printf("→ Collaboration run against %s...\n", cfg.BaseURL)
	res, report, err := runCollabScenario(cmd.Context(), cfg)
	if err != nil {
		printPartial(res)
		return err
	}
	printResult(res)
	if report != nil {
		fmt.Printf("  %s\n", report.Summary())
	}
	return nil
}

func runCollabScenario(ctx context.Context, cfg *config.Config) (*session.Result, *collab.Report, error) {
	s, err := session.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Init(ctx); err != nil {
		res, _ := s.Finish(ctx)
		return res, nil, err
	}

	opts := collab.Options{
		BaseURL:  cfg.BaseURL,
		DocPath:  docPath,
		RelayURL: relayURL,
	}
	if reviewerCommand != "" {
		parts := strings.Fields(reviewerCommand)
		opts.Reviewer = &collab.ReviewerOptions{Command: parts[0], Args: parts[1:]}
	}

	run, err := collab.Start(ctx, s, opts)
	if err != nil {
		res, _ := s.Abort(ctx, err)
		return res, nil, err
	}
	if err := collabScript(ctx, run); err != nil {
		res, _ := s.Abort(ctx, err)
		return res, nil, err
	}
	return run.Finish(ctx)
}

// collabScript is the built-in two-actor script: actor A adds items,
// actor B confirms each one arrived through the sync relay.
func collabScript(ctx context.Context, run *collab.Run) error {
	items := []string{"Draft release notes", "Fix login flow", "Ship it"}
	for _, item := range items {
		if _, err := run.StepA(ctx, fmt.Sprintf("Actor A adds %q to the board", item), func(ctx context.Context) error {
			if err := run.A.Actor.Type(ctx, "[data-collab-input]", item); err != nil {
				return err
			}
			return run.A.Actor.Click(ctx, "[data-collab-submit]")
		}); err != nil {
			return err
		}
		if _, err := run.StepB(ctx, fmt.Sprintf("Actor B sees %q appear", item), func(ctx context.Context) error {
			return run.B.Actor.WaitFor(ctx, fmt.Sprintf(`[data-collab-item="%s"]`, item))
		}); err != nil {
			return err
		}
	}
	return nil
}
