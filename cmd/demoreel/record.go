package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v0xg/demoreel/internal/config"
	"github.com/v0xg/demoreel/internal/session"
)

func recordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <scenario>",
		Short: "Run a registered scenario and produce the demo video",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecord,
	}
}

func runRecord(cmd *cobra.Command, args []string) error {
	name := args[0]
	scenario, ok := builtinScenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(scenarioNames(), ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("→ Recording scenario %q (mode %s, record %s)...\n", name, cfg.Mode, cfg.Record)
	res, err := session.Run(cmd.Context(), cfg, scenario)
	if err != nil {
		printPartial(res)
		return err
	}
	printResult(res)
	return nil
}

// loadConfig merges the config file, environment and command-line flags,
// flags winning.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if artifactsDir != "" {
		cfg.Artifacts = artifactsDir
	}
	if actorMode != "" {
		cfg.Mode = actorMode
	}
	if recordTarget != "" {
		cfg.Record = recordTarget
	}
	if layoutMode != "" {
		cfg.Layout.Mode = layoutMode
	}
	if layoutCols > 0 {
		cfg.Layout.Cols = layoutCols
	}
	if width > 0 {
		cfg.Viewport.Width = width
	}
	if height > 0 {
		cfg.Viewport.Height = height
	}
	if fps > 0 {
		cfg.FPS = fps
	}
	if narrateOn {
		cfg.Narration.Enabled = true
	}
	if voice != "" {
		cfg.Narration.Voice = voice
	}
	if windSeed != 0 {
		cfg.Timing.WindSeed = windSeed
	}
	if previewOn {
		cfg.Preview = true
	}
	if fast {
		cfg.Mode = "fast"
		cfg.Timing.StepPauseMs = 0
		cfg.Timing.TailPauseMs = 0
	}
	cfg.Verbose = verbose
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printResult(res *session.Result) {
	if res == nil {
		return
	}
	if res.Video != "" {
		fmt.Printf("✓ Video %s (%.1fs)\n", res.Video, float64(res.DurationMs)/1000)
	} else {
		fmt.Printf("✓ Run complete, no video recorded (%.1fs)\n", float64(res.DurationMs)/1000)
	}
	fmt.Printf("  Subtitles %s\n", res.Subtitles)
	fmt.Printf("  Metadata  %s\n", res.Metadata)
	if res.Preview != "" {
		fmt.Printf("  Preview   %s\n", res.Preview)
	}
}

func printPartial(res *session.Result) {
	if res == nil {
		return
	}
	fmt.Printf("✗ Run failed, partial artifacts in %s\n", res.ArtifactDir)
}
