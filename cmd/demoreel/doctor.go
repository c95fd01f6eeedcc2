package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"

	"github.com/v0xg/demoreel/internal/ffmpeg"
	"github.com/v0xg/demoreel/internal/logging"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check browser, encoder and narration prerequisites",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	failures := 0

	if bin, has := launcher.LookPath(); has {
		fmt.Printf("  ✓ browser: %s\n", bin)
	} else {
		fmt.Println("  ⚠ browser: no system Chrome/Chromium found, a managed one will be downloaded")
	}

	runner := ffmpeg.NewRunner(cfg.Encoder.FFmpeg, cfg.Encoder.FFprobe, logging.Nop())
	if err := runner.Available(); err != nil {
		fmt.Printf("  ✗ encoder: %v\n", err)
		failures++
	} else {
		fmt.Printf("  ✓ encoder: %s, %s\n", runner.FFmpeg, runner.FFprobe)
	}

	switch {
	case cfg.NarrationReady():
		fmt.Printf("  ✓ narration: voice %s via %s\n", cfg.Narration.Voice, cfg.Narration.Model)
	case cfg.Narration.Enabled:
		fmt.Println("  ✗ narration: enabled but neither DEMOREEL_OPENAI_KEY nor OPENAI_API_KEY is set")
		failures++
	default:
		fmt.Println("  - narration: disabled")
	}

	if cfg.Record == "screen" {
		switch runtime.GOOS {
		case "linux":
			if os.Getenv("DISPLAY") == "" {
				fmt.Println("  ✗ screen capture: DISPLAY is not set (start an X server or Xvfb)")
				failures++
			} else {
				fmt.Printf("  ✓ screen capture: display %s\n", os.Getenv("DISPLAY"))
			}
		case "darwin":
			fmt.Println("  ⚠ screen capture: grant Screen Recording permission to your terminal if the video comes out empty")
		default:
			fmt.Printf("  ✗ screen capture: unsupported platform %s\n", runtime.GOOS)
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	fmt.Println("✓ All checks passed")
	return nil
}
