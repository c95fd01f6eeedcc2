package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	artifactsDir string
	baseURL      string
	actorMode    string
	recordTarget string
	layoutMode   string
	layoutCols   int
	width        int
	height       int
	fps          int
	narrateOn    bool
	voice        string
	windSeed     int64
	previewOn    bool
	fast         bool
	verbose      bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "demoreel",
		Short: "Record narrated browser demos as video artifacts",
		Long: `demoreel drives a real browser through scripted scenarios and produces
a narrated demo video: a composed MP4, a WebVTT subtitle track and JSON
run metadata.

Example:
  demoreel record smoke --base-url http://localhost:5173
  demoreel collab --base-url http://localhost:5173 --relay ws://localhost:1234/sync
  demoreel doctor`,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default demoreel.yaml if present)")
	pf.StringVar(&artifactsDir, "artifacts", "", "Artifact output directory")
	pf.StringVar(&baseURL, "base-url", "", "Base URL of the app under demo")
	pf.StringVar(&actorMode, "mode", "", "Actor mode: human, fast")
	pf.StringVar(&recordTarget, "record", "", "Recording target: none, panes, screen")
	pf.StringVar(&layoutMode, "layout", "", "Composite layout: auto, row, grid")
	pf.IntVar(&layoutCols, "cols", 0, "Grid columns (0 = square-ish)")
	pf.IntVar(&width, "width", 0, "Viewport width")
	pf.IntVar(&height, "height", 0, "Viewport height")
	pf.IntVar(&fps, "fps", 0, "Output framerate")
	pf.BoolVar(&narrateOn, "narrate", false, "Enable speech narration")
	pf.StringVar(&voice, "voice", "", "Narration voice")
	pf.Int64Var(&windSeed, "seed", 0, "Pointer-path seed (0 = config default)")
	pf.BoolVar(&previewOn, "preview", false, "Also write a preview GIF")
	pf.BoolVar(&fast, "fast", false, "Fast mode: no animation, no pacing pauses")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(recordCmd(), collabCmd(), doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
