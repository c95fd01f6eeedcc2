package session

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/v0xg/demoreel/internal/narrate"
)

// metadata is the machine-readable run summary written next to the video.
type metadata struct {
	RunID       string               `json:"runId"`
	CreatedAt   time.Time            `json:"createdAt"`
	Mode        string               `json:"mode"`
	Record      string               `json:"record"`
	Viewport    string               `json:"viewport"`
	FPS         int                  `json:"fps"`
	WindSeed    int64                `json:"windSeed"`
	DurationMs  int64                `json:"durationMs"`
	Video       string               `json:"video,omitempty"`
	Subtitles   string               `json:"subtitles"`
	Preview     string               `json:"preview,omitempty"`
	Steps       []StepRecord         `json:"steps"`
	AudioEvents []narrate.AudioEvent `json:"audioEvents,omitempty"`
}

func writeMetadata(path string, meta metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
