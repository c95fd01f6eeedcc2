package session

import "github.com/v0xg/demoreel/internal/narrate"

// Result is the artifact bundle a finished session leaves behind. Video
// is empty when recording was off or every capture failed; Subtitles and
// Metadata are always written.
type Result struct {
	RunID       string               `json:"runId"`
	ArtifactDir string               `json:"artifactDir"`
	Video       string               `json:"video,omitempty"`
	Subtitles   string               `json:"subtitles"`
	Metadata    string               `json:"metadata"`
	Preview     string               `json:"preview,omitempty"`
	DurationMs  int64                `json:"durationMs"`
	Steps       []StepRecord         `json:"steps"`
	AudioEvents []narrate.AudioEvent `json:"audioEvents,omitempty"`
}
