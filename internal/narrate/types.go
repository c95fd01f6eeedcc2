package narrate

// Kind distinguishes narration speech from short sound effects.
type Kind string

const (
	KindSpeak  Kind = "speak"
	KindEffect Kind = "effect"
)

// AudioEvent is one clip scheduled into the final mix. StartMs is the
// offset from session start; events are appended in call order and
// consumed exactly once at mix time.
type AudioEvent struct {
	Kind       Kind    `json:"kind"`
	StartMs    int64   `json:"startMs"`
	DurationMs int64   `json:"durationMs"`
	Path       string  `json:"path"`
	Label      string  `json:"label"`
	Volume     float64 `json:"volume"`
}

// SpeakOptions tunes one narration line.
type SpeakOptions struct {
	Volume float64 // 0 = full volume
}

// EffectOptions tunes one sound effect.
type EffectOptions struct {
	Volume float64 // 0 = effect default
	Path   string  // explicit clip file instead of a bundled name
}
