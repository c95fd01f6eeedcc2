package session

import (
	"fmt"
	"os"
	"strings"
)

// WriteVTT renders step records as a WebVTT track, one cue per step.
// Records with an end at or before their start are stretched to 1ms so
// every step yields a valid cue.
func WriteVTT(path string, steps []StepRecord) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, st := range steps {
		end := st.EndMs
		if end <= st.StartMs {
			end = st.StartMs + 1
		}
		fmt.Fprintf(&b, "%s --> %s\n", vttTimestamp(st.StartMs), vttTimestamp(end))
		fmt.Fprintf(&b, "Step %d: %s\n\n", st.Index, st.Caption)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// FilterRole returns the records tagged with role, preserving order.
func FilterRole(steps []StepRecord, role string) []StepRecord {
	var out []StepRecord
	for _, st := range steps {
		if st.Role == role {
			out = append(out, st)
		}
	}
	return out
}

func vttTimestamp(ms int64) string {
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
