package collab

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/v0xg/demoreel/internal/session"
)

// Caption patterns the audit matches. An "add" names an item one actor
// created ('adds "Buy milk"'); a "see" names the same item observed by
// the other actor ('sees "Buy milk" appear').
var (
	addPattern = regexp.MustCompile(`\badds?\b[^"]*"([^"]+)"`)
	seePattern = regexp.MustCompile(`\bsees?\b[^"]*"([^"]+)"`)
)

// Pair is one matched add/see caption pair.
type Pair struct {
	Item    string `json:"item"`
	AddRole string `json:"addRole"`
	SeeRole string `json:"seeRole"`
	AddedMs int64  `json:"addedMs"`
	SeenMs  int64  `json:"seenMs"`
	DeltaMs int64  `json:"deltaMs"`
	OK      bool   `json:"ok"`
}

// Report aggregates sync latency between the two actors.
type Report struct {
	Pairs      []Pair `json:"pairs"`
	Failed     int    `json:"failed"`
	MinMs      int64  `json:"minMs"`
	AvgMs      int64  `json:"avgMs"`
	MaxMs      int64  `json:"maxMs"`
	EarlyAvgMs int64  `json:"earlyAvgMs"`
	LateAvgMs  int64  `json:"lateAvgMs"`
}

// Audit scans step records for add/see caption pairs naming the same
// quoted item on different roles and measures how long each change took
// to become visible. Both times are the step's end, when the change or
// observation is definitely on screen. A non-positive delta means the
// observer logged the item no later than the author finished adding it,
// which points at causality-broken sync or misaligned recording clocks.
func Audit(steps []session.StepRecord) *Report {
	type addEvent struct {
		role string
		ms   int64
	}
	adds := make(map[string]addEvent)
	report := &Report{}

	for _, st := range steps {
		if st.Role == "" {
			continue
		}
		if m := addPattern.FindStringSubmatch(st.Caption); m != nil {
			// first add wins; repeats of the same item are scenario noise
			if _, dup := adds[m[1]]; !dup {
				adds[m[1]] = addEvent{role: st.Role, ms: st.EndMs}
			}
			continue
		}
		m := seePattern.FindStringSubmatch(st.Caption)
		if m == nil {
			continue
		}
		add, ok := adds[m[1]]
		if !ok || add.role == st.Role {
			continue
		}
		delta := st.EndMs - add.ms
		pair := Pair{
			Item:    m[1],
			AddRole: add.role,
			SeeRole: st.Role,
			AddedMs: add.ms,
			SeenMs:  st.EndMs,
			DeltaMs: delta,
			OK:      delta > 0,
		}
		if !pair.OK {
			report.Failed++
		}
		report.Pairs = append(report.Pairs, pair)
	}

	if len(report.Pairs) == 0 {
		return report
	}
	report.MinMs = report.Pairs[0].DeltaMs
	report.MaxMs = report.Pairs[0].DeltaMs
	var sum int64
	for _, p := range report.Pairs {
		sum += p.DeltaMs
		if p.DeltaMs < report.MinMs {
			report.MinMs = p.DeltaMs
		}
		if p.DeltaMs > report.MaxMs {
			report.MaxMs = p.DeltaMs
		}
	}
	report.AvgMs = sum / int64(len(report.Pairs))

	n := trendWindow(len(report.Pairs))
	report.EarlyAvgMs = meanDelta(report.Pairs[:n])
	report.LateAvgMs = meanDelta(report.Pairs[len(report.Pairs)-n:])
	return report
}

// Trend is how much the late-run average grew over the early-run
// average. A clearly positive trend suggests a backpressured or
// CPU-bound transport rather than fixed network latency.
func (r *Report) Trend() int64 {
	return r.LateAvgMs - r.EarlyAvgMs
}

// Summary renders a one-line result for CLI output.
func (r *Report) Summary() string {
	if len(r.Pairs) == 0 {
		return "sync audit: no add/see pairs found"
	}
	return fmt.Sprintf("sync audit: %d pairs, %d failed, min/avg/max %d/%d/%dms, trend %+dms",
		len(r.Pairs), r.Failed, r.MinMs, r.AvgMs, r.MaxMs, r.Trend())
}

// trendWindow is how many pairs each trend window holds: 5, or every
// pair when the run was short.
func trendWindow(n int) int {
	if n < 5 {
		return n
	}
	return 5
}

func meanDelta(pairs []Pair) int64 {
	if len(pairs) == 0 {
		return 0
	}
	var sum int64
	for _, p := range pairs {
		sum += p.DeltaMs
	}
	return sum / int64(len(pairs))
}

func writeReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
