package collab

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/demoreel/internal/session"
)

func step(role, caption string, endMs int64) session.StepRecord {
	return session.StepRecord{Role: role, Caption: caption, EndMs: endMs}
}

func TestAuditPositiveDeltaIsOK(t *testing.T) {
	report := Audit([]session.StepRecord{
		step("actorA", `adds "Buy milk" to the list`, 1000),
		step("actorB", `sees "Buy milk" appear`, 1400),
	})

	require.Len(t, report.Pairs, 1)
	p := report.Pairs[0]
	assert.Equal(t, "Buy milk", p.Item)
	assert.Equal(t, "actorA", p.AddRole)
	assert.Equal(t, "actorB", p.SeeRole)
	assert.Equal(t, int64(400), p.DeltaMs)
	assert.True(t, p.OK)
	assert.Zero(t, report.Failed)
}

func TestAuditNonPositiveDeltaFails(t *testing.T) {
	report := Audit([]session.StepRecord{
		step("actorA", `adds "Buy milk"`, 1000),
		step("actorB", `sees "Buy milk"`, 900),
	})

	require.Len(t, report.Pairs, 1)
	assert.Equal(t, int64(-100), report.Pairs[0].DeltaMs)
	assert.False(t, report.Pairs[0].OK)
	assert.Equal(t, 1, report.Failed)

	// an observation at the exact add instant is just as broken
	report = Audit([]session.StepRecord{
		step("actorA", `adds "x"`, 1000),
		step("actorB", `sees "x"`, 1000),
	})
	assert.Equal(t, 1, report.Failed)
}

func TestAuditIgnoresSameRoleAndUnknownItems(t *testing.T) {
	report := Audit([]session.StepRecord{
		step("actorA", `adds "Card one"`, 500),
		step("actorA", `sees "Card one" in its own pane`, 700),
		step("actorB", `sees "Never added" somewhere`, 800),
		step("", `adds "untagged"`, 900),
	})
	assert.Empty(t, report.Pairs)
	assert.Zero(t, report.Failed)
}

func TestAuditMatchesBothVerbForms(t *testing.T) {
	report := Audit([]session.StepRecord{
		step("actorA", `add "one"`, 100),
		step("actorB", `see "one"`, 250),
		step("actorB", `adds "two" quickly`, 400),
		step("actorA", `sees "two" show up`, 650),
	})
	require.Len(t, report.Pairs, 2)
	assert.Equal(t, int64(150), report.Pairs[0].DeltaMs)
	assert.Equal(t, int64(250), report.Pairs[1].DeltaMs)
	assert.Equal(t, "actorB", report.Pairs[1].AddRole)
}

func TestAuditAggregates(t *testing.T) {
	steps := []session.StepRecord{
		step("actorA", `adds "a"`, 1000),
		step("actorB", `sees "a"`, 1200),
		step("actorA", `adds "b"`, 2000),
		step("actorB", `sees "b"`, 2500),
		step("actorA", `adds "c"`, 3000),
		step("actorB", `sees "c"`, 3300),
	}
	report := Audit(steps)

	require.Len(t, report.Pairs, 3)
	assert.Equal(t, int64(200), report.MinMs)
	assert.Equal(t, int64(500), report.MaxMs)
	assert.Equal(t, int64(333), report.AvgMs)
	// fewer than five pairs: both trend windows cover everything
	assert.Equal(t, report.EarlyAvgMs, report.LateAvgMs)
}

func TestAuditTrendWindows(t *testing.T) {
	var steps []session.StepRecord
	for i := 0; i < 12; i++ {
		delta := int64(100)
		if i >= 6 {
			delta = 400
		}
		item := fmt.Sprintf("item-%d", i)
		addAt := int64(i) * 1000
		steps = append(steps,
			step("actorA", fmt.Sprintf(`adds "%s"`, item), addAt),
			step("actorB", fmt.Sprintf(`sees "%s"`, item), addAt+delta),
		)
	}
	report := Audit(steps)

	require.Len(t, report.Pairs, 12)
	assert.Equal(t, int64(100), report.EarlyAvgMs)
	assert.Equal(t, int64(400), report.LateAvgMs)
	assert.Equal(t, int64(300), report.Trend())
	assert.Zero(t, report.Failed)
}

func TestAuditFirstAddWins(t *testing.T) {
	report := Audit([]session.StepRecord{
		step("actorA", `adds "dup"`, 1000),
		step("actorB", `adds "dup" again`, 1500),
		step("actorB", `sees "dup"`, 1800),
	})
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, "actorA", report.Pairs[0].AddRole)
	assert.Equal(t, int64(800), report.Pairs[0].DeltaMs)
}

func TestReportSummary(t *testing.T) {
	empty := &Report{}
	assert.Contains(t, empty.Summary(), "no add/see pairs")

	report := Audit([]session.StepRecord{
		step("actorA", `adds "a"`, 1000),
		step("actorB", `sees "a"`, 1400),
	})
	s := report.Summary()
	assert.Contains(t, s, "1 pairs")
	assert.Contains(t, s, "0 failed")
}
