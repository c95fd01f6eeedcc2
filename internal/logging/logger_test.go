package logging

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesComponentTaggedLines(t *testing.T) {
	dir := t.TempDir()

	root, err := New(dir, "run.log", false)
	require.NoError(t, err)

	root.Infof("session started")
	root.Component("capture").Warnf("pane %s has no sink", "pane-1")
	require.NoError(t, root.Close())

	data, err := os.ReadFile(root.Path())
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "INFO  [run] session started")
	assert.Contains(t, text, "WARN  [capture] pane pane-1 has no sink")
}

func TestLoggerAppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()

	first, err := New(dir, "run.log", false)
	require.NoError(t, err)
	first.Infof("one")
	require.NoError(t, first.Close())

	second, err := New(dir, "run.log", false)
	require.NoError(t, err)
	second.Infof("two")
	require.NoError(t, second.Close())

	data, err := os.ReadFile(second.Path())
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "INFO"))
}

func TestNopLoggerIsSafe(t *testing.T) {
	l := Nop()
	l.Debugf("ignored %d", 1)
	l.Errorf("ignored too")
	assert.Empty(t, l.Path())
	assert.NoError(t, l.Close())
}
