package actor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSmoothstep(t *testing.T) {
	assert.Equal(t, 0.0, smoothstep(0))
	assert.Equal(t, 1.0, smoothstep(1))
	assert.Equal(t, 0.5, smoothstep(0.5))
	// flat near the ends, steep in the middle
	assert.Less(t, smoothstep(0.1), 0.1)
	assert.Greater(t, smoothstep(0.9), 0.9)
}

func TestLinePathEndsOnRoundedTarget(t *testing.T) {
	cases := []struct{ from, to Point }{
		{Point{0, 0}, Point{100, 50}},
		{Point{10.4, 20.6}, Point{10.4, 20.6}},
		{Point{300, 300}, Point{299.7, 301.2}},
	}
	for _, tc := range cases {
		path := linePath(tc.from, tc.to, 20)
		assert.NotEmpty(t, path)
		last := path[len(path)-1]
		assert.Equal(t, Point{X: math.Round(tc.to.X), Y: math.Round(tc.to.Y)}, last)
	}
}

func TestLinePathIsPixelDistinct(t *testing.T) {
	path := linePath(Point{0, 0}, Point{10, 0}, 100)
	for i := 1; i < len(path); i++ {
		assert.NotEqual(t, path[i-1], path[i])
	}
}

func TestPathStepsScalesWithDistance(t *testing.T) {
	assert.Equal(t, 8, pathSteps(Point{0, 0}, Point{10, 0}), "short drags keep the floor")
	assert.Equal(t, 40, pathSteps(Point{0, 0}, Point{2000, 0}), "long drags hit the cap")
	mid := pathSteps(Point{0, 0}, Point{300, 0})
	assert.Greater(t, mid, 8)
	assert.Less(t, mid, 40)
}

func TestPaceStepSlowerAtEndsFasterInMiddle(t *testing.T) {
	base := 10 * time.Millisecond
	total := 21

	first := paceStep(base, 0, total)
	mid := paceStep(base, total/2, total)
	last := paceStep(base, total-1, total)

	assert.Greater(t, first, base)
	assert.Less(t, mid, base)
	assert.Greater(t, last, base)
	assert.InDelta(t, float64(first), float64(last), float64(time.Millisecond))
}

func TestPaceStepSinglePoint(t *testing.T) {
	base := 10 * time.Millisecond
	assert.Equal(t, base, paceStep(base, 0, 1))
}
