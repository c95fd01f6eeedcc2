package actor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindMouseEndsExactlyOnRoundedTarget(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := []struct{ from, to Point }{
		{Point{0, 0}, Point{500, 300}},
		{Point{640, 360}, Point{12, 700}},
		{Point{100, 100}, Point{103.4, 99.6}},
		{Point{1279, 719}, Point{0.2, 0.8}},
		{Point{50, 50}, Point{50, 50}},
	}
	for _, tc := range cases {
		path := windMousePath(rng, tc.from, tc.to)
		require.NotEmpty(t, path)
		last := path[len(path)-1]
		assert.Equal(t, math.Round(tc.to.X), last.X, "from %+v to %+v", tc.from, tc.to)
		assert.Equal(t, math.Round(tc.to.Y), last.Y, "from %+v to %+v", tc.from, tc.to)
	}
}

func TestWindMouseIsFinite(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		from := Point{X: rng.Float64() * 1280, Y: rng.Float64() * 720}
		to := Point{X: rng.Float64() * 1280, Y: rng.Float64() * 720}
		path := windMousePath(rng, from, to)
		// interior points are capped by the iteration limit, plus the
		// appended rounded target
		assert.LessOrEqual(t, len(path), windMaxIters+1)
		assert.NotEmpty(t, path)
	}
}

func TestWindMousePointsArePixelDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	path := windMousePath(rng, Point{0, 0}, Point{800, 400})
	for i := 1; i < len(path); i++ {
		if path[i] == path[i-1] {
			t.Fatalf("points %d and %d both at %+v", i-1, i, path[i])
		}
	}
}

func TestWindMouseIsSeedDeterministic(t *testing.T) {
	a := windMousePath(rand.New(rand.NewSource(11)), Point{10, 20}, Point{900, 500})
	b := windMousePath(rand.New(rand.NewSource(11)), Point{10, 20}, Point{900, 500})
	assert.Equal(t, a, b)

	c := windMousePath(rand.New(rand.NewSource(12)), Point{10, 20}, Point{900, 500})
	assert.NotEqual(t, a, c, "different seeds should disturb the wind")
}

func TestWindMouseCoordinatesAreRounded(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	path := windMousePath(rng, Point{0.3, 0.7}, Point{321.9, 123.1})
	for _, p := range path {
		assert.Equal(t, math.Trunc(p.X), p.X)
		assert.Equal(t, math.Trunc(p.Y), p.Y)
	}
}
