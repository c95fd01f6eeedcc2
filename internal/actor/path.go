package actor

import (
	"math"
	"time"
)

// paceAmplitude shapes per-step pacing along a path: 1+amp at the ends,
// 1-amp through the middle.
const paceAmplitude = 0.4

// smoothstep is the cubic ease t²(3-2t), flat at both ends.
func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

// linePath interpolates from→to over steps segments with smoothstep easing,
// keeping only pixel-distinct points. The last point is always the rounded
// target.
func linePath(from, to Point, steps int) []Point {
	if steps < 1 {
		steps = 1
	}

	points := make([]Point, 0, steps)
	lastX, lastY := math.Round(from.X), math.Round(from.Y)

	for i := 1; i <= steps; i++ {
		t := smoothstep(float64(i) / float64(steps))
		rx := math.Round(from.X + (to.X-from.X)*t)
		ry := math.Round(from.Y + (to.Y-from.Y)*t)
		if rx == lastX && ry == lastY {
			continue
		}
		points = append(points, Point{X: rx, Y: ry})
		lastX, lastY = rx, ry
	}

	tx, ty := math.Round(to.X), math.Round(to.Y)
	if len(points) == 0 || lastX != tx || lastY != ty {
		points = append(points, Point{X: tx, Y: ty})
	}
	return points
}

// pathSteps sizes a drag/draw path from its straight-line length.
func pathSteps(from, to Point) int {
	steps := int(math.Hypot(to.X-from.X, to.Y-from.Y) / 15)
	if steps < 8 {
		steps = 8
	}
	if steps > 40 {
		steps = 40
	}
	return steps
}

// paceStep scales the base per-point delay by a cosine profile over the
// path, so movement eases in, speeds through the middle and eases out.
func paceStep(base time.Duration, i, total int) time.Duration {
	if total <= 1 {
		return base
	}
	t := float64(i) / float64(total-1)
	mult := 1 + paceAmplitude*math.Cos(2*math.Pi*t)
	return time.Duration(float64(base) * mult)
}
