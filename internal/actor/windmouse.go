package actor

import (
	"math"
	"math/rand"
)

// Point is a page-space coordinate in CSS pixels.
type Point struct {
	X float64
	Y float64
}

// WindMouse tuning. Gravity pulls the simulated particle toward the target,
// wind perturbs it, and the step cap bounds per-iteration travel. Inside
// targetArea the wind damps and the cap shrinks so the cursor decelerates
// into the target instead of overshooting it.
const (
	windGravity    = 9.0
	windStrength   = 3.0
	windMaxStep    = 15.0
	windTargetArea = 12.0
	windMaxIters   = 2000
)

// windMousePath simulates a particle traveling from from to to under
// gravity plus stochastic wind and returns the pixel-distinct points it
// passes through. The last point is always the rounded target, even when
// the iteration cap cuts the simulation short.
func windMousePath(rng *rand.Rand, from, to Point) []Point {
	var (
		sqrt3 = math.Sqrt(3)
		sqrt5 = math.Sqrt(5)
	)

	x, y := from.X, from.Y
	var velX, velY, windX, windY float64
	maxStep := windMaxStep

	points := make([]Point, 0, 64)
	lastX, lastY := math.Round(from.X), math.Round(from.Y)

	for i := 0; i < windMaxIters; i++ {
		dist := math.Hypot(to.X-x, to.Y-y)
		if dist < 1 {
			break
		}

		if dist >= windTargetArea {
			windX = windX/sqrt3 + (2*rng.Float64()-1)*windStrength/sqrt5
			windY = windY/sqrt3 + (2*rng.Float64()-1)*windStrength/sqrt5
		} else {
			windX /= sqrt3
			windY /= sqrt3
			if maxStep < 3 {
				maxStep = 3 + rng.Float64()*3
			} else {
				maxStep /= sqrt5
			}
		}

		velX += windX + windGravity*(to.X-x)/dist
		velY += windY + windGravity*(to.Y-y)/dist

		if mag := math.Hypot(velX, velY); mag > maxStep {
			clip := maxStep/2 + rng.Float64()*maxStep/2
			velX = velX / mag * clip
			velY = velY / mag * clip
		}

		x += velX
		y += velY

		rx, ry := math.Round(x), math.Round(y)
		if rx != lastX || ry != lastY {
			points = append(points, Point{X: rx, Y: ry})
			lastX, lastY = rx, ry
		}
	}

	tx, ty := math.Round(to.X), math.Round(to.Y)
	if len(points) == 0 || lastX != tx || lastY != ty {
		points = append(points, Point{X: tx, Y: ty})
	}
	return points
}
