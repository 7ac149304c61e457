// Package geom holds the small amount of plane geometry the resolver and
// router need, on top of gonum's r2 vectors.
//
// Coordinates follow SVG: x grows to the right and y grows downwards.
// Bearings are in degrees measured counter-clockwise on screen, so 0 points
// along +x and 90 points up (towards -y).
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/celldl/pkg/units"
)

// Epsilon is the tolerance used for degenerate lengths and directions.
const Epsilon = 1e-9

// Centroid returns the mean of points. It panics if points is empty: every
// caller works on a dependency set that is non-empty by construction.
func Centroid(points []r2.Vec) r2.Vec {
	if len(points) == 0 {
		panic("geom: centroid of an empty point set")
	}
	var sum r2.Vec
	for _, p := range points {
		sum = r2.Add(sum, p)
	}
	return r2.Scale(1/float64(len(points)), sum)
}

// Bearing returns the unit vector for angle degrees.
func Bearing(degrees float64) r2.Vec {
	rad := degrees * math.Pi / 180
	return r2.Vec{X: math.Cos(rad), Y: -math.Sin(rad)}
}

// Advance moves from p along the bearing angle until its coordinate on axis
// equals target. It reports false when the bearing runs parallel to the
// target line or points away from it.
func Advance(p r2.Vec, degrees float64, axis units.Axis, target float64) (r2.Vec, bool) {
	dir := Bearing(degrees)
	step := axis.Of(dir)
	delta := target - axis.Of(p)
	if math.Abs(delta) < Epsilon {
		return p, true
	}
	if math.Abs(step) < Epsilon {
		return r2.Vec{}, false
	}
	t := delta / step
	if t < 0 {
		return r2.Vec{}, false
	}
	end := r2.Add(p, r2.Scale(t, dir))
	// Land exactly on the target line.
	return axis.Set(end, target), true
}

// Toward returns the point at distance d from p in the direction of q. If q
// is closer than d, p is returned unchanged.
func Toward(p, q r2.Vec, d float64) r2.Vec {
	v := r2.Sub(q, p)
	n := r2.Norm(v)
	if n <= d || n < Epsilon {
		return p
	}
	return r2.Add(p, r2.Scale(d/n, v))
}

// Trim shortens a polyline by start at its first point and end at its last
// point, so the stroke stops at the boundary of circular end glyphs. The
// input is not modified.
func Trim(points []r2.Vec, start, end float64) []r2.Vec {
	out := Dedupe(points)
	if len(out) < 2 {
		return out
	}
	out[0] = Toward(out[0], out[1], start)
	n := len(out)
	out[n-1] = Toward(out[n-1], out[n-2], end)
	return out
}

// Dedupe returns a copy of points without consecutive duplicates.
func Dedupe(points []r2.Vec) []r2.Vec {
	out := make([]r2.Vec, 0, len(points))
	for _, p := range points {
		if len(out) > 0 && r2.Norm(r2.Sub(p, out[len(out)-1])) < Epsilon {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Normal returns the unit normal of the direction from p to q, rotated a
// quarter turn counter-clockwise on screen. It returns the zero vector for
// coincident points.
func Normal(p, q r2.Vec) r2.Vec {
	v := r2.Sub(q, p)
	n := r2.Norm(v)
	if n < Epsilon {
		return r2.Vec{}
	}
	return r2.Vec{X: v.Y / n, Y: -v.X / n}
}

// Offset returns the polyline parallel to points at signed distance d,
// positive to the left of the direction of travel on screen. Interior
// corners use mitred joins.
func Offset(points []r2.Vec, d float64) []r2.Vec {
	pts := Dedupe(points)
	if len(pts) < 2 || d == 0 {
		return pts
	}

	out := make([]r2.Vec, len(pts))
	out[0] = r2.Add(pts[0], r2.Scale(d, Normal(pts[0], pts[1])))
	last := len(pts) - 1
	out[last] = r2.Add(pts[last], r2.Scale(d, Normal(pts[last-1], pts[last])))

	for i := 1; i < last; i++ {
		n1 := Normal(pts[i-1], pts[i])
		n2 := Normal(pts[i], pts[i+1])
		m := r2.Add(n1, n2)
		if r2.Norm(m) < Epsilon {
			// The path doubles back on itself.
			out[i] = r2.Add(pts[i], r2.Scale(d, n1))
			continue
		}
		m = r2.Unit(m)
		out[i] = r2.Add(pts[i], r2.Scale(d/r2.Dot(m, n1), m))
	}
	return out
}
