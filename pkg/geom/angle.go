// Package geom holds the angle conventions shared by the simulator.
//
// Headings are radians in [0, 2π). Zero points along the scan's +y axis and
// headings grow clockwise when viewed from above, so +x is π/2.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// TwoPi is a full turn in radians.
const TwoPi = 2 * math.Pi

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// NormalizeHeading wraps h into [0, 2π).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, TwoPi)
	if h < 0 {
		h += TwoPi
	}
	// Mod of a tiny negative value can round up to exactly 2π.
	if h >= TwoPi {
		h = 0
	}
	return h
}

// AngularDistance returns the unsigned angle between two headings,
// measured the short way around the circle. The result is in [0, π].
func AngularDistance(a, b float64) float64 {
	d := math.Abs(NormalizeHeading(a) - NormalizeHeading(b))
	if d > math.Pi {
		d = TwoPi - d
	}
	return d
}

// Bearing returns the heading from one position to another, projected onto
// the horizontal plane. The z component is ignored.
func Bearing(from, to r3.Vec) float64 {
	d := r3.Sub(to, from)
	b := math.Pi/2 - math.Atan2(d.Y, d.X)
	if b < 0 {
		b += TwoPi
	}
	return b
}

// WithinHalfFOV reports whether bearing lies inside a horizontal field of
// view of width hfov centered on heading.
func WithinHalfFOV(heading, bearing, hfov float64) bool {
	return AngularDistance(heading, bearing) <= hfov/2
}

// Clamp restricts v to the range [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
