package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// d3.Box is a 3d axis-aligned bounding box.
type Box r3.Box

// Empty returns a box that contains no points. Growing it with
// Include yields the bounding box of the included points.
func Empty() Box {
	return Box{
		Min: Elem(math.MaxFloat64),
		Max: Elem(-math.MaxFloat64),
	}
}

// Equals test the equality of 3d boxes.
func (a Box) Equals(b Box, tol float64) bool {
	return EqualWithin(a.Min, b.Min, tol) && EqualWithin(a.Max, b.Max, tol)
}

// Extend returns a box enclosing two 3d boxes.
func (a Box) Extend(b Box) Box {
	return Box{
		Min: MinElem(a.Min, b.Min),
		Max: MaxElem(a.Max, b.Max),
	}
}

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}

// Size returns the size of a 3d box.
func (a Box) Size() r3.Vec {
	return r3.Sub(a.Max, a.Min)
}

// Center returns the center of a 3d box.
func (a Box) Center() r3.Vec {
	return r3.Add(a.Min, r3.Scale(0.5, a.Size()))
}

// Contains checks if the 3d box contains the given vector (considering bounds as inside).
func (a Box) Contains(v r3.Vec) bool {
	return a.Min.X <= v.X && a.Min.Y <= v.Y && a.Min.Z <= v.Z &&
		v.X <= a.Max.X && v.Y <= a.Max.Y && v.Z <= a.Max.Z
}

// ApproxContains checks if the 3d box expanded by eps on every side
// contains the given vector.
func (a Box) ApproxContains(v r3.Vec, eps float64) bool {
	return a.Min.X-eps <= v.X && a.Min.Y-eps <= v.Y && a.Min.Z-eps <= v.Z &&
		v.X <= a.Max.X+eps && v.Y <= a.Max.Y+eps && v.Z <= a.Max.Z+eps
}
