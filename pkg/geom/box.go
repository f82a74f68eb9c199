package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Box is an axis-aligned bounding box. The zero value is a degenerate box
// at the origin; use EmptyBox to start an accumulation.
type Box struct {
	Min v3.Vec
	Max v3.Vec
}

// EmptyBox returns a box that contains nothing and absorbs the first
// point passed to Include.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: v3.Vec{X: inf, Y: inf, Z: inf},
		Max: v3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// BoundsOf returns the bounding box of a triangle set. An empty set yields
// EmptyBox().
func BoundsOf(tris []Triangle) Box {
	b := EmptyBox()
	for i := range tris {
		for _, v := range tris[i].V {
			b = b.Include(v)
		}
	}
	return b
}

// FiniteBoundsOf is BoundsOf restricted to triangles whose vertices are
// all finite.
func FiniteBoundsOf(tris []Triangle) Box {
	b := EmptyBox()
	for i := range tris {
		if !tris[i].Finite() {
			continue
		}
		for _, v := range tris[i].V {
			b = b.Include(v)
		}
	}
	return b
}

// BoundsOfPoints returns the bounding box of a point set.
func BoundsOfPoints(pts []v3.Vec) Box {
	b := EmptyBox()
	for _, p := range pts {
		b = b.Include(p)
	}
	return b
}

// Include grows the box to contain p.
func (b Box) Include(p v3.Vec) Box {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
	return b
}

// Empty reports whether the box contains no point.
func (b Box) Empty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// Size returns the extent along each axis.
func (b Box) Size() v3.Vec {
	if b.Empty() {
		return v3.Vec{}
	}
	return b.Max.Sub(b.Min)
}

// Contains2D reports whether (x, y) lies in the box's XY projection.
func (b Box) Contains2D(x, y float64) bool {
	return x >= b.Min.X && x <= b.Max.X && y >= b.Min.Y && y <= b.Max.Y
}

// Overlaps2D reports whether the XY projections of two boxes intersect.
func (b Box) Overlaps2D(o Box) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}

// ToSDF converts the box to its sdfx counterpart.
func (b Box) ToSDF() sdf.Box3 {
	return sdf.Box3{Min: b.Min, Max: b.Max}
}
