// Package geom holds the primitives shared by the rasterizer, the spatial
// index and the toolpath generator: triangles with a cached face
// orientation, axis-aligned boxes and the vertical ray test.
//
// Points and vectors are sdfx v3.Vec values so meshes produced by the
// sdfx kernel flow through the pipeline without copying into another
// vector type.
package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// degenerateEpsilon is the smallest projected double area (mm^2) a
// triangle may have before a vertical ray is considered coplanar with it.
const degenerateEpsilon = 1e-12

// Triangle is a mesh face. NormalZ is the z component of the unnormalized
// face normal (b-a)x(c-a); only its sign is meaningful. A triangle is
// immutable once built with NewTriangle.
type Triangle struct {
	V       [3]v3.Vec
	NormalZ float64
}

// NewTriangle builds a triangle from three vertices in winding order.
func NewTriangle(a, b, c v3.Vec) Triangle {
	return Triangle{
		V:       [3]v3.Vec{a, b, c},
		NormalZ: (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X),
	}
}

// FromSDF converts sdfx render output into triangles.
func FromSDF(tris []*sdf.Triangle3) []Triangle {
	out := make([]Triangle, 0, len(tris))
	for _, t := range tris {
		if t == nil {
			continue
		}
		out = append(out, NewTriangle(t[0], t[1], t[2]))
	}
	return out
}

// Normal returns the unnormalized face normal.
func (t Triangle) Normal() v3.Vec {
	return t.V[1].Sub(t.V[0]).Cross(t.V[2].Sub(t.V[0]))
}

// Area returns the surface area of the triangle.
func (t Triangle) Area() float64 {
	return t.Normal().Length() / 2
}

// Degenerate reports whether the triangle has (numerically) zero area or
// a vertex that is NaN or infinite.
func (t Triangle) Degenerate() bool {
	if !t.Finite() {
		return true
	}
	n := t.Normal()
	return n.X*n.X+n.Y*n.Y+n.Z*n.Z <= degenerateEpsilon*degenerateEpsilon
}

// Finite reports whether every vertex coordinate is a finite number.
func (t Triangle) Finite() bool {
	for _, v := range t.V {
		if !finite(v.X) || !finite(v.Y) || !finite(v.Z) {
			return false
		}
	}
	return true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Bounds returns the triangle's bounding box.
func (t Triangle) Bounds() Box {
	return EmptyBox().Include(t.V[0]).Include(t.V[1]).Include(t.V[2])
}

// IntersectZ casts a ray parallel to the Z axis through (x, y) and returns
// the height at which it crosses t.
//
// The test runs in the XY projection with edge functions, so rays that
// lie in the triangle's plane (|NormalZ| ~ 0) and zero-area triangles are
// misses. Points on an edge follow a top-left rule: a ray through an edge
// shared by two triangles of the same orientation hits exactly one of
// them.
func IntersectZ(t Triangle, x, y float64) (float64, bool) {
	d := t.NormalZ
	if !(math.Abs(d) > degenerateEpsilon) || math.IsInf(d, 0) {
		return 0, false
	}
	a, b, c := t.V[0], t.V[1], t.V[2]

	w0 := edge(b, c, x, y)
	w1 := edge(c, a, x, y)
	w2 := edge(a, b, x, y)

	s := 1.0
	if d < 0 {
		s = -1
	}
	if !inside(w0*s, b, c, s) || !inside(w1*s, c, a, s) || !inside(w2*s, a, b, s) {
		return 0, false
	}

	z := (w0*a.Z + w1*b.Z + w2*c.Z) / d
	return z, finite(z)
}

// edge is the signed double area of (u, v, p) in the XY plane.
func edge(u, v v3.Vec, x, y float64) float64 {
	return (v.X-u.X)*(y-u.Y) - (v.Y-u.Y)*(x-u.X)
}

// inside applies the top-left fill rule to one oriented edge weight.
func inside(w float64, u, v v3.Vec, s float64) bool {
	if w > 0 {
		return true
	}
	if w < 0 {
		return false
	}
	dx, dy := (v.X-u.X)*s, (v.Y-u.Y)*s
	return dy < 0 || (dy == 0 && dx < 0)
}
