package kernel

import (
	"math"

	"github.com/chazu/contour/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a named triangle soup.
type Mesh struct {
	Name      string          `json:"name"`
	Triangles []geom.Triangle `json:"-"`
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Triangles) == 0
}

// Bounds returns the bounding box of all vertices.
func (m *Mesh) Bounds() geom.Box {
	return geom.BoundsOf(m.Triangles)
}

// Map returns a copy of m with fn applied to every vertex. fn must
// preserve orientation (translations and rotations do).
func (m *Mesh) Map(fn func(v3.Vec) v3.Vec) *Mesh {
	out := &Mesh{Name: m.Name, Triangles: make([]geom.Triangle, len(m.Triangles))}
	for i, t := range m.Triangles {
		out.Triangles[i] = geom.NewTriangle(fn(t.V[0]), fn(t.V[1]), fn(t.V[2]))
	}
	return out
}

// Translate returns a copy of m moved by (x, y, z).
func (m *Mesh) Translate(x, y, z float64) *Mesh {
	d := v3.Vec{X: x, Y: y, Z: z}
	return m.Map(func(v v3.Vec) v3.Vec { return v.Add(d) })
}

// Rotate returns a copy of m rotated by Euler angles in degrees, with the
// same convention as Kernel.Rotate.
func (m *Mesh) Rotate(x, y, z float64) *Mesh {
	return m.Map(EulerRotation(x, y, z))
}

// Merge returns the concatenation of meshes as a single soup.
func Merge(name string, meshes ...*Mesh) *Mesh {
	n := 0
	for _, m := range meshes {
		n += len(m.Triangles)
	}
	out := &Mesh{Name: name, Triangles: make([]geom.Triangle, 0, n)}
	for _, m := range meshes {
		out.Triangles = append(out.Triangles, m.Triangles...)
	}
	return out
}

// EulerRotation returns the rotation about X, then Y, then Z, by angles
// in degrees.
func EulerRotation(x, y, z float64) func(v3.Vec) v3.Vec {
	sx, cx := math.Sincos(x * math.Pi / 180)
	sy, cy := math.Sincos(y * math.Pi / 180)
	sz, cz := math.Sincos(z * math.Pi / 180)
	return func(v v3.Vec) v3.Vec {
		v = v3.Vec{X: v.X, Y: cx*v.Y - sx*v.Z, Z: sx*v.Y + cx*v.Z}
		v = v3.Vec{X: cy*v.X + sy*v.Z, Y: v.Y, Z: -sy*v.X + cy*v.Z}
		return v3.Vec{X: cz*v.X - sz*v.Y, Y: sz*v.X + cz*v.Y, Z: v.Z}
	}
}
