// Package kernel defines the solid modeling interface used to build
// terrain and tool shapes, and the triangle mesh those shapes are
// rasterized from. Implementations live in subpackages.
package kernel

import "github.com/chazu/contour/pkg/geom"

// Solid is an opaque handle to a geometry kernel solid.
type Solid interface {
	BoundingBox() geom.Box
}

// Kernel builds solids and meshes them.
type Kernel interface {
	// Box has its minimum corner at the origin.
	Box(x, y, z float64) Solid
	// Cylinder stands on z = 0, centered on the Z axis.
	Cylinder(height, radius float64) Solid
	// Sphere is centered at the origin.
	Sphere(radius float64) Solid

	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid
	// Rotate applies Euler angles in degrees: X first, then Y, then Z.
	Rotate(s Solid, x, y, z float64) Solid

	// ToMesh tessellates s with cells sampling cells along its longest
	// axis. cells <= 0 selects the kernel default.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
