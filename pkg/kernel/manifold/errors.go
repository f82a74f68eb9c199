// Package manifold implements kernel.Kernel on the Manifold C library
// (https://github.com/elalish/manifold), which computes exact mesh
// booleans. Terrains built from differences and intersections keep their
// flat faces instead of going through marching cubes.
//
// The binding needs manifoldc and cgo. Build with: go build -tags=manifold
package manifold

// ErrTypeUnavailable is raised by New when the binary was built without
// the manifold tag.
const ErrTypeUnavailable = "kernel-unavailable"

// DefaultSegments divides the circumference of cylinders and spheres.
const DefaultSegments = 64

// ErrTypeEmptyMesh is raised when a solid tessellates to nothing.
const ErrTypeEmptyMesh = "empty-mesh"
