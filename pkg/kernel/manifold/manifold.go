//go:build manifold

package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"runtime"
	"unsafe"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/geom"
	"github.com/chazu/contour/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var _ kernel.Kernel = (*Kernel)(nil)

type solid struct {
	ptr *C.ManifoldManifold
}

func (s *solid) BoundingBox() geom.Box {
	bbox := C.manifold_bounding_box(C.manifold_alloc_box(), s.ptr)
	defer C.manifold_delete_box(bbox)

	return geom.Box{
		Min: v3.Vec{
			X: float64(C.manifold_box_min_x(bbox)),
			Y: float64(C.manifold_box_min_y(bbox)),
			Z: float64(C.manifold_box_min_z(bbox)),
		},
		Max: v3.Vec{
			X: float64(C.manifold_box_max_x(bbox)),
			Y: float64(C.manifold_box_max_y(bbox)),
			Z: float64(C.manifold_box_max_z(bbox)),
		},
	}
}

// wrap hands ptr to the Go garbage collector.
func wrap(ptr *C.ManifoldManifold) kernel.Solid {
	s := &solid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *solid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func unwrap(s kernel.Solid) *C.ManifoldManifold {
	return s.(*solid).ptr
}

// Kernel implements kernel.Kernel with Manifold.
type Kernel struct {
	// Segments divides the circumference of round solids.
	Segments int
}

// New returns a Manifold kernel.
func New() (kernel.Kernel, error) {
	return &Kernel{Segments: DefaultSegments}, nil
}

func (k *Kernel) segments() C.int {
	if k.Segments < 3 {
		return C.int(DefaultSegments)
	}
	return C.int(k.Segments)
}

func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	return wrap(C.manifold_cube(C.manifold_alloc_manifold(),
		C.double(x), C.double(y), C.double(z),
		C.int(0), // min corner at the origin
	))
}

func (k *Kernel) Cylinder(height, radius float64) kernel.Solid {
	return wrap(C.manifold_cylinder(C.manifold_alloc_manifold(),
		C.double(height),
		C.double(radius), // bottom
		C.double(radius), // top
		k.segments(),
		C.int(0), // base on z = 0
	))
}

func (k *Kernel) Sphere(radius float64) kernel.Solid {
	return wrap(C.manifold_sphere(C.manifold_alloc_manifold(),
		C.double(radius),
		k.segments(),
	))
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(C.manifold_union(C.manifold_alloc_manifold(), unwrap(a), unwrap(b)))
}

func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(C.manifold_difference(C.manifold_alloc_manifold(), unwrap(a), unwrap(b)))
}

func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(C.manifold_intersection(C.manifold_alloc_manifold(), unwrap(a), unwrap(b)))
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return wrap(C.manifold_translate(C.manifold_alloc_manifold(), unwrap(s),
		C.double(x), C.double(y), C.double(z),
	))
}

// Rotate uses Manifold's Euler convention, which matches kernel.Kernel:
// X first, then Y, then Z, in degrees.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return wrap(C.manifold_rotate(C.manifold_alloc_manifold(), unwrap(s),
		C.double(x), C.double(y), C.double(z),
	))
}

// ToMesh reads the exact triangulation of s. cells is ignored.
func (k *Kernel) ToMesh(s kernel.Solid, cells int) (*kernel.Mesh, error) {
	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), unwrap(s))
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return nil, errors.New("manifold produced an empty mesh").
			WithType(ErrTypeEmptyMesh)
	}

	// Vertex properties are interleaved; position is always first.
	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), meshGL)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&indices[0])), meshGL)

	vertex := func(i uint32) v3.Vec {
		base := int(i) * numProp
		return v3.Vec{
			X: float64(props[base]),
			Y: float64(props[base+1]),
			Z: float64(props[base+2]),
		}
	}

	tris := make([]geom.Triangle, numTri)
	for t := range tris {
		tris[t] = geom.NewTriangle(
			vertex(indices[t*3]),
			vertex(indices[t*3+1]),
			vertex(indices[t*3+2]),
		)
	}
	return &kernel.Mesh{Triangles: tris}, nil
}
