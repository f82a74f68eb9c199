// Package tessellate turns job shape trees into triangle meshes. Shapes
// with an exact polyhedral form (boxes, cylinders, cutters, STL meshes
// and their unions and transforms) are emitted directly; anything that
// needs a true solid boolean is built in the geometry kernel and meshed
// with marching cubes.
package tessellate

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/contour/pkg/geom"
	"github.com/chazu/contour/pkg/job"
	"github.com/chazu/contour/pkg/kernel"
	"github.com/chazu/contour/pkg/meshio"
)

// ErrTypeUnsupported is raised for shape trees the kernel cannot build,
// such as a difference involving an STL mesh.
const ErrTypeUnsupported = "unsupported-shape"

// DefaultSegments is the number of facets around cylinders and cutters.
const DefaultSegments = 64

// Options control tessellation.
type Options struct {
	// Cells is the marching cubes resolution for kernel solids.
	Cells int
	// Segments divides the circumference of exact round shapes.
	Segments int
	// Load reads STL meshes. Defaults to meshio.LoadSTL.
	Load func(path string) (*kernel.Mesh, error)
}

func (o Options) withDefaults() Options {
	if o.Segments < 3 {
		o.Segments = DefaultSegments
	}
	if o.Load == nil {
		o.Load = meshio.LoadSTL
	}
	return o
}

// part is the lazily built form of a shape. A nil func means the shape
// has no such form.
type part struct {
	mesh  func() (*kernel.Mesh, error)
	solid func() (kernel.Solid, error)
}

// Job tessellates the terrain and tool of j.
func Job(j *job.Job, k kernel.Kernel, opts Options) (terrain, tool *kernel.Mesh, err error) {
	if terrain, err = Tessellate("terrain", j.Terrain, k, opts); err != nil {
		return nil, nil, err
	}
	if tool, err = Tessellate("tool", j.Tool, k, opts); err != nil {
		return nil, nil, err
	}
	return terrain, tool, nil
}

// Tessellate produces the mesh of s. It never mutates s.
func Tessellate(name string, s *job.Shape, k kernel.Kernel, opts Options) (*kernel.Mesh, error) {
	if s == nil {
		return nil, errors.New("no shape to tessellate").
			WithType(ErrTypeUnsupported).
			WithTag("name", name)
	}
	opts = opts.withDefaults()

	p, err := build(s, k, opts)
	if err != nil {
		return nil, errors.New("tessellating shape failed").
			WithType(errors.Type(err)).
			WithTag("name", name).
			Wrap(err)
	}

	m, err := p.toMesh(k, opts)
	if err != nil {
		return nil, errors.New("meshing shape failed").
			WithType(errors.Type(err)).
			WithTag("name", name).
			Wrap(err)
	}
	m.Name = name

	logs.WithTag("name", name).
		WithTag("triangles", m.TriangleCount()).
		WithTag("exact", p.mesh != nil).
		Debug("shape tessellated")
	return m, nil
}

func (p part) toMesh(k kernel.Kernel, opts Options) (*kernel.Mesh, error) {
	if p.mesh != nil {
		return p.mesh()
	}
	s, err := p.solid()
	if err != nil {
		return nil, err
	}
	return k.ToMesh(s, opts.Cells)
}

func build(s *job.Shape, k kernel.Kernel, opts Options) (part, error) {
	children := make([]part, len(s.Children))
	for i, c := range s.Children {
		if c == nil {
			return part{}, unsupported(s, "missing child")
		}
		p, err := build(c, k, opts)
		if err != nil {
			return part{}, err
		}
		children[i] = p
	}

	switch s.Kind {
	case job.ShapeBox:
		d, ok := s.Data.(job.BoxData)
		if !ok {
			return part{}, unsupported(s, "unexpected data")
		}
		return part{
			mesh: meshOf(geom.Cuboid(geom.Box{Max: d.Size})),
			solid: func() (kernel.Solid, error) {
				return k.Box(d.Size.X, d.Size.Y, d.Size.Z), nil
			},
		}, nil

	case job.ShapeCylinder:
		d, ok := s.Data.(job.CylinderData)
		if !ok {
			return part{}, unsupported(s, "unexpected data")
		}
		return part{
			mesh: meshOf(geom.FlatEndTool(d.Radius, d.Height, opts.Segments)),
			solid: func() (kernel.Solid, error) {
				return k.Cylinder(d.Height, d.Radius), nil
			},
		}, nil

	case job.ShapeSphere:
		d, ok := s.Data.(job.SphereData)
		if !ok {
			return part{}, unsupported(s, "unexpected data")
		}
		return part{solid: func() (kernel.Solid, error) {
			return k.Sphere(d.Radius), nil
		}}, nil

	case job.ShapeBallEnd:
		d, ok := s.Data.(job.CutterData)
		if !ok {
			return part{}, unsupported(s, "unexpected data")
		}
		return part{
			mesh: meshOf(geom.BallEndTool(d.Radius, d.Length, opts.Segments, max(opts.Segments/4, 1))),
			solid: func() (kernel.Solid, error) {
				ball := k.Translate(k.Sphere(d.Radius), 0, 0, d.Radius)
				if d.Length <= 0 {
					return ball, nil
				}
				shank := k.Translate(k.Cylinder(d.Length, d.Radius), 0, 0, d.Radius)
				return k.Union(ball, shank), nil
			},
		}, nil

	case job.ShapeFlatEnd:
		d, ok := s.Data.(job.CutterData)
		if !ok {
			return part{}, unsupported(s, "unexpected data")
		}
		p := part{mesh: meshOf(geom.FlatEndTool(d.Radius, d.Length, opts.Segments))}
		if d.Length > 0 {
			p.solid = func() (kernel.Solid, error) {
				return k.Cylinder(d.Length, d.Radius), nil
			}
		}
		return p, nil

	case job.ShapeMesh:
		d, ok := s.Data.(job.MeshData)
		if !ok {
			return part{}, unsupported(s, "unexpected data")
		}
		return part{mesh: func() (*kernel.Mesh, error) {
			return opts.Load(d.Path)
		}}, nil

	case job.ShapeUnion:
		if len(children) == 0 {
			return part{}, unsupported(s, "union of nothing")
		}
		return union(children, k, opts), nil

	case job.ShapeDifference, job.ShapeIntersection:
		if len(children) == 0 {
			return part{}, unsupported(s, "boolean of nothing")
		}
		for _, c := range children {
			if c.solid == nil {
				return part{}, unsupported(s, "meshes without a solid form only support union and transforms")
			}
		}
		op := k.Difference
		if s.Kind == job.ShapeIntersection {
			op = k.Intersection
		}
		return part{solid: func() (kernel.Solid, error) {
			return foldSolids(children, op)
		}}, nil

	case job.ShapeTranslate, job.ShapeRotate:
		d, ok := s.Data.(job.TransformData)
		if !ok || len(children) != 1 {
			return part{}, unsupported(s, "transform needs one shape and a vector")
		}
		return transform(s.Kind, d, children[0], k), nil
	}

	return part{}, unsupported(s, "unknown shape kind")
}

// union of soups is exact for rasterization: the highest (or lowest) hit
// over the merged triangles is the highest (or lowest) over the union.
func union(children []part, k kernel.Kernel, opts Options) part {
	p := part{mesh: func() (*kernel.Mesh, error) {
		meshes := make([]*kernel.Mesh, len(children))
		for i, c := range children {
			m, err := c.toMesh(k, opts)
			if err != nil {
				return nil, err
			}
			meshes[i] = m
		}
		return kernel.Merge("", meshes...), nil
	}}

	for _, c := range children {
		if c.solid == nil {
			return p
		}
	}
	p.solid = func() (kernel.Solid, error) {
		return foldSolids(children, k.Union)
	}
	return p
}

func transform(kind job.ShapeKind, d job.TransformData, c part, k kernel.Kernel) part {
	v := d.V
	var p part
	if c.mesh != nil {
		p.mesh = func() (*kernel.Mesh, error) {
			m, err := c.mesh()
			if err != nil {
				return nil, err
			}
			if kind == job.ShapeTranslate {
				return m.Translate(v.X, v.Y, v.Z), nil
			}
			return m.Rotate(v.X, v.Y, v.Z), nil
		}
	}
	if c.solid != nil {
		p.solid = func() (kernel.Solid, error) {
			s, err := c.solid()
			if err != nil {
				return nil, err
			}
			if kind == job.ShapeTranslate {
				return k.Translate(s, v.X, v.Y, v.Z), nil
			}
			return k.Rotate(s, v.X, v.Y, v.Z), nil
		}
	}
	return p
}

func foldSolids(children []part, op func(a, b kernel.Solid) kernel.Solid) (kernel.Solid, error) {
	acc, err := children[0].solid()
	if err != nil {
		return nil, err
	}
	for _, c := range children[1:] {
		s, err := c.solid()
		if err != nil {
			return nil, err
		}
		acc = op(acc, s)
	}
	return acc, nil
}

func meshOf(tris []geom.Triangle) func() (*kernel.Mesh, error) {
	return func() (*kernel.Mesh, error) {
		return &kernel.Mesh{Triangles: tris}, nil
	}
}

func unsupported(s *job.Shape, msg string) error {
	return errors.New(msg).
		WithType(ErrTypeUnsupported).
		WithTag("shape", s.Kind.String())
}
