package job

import (
	"strconv"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ShapeKind enumerates the nodes of a shape tree.
type ShapeKind int

const (
	ShapeBox          ShapeKind = iota // axis aligned box, min corner at the origin
	ShapeCylinder                      // Z axis cylinder standing on z = 0
	ShapeSphere                        // sphere centered at the origin
	ShapeBallEnd                       // ball-nosed cutter, tip at the origin
	ShapeFlatEnd                       // flat cutter, bottom face on z = 0
	ShapeMesh                          // triangle mesh loaded from an STL file
	ShapeUnion
	ShapeDifference
	ShapeIntersection
	ShapeTranslate
	ShapeRotate
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeCylinder:
		return "cylinder"
	case ShapeSphere:
		return "sphere"
	case ShapeBallEnd:
		return "ball-end"
	case ShapeFlatEnd:
		return "flat-end"
	case ShapeMesh:
		return "stl"
	case ShapeUnion:
		return "union"
	case ShapeDifference:
		return "difference"
	case ShapeIntersection:
		return "intersection"
	case ShapeTranslate:
		return "translate"
	case ShapeRotate:
		return "rotate"
	default:
		return "unknown"
	}
}

// Shape is a node of a shape tree. Leaves carry primitive data, inner
// nodes combine or move their children.
type Shape struct {
	Kind     ShapeKind `json:"kind"`
	Children []*Shape  `json:"children,omitempty"`
	Data     ShapeData `json:"data,omitempty"`
}

// ShapeData is the interface for kind-specific shape payloads.
type ShapeData interface {
	shapeData()
}

// BoxData holds the extents of a box.
type BoxData struct {
	Size v3.Vec `json:"size"`
}

// CylinderData holds the dimensions of a cylinder.
type CylinderData struct {
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
}

// SphereData holds the radius of a sphere.
type SphereData struct {
	Radius float64 `json:"radius"`
}

// CutterData describes a ball-end or flat-end cutter. Length is the
// cylindrical part above the cutting end.
type CutterData struct {
	Radius float64 `json:"radius"`
	Length float64 `json:"length"`
}

// MeshData points at an STL file.
type MeshData struct {
	Path string `json:"path"`
}

// TransformData is the offset of a translate node or the X, Y and Z
// rotation angles in degrees of a rotate node.
type TransformData struct {
	V v3.Vec `json:"v"`
}

func (BoxData) shapeData()       {}
func (CylinderData) shapeData()  {}
func (SphereData) shapeData()    {}
func (CutterData) shapeData()    {}
func (MeshData) shapeData()      {}
func (TransformData) shapeData() {}

// Box returns a box shape.
func Box(x, y, z float64) *Shape {
	return &Shape{Kind: ShapeBox, Data: BoxData{Size: v3.Vec{X: x, Y: y, Z: z}}}
}

// Cylinder returns a cylinder shape.
func Cylinder(height, radius float64) *Shape {
	return &Shape{Kind: ShapeCylinder, Data: CylinderData{Height: height, Radius: radius}}
}

// Sphere returns a sphere shape.
func Sphere(radius float64) *Shape {
	return &Shape{Kind: ShapeSphere, Data: SphereData{Radius: radius}}
}

// BallEnd returns a ball-nosed cutter.
func BallEnd(radius, length float64) *Shape {
	return &Shape{Kind: ShapeBallEnd, Data: CutterData{Radius: radius, Length: length}}
}

// FlatEnd returns a flat cutter.
func FlatEnd(radius, length float64) *Shape {
	return &Shape{Kind: ShapeFlatEnd, Data: CutterData{Radius: radius, Length: length}}
}

// Mesh returns a shape read from an STL file.
func Mesh(path string) *Shape {
	return &Shape{Kind: ShapeMesh, Data: MeshData{Path: path}}
}

// Combine returns a boolean node of the given kind.
func Combine(kind ShapeKind, children ...*Shape) *Shape {
	return &Shape{Kind: kind, Children: children}
}

// Translate moves s by v.
func Translate(s *Shape, v v3.Vec) *Shape {
	return &Shape{Kind: ShapeTranslate, Children: []*Shape{s}, Data: TransformData{V: v}}
}

// Rotate rotates s by Euler angles in degrees, X first.
func Rotate(s *Shape, degrees v3.Vec) *Shape {
	return &Shape{Kind: ShapeRotate, Children: []*Shape{s}, Data: TransformData{V: degrees}}
}

// Walk calls fn for s and its descendants in depth-first order. path
// names the node by its position in the tree.
func (s *Shape) Walk(fn func(path string, s *Shape)) {
	s.walk(s.Kind.String(), fn)
}

func (s *Shape) walk(path string, fn func(string, *Shape)) {
	fn(path, s)
	for i, c := range s.Children {
		if c == nil {
			continue
		}
		c.walk(childPath(path, i, c), fn)
	}
}

func childPath(parent string, i int, c *Shape) string {
	return parent + "/" + c.Kind.String() + "[" + strconv.Itoa(i) + "]"
}
