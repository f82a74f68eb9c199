// Package meshio reads and writes triangle meshes as STL files.
package meshio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/geom"
	"github.com/chazu/contour/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// ErrTypeFormat is raised for files that are not valid STL.
const ErrTypeFormat = "stl-format"

// LoadSTL reads an ASCII or binary STL file. The mesh is named after the
// file. Facet normals are ignored, orientation comes from the vertex
// order.
func LoadSTL(path string) (*kernel.Mesh, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New("opening stl file failed").
			WithTag("path", path).
			Wrap(err)
	}

	tris, err := loadSTL(path)
	if err != nil {
		return nil, errors.New("reading stl file failed").
			WithType(ErrTypeFormat).
			WithTag("path", path).
			Wrap(err)
	}
	if len(tris) == 0 {
		return nil, errors.New("stl file holds no triangles").
			WithType(ErrTypeFormat).
			WithTag("path", path)
	}

	return &kernel.Mesh{
		Name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Triangles: geom.FromSDF(tris),
	}, nil
}

// loadSTL calls render.LoadSTL, which indexes ASCII vertices in groups of
// three and panics when a facet is short.
func loadSTL(path string) (tris []*sdf.Triangle3, err error) {
	defer func() {
		if r := recover(); r != nil {
			tris, err = nil, fmt.Errorf("malformed facet: %v", r)
		}
	}()
	return render.LoadSTL(path)
}

// SaveSTL writes m as a binary STL file.
func SaveSTL(path string, m *kernel.Mesh) error {
	out := make([]*sdf.Triangle3, len(m.Triangles))
	for i, t := range m.Triangles {
		tri := sdf.Triangle3(t.V)
		out[i] = &tri
	}
	if err := render.SaveSTL(path, out); err != nil {
		return errors.New("writing stl file failed").
			WithTag("path", path).
			WithTag("triangles", len(out)).
			Wrap(err)
	}
	return nil
}
