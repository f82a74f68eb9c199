package meshio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/geom"
	"github.com/chazu/contour/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/require"
)

const asciiTetra = `solid tetra
  facet normal 0 0 -1
    outer loop
      vertex 0 0 0
      vertex 0 1 0
      vertex 1 0 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 1.5
    endloop
  endfacet
endsolid tetra
`

func binarySTL(tris [][3][3]float32) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	binary.Write(&buf, binary.LittleEndian, uint32(len(tris)))
	for _, t := range tris {
		binary.Write(&buf, binary.LittleEndian, [3]float32{})
		binary.Write(&buf, binary.LittleEndian, t)
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// facets pads an ASCII body past the 84 byte binary header so the file
// is always parsed as text.
func facets(body string) []byte {
	return []byte("solid " + strings.Repeat("x", 90) + "\n" + body + "endsolid\n")
}

func TestLoadASCII(t *testing.T) {
	m, err := LoadSTL(writeFile(t, "tetra.stl", []byte(asciiTetra)))
	require.NoError(t, err)
	require.Equal(t, "tetra", m.Name)
	require.Len(t, m.Triangles, 2)
	require.Negative(t, m.Triangles[0].NormalZ)
	require.Positive(t, m.Triangles[1].NormalZ)
	require.Equal(t, 1.5, m.Triangles[1].V[2].Z)
}

func TestLoadBinary(t *testing.T) {
	data := binarySTL([][3][3]float32{
		{{0, 0, 0}, {2, 0, 0}, {0, 2, 1}},
		{{0, 0, 0}, {0, 2, 0}, {2, 0, 0}},
	})
	require.Len(t, data, 84+2*50)

	m, err := LoadSTL(writeFile(t, "pair.stl", data))
	require.NoError(t, err)
	require.Len(t, m.Triangles, 2)
	require.Equal(t, v3.Vec{X: 2}, m.Triangles[0].V[1])
	require.Positive(t, m.Triangles[0].NormalZ)
	require.Negative(t, m.Triangles[1].NormalZ)
}

func TestLoadBinaryHeaderStartingWithSolid(t *testing.T) {
	data := binarySTL([][3][3]float32{{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}})
	copy(data, "solid exported by a careless tool")

	m, err := LoadSTL(writeFile(t, "careless.stl", data))
	require.NoError(t, err)
	require.Len(t, m.Triangles, 1)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("hello world")},
		{"no facets", facets("")},
		{"bad number", facets("facet\nouter loop\nvertex 1 2 z\nvertex 0 0 0\nvertex 1 0 0\nendloop\nendfacet\n")},
		{"two vertices", facets("facet\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nendloop\nendfacet\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSTL(writeFile(t, "bad.stl", tt.data))
			require.Error(t, err)
			require.Equal(t, ErrTypeFormat, errors.Type(err))
		})
	}
}

func TestLoadKeepsNonFiniteVertices(t *testing.T) {
	body := "facet\nouter loop\nvertex 0 0 1\nvertex 4 0 1\nvertex 0 4 1\nendloop\nendfacet\n" +
		"facet\nouter loop\nvertex nan 0 1\nvertex 4 0 1\nvertex 0 4 1\nendloop\nendfacet\n"

	m, err := LoadSTL(writeFile(t, "nan.stl", facets(body)))
	require.NoError(t, err)
	require.Len(t, m.Triangles, 2)
	require.False(t, m.Triangles[0].Degenerate())
	require.True(t, m.Triangles[1].Degenerate())
}

func TestSaveAndLoad(t *testing.T) {
	src := &kernel.Mesh{
		Name:      "block",
		Triangles: geom.Cuboid(geom.Box{Min: v3.Vec{X: -1, Y: 2}, Max: v3.Vec{X: 3, Y: 5, Z: 0.75}}),
	}
	path := filepath.Join(t.TempDir(), "block.stl")
	require.NoError(t, SaveSTL(path, src))

	got, err := LoadSTL(path)
	require.NoError(t, err)
	require.Equal(t, "block", got.Name)
	require.Equal(t, src.TriangleCount(), got.TriangleCount())
	for i, tri := range got.Triangles {
		for k := 0; k < 3; k++ {
			require.InDelta(t, src.Triangles[i].V[k].X, tri.V[k].X, 1e-6)
			require.InDelta(t, src.Triangles[i].V[k].Y, tri.V[k].Y, 1e-6)
			require.InDelta(t, src.Triangles[i].V[k].Z, tri.V[k].Z, 1e-6)
		}
		require.Equal(t, math.Signbit(src.Triangles[i].NormalZ), math.Signbit(tri.NormalZ))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadSTL(filepath.Join(t.TempDir(), "nope.stl"))
	require.Error(t, err)
	require.NotEqual(t, ErrTypeFormat, errors.Type(err))
}
