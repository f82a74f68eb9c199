package geom

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/require"
)

func vec(x, y, z float64) v3.Vec {
	return v3.Vec{X: x, Y: y, Z: z}
}

func TestNewTriangleNormalZ(t *testing.T) {
	tests := []struct {
		name string
		tri  Triangle
		sign int
	}{
		{"counter clockwise faces up", NewTriangle(vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0)), 1},
		{"clockwise faces down", NewTriangle(vec(0, 0, 0), vec(0, 1, 0), vec(1, 0, 0)), -1},
		{"vertical wall", NewTriangle(vec(0, 0, 0), vec(1, 0, 0), vec(1, 0, 1)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			switch tt.sign {
			case 1:
				require.Positive(t, tt.tri.NormalZ)
			case -1:
				require.Negative(t, tt.tri.NormalZ)
			default:
				require.Zero(t, tt.tri.NormalZ)
			}
		})
	}
}

func TestIntersectZ(t *testing.T) {
	// Plane z = 1 + x + 2y over the unit right triangle.
	tri := NewTriangle(vec(0, 0, 1), vec(1, 0, 2), vec(0, 1, 3))

	z, ok := IntersectZ(tri, 0.25, 0.25)
	require.True(t, ok)
	require.InDelta(t, 1+0.25+0.5, z, 1e-12)

	_, ok = IntersectZ(tri, 0.75, 0.75)
	require.False(t, ok, "outside the hypotenuse")

	_, ok = IntersectZ(tri, -0.1, 0.5)
	require.False(t, ok)
}

func TestIntersectZIgnoresWinding(t *testing.T) {
	up := NewTriangle(vec(0, 0, 5), vec(2, 0, 5), vec(0, 2, 5))
	down := NewTriangle(vec(0, 0, 5), vec(0, 2, 5), vec(2, 0, 5))

	zu, oku := IntersectZ(up, 0.5, 0.5)
	zd, okd := IntersectZ(down, 0.5, 0.5)
	require.True(t, oku)
	require.True(t, okd)
	require.InDelta(t, 5, zu, 1e-12)
	require.InDelta(t, 5, zd, 1e-12)
}

func TestIntersectZDegenerate(t *testing.T) {
	tests := []struct {
		name       string
		tri        Triangle
		degenerate bool
	}{
		{"collinear", NewTriangle(vec(0, 0, 0), vec(1, 1, 0), vec(2, 2, 0)), true},
		{"repeated vertex", NewTriangle(vec(1, 1, 1), vec(1, 1, 1), vec(2, 0, 0)), true},
		{"coplanar with ray", NewTriangle(vec(0, 0, 0), vec(1, 0, 0), vec(0, 0, 1)), false},
		{"nan vertex", NewTriangle(vec(math.NaN(), 0, 0), vec(1, 0, 0), vec(0, 1, 0)), true},
		{"infinite vertex", NewTriangle(vec(0, 0, 0), vec(math.Inf(1), 0, 0), vec(0, 1, 0)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.degenerate, tt.tri.Degenerate())
			for _, p := range [][2]float64{{0, 0}, {0.5, 0}, {1, 1}, {0.5, 0.5}} {
				_, ok := IntersectZ(tt.tri, p[0], p[1])
				require.False(t, ok, "ray at %v", p)
			}
		})
	}
}

func TestIntersectZSharedEdgeHitsOnce(t *testing.T) {
	// Unit square split along its diagonal, both halves facing up.
	a := NewTriangle(vec(0, 0, 0), vec(1, 0, 0), vec(1, 1, 0))
	b := NewTriangle(vec(0, 0, 0), vec(1, 1, 0), vec(0, 1, 0))

	for _, p := range [][2]float64{{0.5, 0.5}, {0.25, 0.25}, {0.9, 0.9}} {
		_, okA := IntersectZ(a, p[0], p[1])
		_, okB := IntersectZ(b, p[0], p[1])
		require.True(t, okA != okB, "point %v hit a=%v b=%v", p, okA, okB)
	}
}

func TestBoundsOf(t *testing.T) {
	tris := []Triangle{
		NewTriangle(vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0)),
		NewTriangle(vec(-2, 3, 4), vec(1, 0, -1), vec(0, 1, 0)),
	}
	b := BoundsOf(tris)
	require.Equal(t, vec(-2, 0, -1), b.Min)
	require.Equal(t, vec(1, 3, 4), b.Max)
	require.Equal(t, vec(3, 3, 5), b.Size())

	empty := BoundsOf(nil)
	require.True(t, empty.Empty())
	require.Equal(t, v3.Vec{}, empty.Size())
	require.True(t, math.IsInf(empty.Min.X, 1))
}

func TestBoxOverlaps2D(t *testing.T) {
	a := Box{Min: vec(0, 0, 0), Max: vec(1, 1, 0)}
	require.True(t, a.Overlaps2D(Box{Min: vec(1, 1, 5), Max: vec(2, 2, 6)}))
	require.False(t, a.Overlaps2D(Box{Min: vec(1.5, 0, 0), Max: vec(2, 1, 0)}))
	require.True(t, a.Contains2D(0.5, 1))
	require.False(t, a.Contains2D(0.5, 1.01))
}
