package raster

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/require"
)

func box(x0, y0, z0, x1, y1, z1 float64) geom.Box {
	return geom.Box{Min: v3.Vec{X: x0, Y: y0, Z: z0}, Max: v3.Vec{X: x1, Y: y1, Z: z1}}
}

func wavyTerrain() []geom.Triangle {
	return geom.Heightfield(0, 0, 40, 30, 48, 36, 0, func(x, y float64) float64 {
		return 6 + 2*math.Sin(x/5) + 1.5*math.Cos(y/4)
	})
}

func TestRasterizeCuboid(t *testing.T) {
	tris := geom.Cuboid(box(0, 0, 0, 10, 10, 5))

	tests := []struct {
		filter Filter
		z      float64
	}{
		{UpwardFacing, 5},
		{DownwardFacing, 0},
		{None, 5},
	}
	for _, tt := range tests {
		t.Run(tt.filter.String(), func(t *testing.T) {
			cloud, err := Rasterize(tris, Options{Step: 1, Filter: tt.filter})
			require.NoError(t, err)
			require.Equal(t, 10, cloud.Grid.Cols)
			require.Equal(t, 10, cloud.Grid.Rows)
			require.Equal(t, 100, cloud.Len())
			for _, p := range cloud.Points {
				require.Equal(t, tt.z, p.Z)
			}
			require.Equal(t, 0.5, cloud.Points[0].X)
			require.Equal(t, 0.5, cloud.Points[0].Y)
		})
	}
}

func TestRasterizeSingleHitPerCell(t *testing.T) {
	for _, f := range []Filter{UpwardFacing, DownwardFacing, None} {
		cloud, err := Rasterize(wavyTerrain(), Options{Step: 0.5, Filter: f})
		require.NoError(t, err)
		require.NotZero(t, cloud.Len())

		seen := make(map[int32]bool, cloud.Len())
		for k, c := range cloud.Cells {
			require.False(t, seen[c], "cell %d emitted twice", c)
			seen[c] = true

			i, j := cloud.Cell(k)
			x, y := cloud.Grid.Center(i, j)
			require.Equal(t, x, cloud.Points[k].X)
			require.Equal(t, y, cloud.Points[k].Y)
		}
	}
}

func TestRasterizeScanOrder(t *testing.T) {
	cloud, err := Rasterize(wavyTerrain(), Options{Step: 0.7, Filter: UpwardFacing})
	require.NoError(t, err)
	for k := 1; k < cloud.Len(); k++ {
		require.Less(t, cloud.Cells[k-1], cloud.Cells[k])
	}
}

func TestRasterizeFilterCorrectness(t *testing.T) {
	tris := wavyTerrain()

	up, err := Rasterize(tris, Options{Step: 0.5, Filter: UpwardFacing})
	require.NoError(t, err)
	for _, s := range up.Sources {
		require.Positive(t, tris[s].NormalZ)
	}

	down, err := Rasterize(tris, Options{Step: 0.5, Filter: DownwardFacing})
	require.NoError(t, err)
	for k, s := range down.Sources {
		require.Negative(t, tris[s].NormalZ)
		require.Equal(t, 0.0, down.Points[k].Z)
	}
}

func TestRasterizeIndexTransparency(t *testing.T) {
	meshes := map[string][]geom.Triangle{
		"terrain": wavyTerrain(),
		"tool":    geom.BallEndTool(2.5, 6, 32, 8),
		"soup":    triangleSoup(600, 7),
	}
	for name, tris := range meshes {
		t.Run(name, func(t *testing.T) {
			for _, f := range []Filter{UpwardFacing, DownwardFacing, None} {
				brute, err := Rasterize(tris, Options{Step: 0.3, Filter: f, Index: IndexBruteForce})
				require.NoError(t, err)

				for _, opts := range []Options{
					{Step: 0.3, Filter: f},
					{Step: 0.3, Filter: f, CellFactor: 1},
					{Step: 0.3, Filter: f, CellFactor: 40},
					{Step: 0.3, Filter: f, IndexCols: 3, IndexRows: 17},
				} {
					indexed, err := Rasterize(tris, opts)
					require.NoError(t, err)
					require.Equal(t, brute.Points, indexed.Points)
					require.Equal(t, brute.Cells, indexed.Cells)
					require.Equal(t, brute.Sources, indexed.Sources)
					require.LessOrEqual(t, indexed.Stats.Tests, brute.Stats.Tests)
				}
			}
		})
	}
}

func TestRasterizeDeterministicAcrossWorkers(t *testing.T) {
	tris := wavyTerrain()
	ref, err := Rasterize(tris, Options{Step: 0.25, Filter: UpwardFacing})
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 3, 8, 1000} {
		got, err := Rasterize(tris, Options{Step: 0.25, Filter: UpwardFacing, Workers: workers})
		require.NoError(t, err)
		require.Equal(t, ref.Points, got.Points, "workers=%d", workers)
		require.Equal(t, ref.Cells, got.Cells, "workers=%d", workers)
	}
}

func TestRasterizeStepMonotonicity(t *testing.T) {
	tris := geom.BallEndTool(3, 2, 24, 6)
	prev := 0
	for _, step := range []float64{2, 1, 0.5, 0.25, 0.125} {
		cloud, err := Rasterize(tris, Options{Step: step, Filter: DownwardFacing})
		require.NoError(t, err)
		require.GreaterOrEqual(t, cloud.Len(), prev, "step %v", step)
		prev = cloud.Len()
	}
}

func TestRasterizeInvalidStep(t *testing.T) {
	tris := geom.Cuboid(box(0, 0, 0, 1, 1, 1))
	for _, step := range []float64{0, -0.5, math.NaN(), math.Inf(1)} {
		_, err := Rasterize(tris, Options{Step: step})
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidInput, errors.Type(err))
	}
}

func TestRasterizeTooLarge(t *testing.T) {
	tris := geom.Cuboid(box(0, 0, 0, 100, 100, 1))
	_, err := Rasterize(tris, Options{Step: 1, MaxCells: 50})
	require.Error(t, err)
	require.Equal(t, ErrTypeAllocation, errors.Type(err))
}

func TestRasterizeIndexTooLarge(t *testing.T) {
	tris := geom.Cuboid(box(0, 0, 0, 100, 100, 1))

	tests := []struct {
		name string
		opts Options
	}{
		{"tiny cell factor", Options{Step: 1, CellFactor: 1e-5}},
		{"explicit cells", Options{Step: 1, IndexCols: 1 << 20, IndexRows: 1 << 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rasterize(tris, tt.opts)
			require.Error(t, err)
			require.Equal(t, ErrTypeAllocation, errors.Type(err))
		})
	}
}

func TestRasterizeNonFiniteVertex(t *testing.T) {
	good := geom.NewTriangle(v3.Vec{Z: 1}, v3.Vec{X: 4, Z: 1}, v3.Vec{Y: 4, Z: 1})
	alone, err := Rasterize([]geom.Triangle{good}, Options{Step: 0.5, Filter: UpwardFacing})
	require.NoError(t, err)
	require.NotZero(t, alone.Len())

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		broken := geom.NewTriangle(v3.Vec{X: bad, Z: 1}, v3.Vec{X: 4, Z: 1}, v3.Vec{Y: 4, Z: 1})
		cloud, err := Rasterize([]geom.Triangle{good, broken}, Options{Step: 0.5, Filter: UpwardFacing})
		require.NoError(t, err)
		require.Equal(t, 1, cloud.Stats.Degenerate)
		require.Equal(t, alone.Grid, cloud.Grid)
		require.Equal(t, alone.Points, cloud.Points)
	}

	cloud, err := Rasterize([]geom.Triangle{geom.NewTriangle(v3.Vec{X: math.NaN()}, v3.Vec{X: 1}, v3.Vec{Y: 1})}, Options{Step: 0.5})
	require.NoError(t, err)
	require.Zero(t, cloud.Len())
	require.True(t, cloud.Grid.Valid())
}

func TestNewGridRejectsNonFiniteBounds(t *testing.T) {
	_, err := NewGrid(box(math.NaN(), 0, 0, 4, 4, 1), 0.5)
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidInput, errors.Type(err))

	_, err = NewGrid(box(0, 0, 0, math.Inf(1), 4, 1), 0.5)
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidInput, errors.Type(err))
}

func TestRasterizeEmpty(t *testing.T) {
	cloud, err := Rasterize(nil, Options{Step: 1, Filter: UpwardFacing})
	require.NoError(t, err)
	require.Zero(t, cloud.Len())
	require.Equal(t, -1, cloud.Lowest())

	up := []geom.Triangle{geom.NewTriangle(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})}
	cloud, err = Rasterize(up, Options{Step: 0.1, Filter: DownwardFacing})
	require.NoError(t, err)
	require.Zero(t, cloud.Len())
	require.Equal(t, 10, cloud.Grid.Cols)
}

func TestRasterizeSkipsDegenerate(t *testing.T) {
	tris := geom.Cuboid(box(0, 0, 0, 4, 4, 2))
	tris = append(tris,
		geom.NewTriangle(v3.Vec{X: 1, Y: 1, Z: 9}, v3.Vec{X: 2, Y: 2, Z: 9}, v3.Vec{X: 3, Y: 3, Z: 9}),
		geom.NewTriangle(v3.Vec{X: 1, Y: 1, Z: 9}, v3.Vec{X: 1, Y: 1, Z: 9}, v3.Vec{X: 1, Y: 1, Z: 9}),
	)

	cloud, err := Rasterize(tris, Options{Step: 0.5, Filter: None})
	require.NoError(t, err)
	require.Equal(t, 2, cloud.Stats.Degenerate)
	require.Equal(t, 64, cloud.Len())
	for _, p := range cloud.Points {
		require.Equal(t, 2.0, p.Z)
	}
}

func TestRasterizeBallEndTool(t *testing.T) {
	const radius = 2.5
	cloud, err := Rasterize(geom.BallEndTool(radius, 5, 48, 12), Options{Step: 0.25, Filter: DownwardFacing})
	require.NoError(t, err)

	low := cloud.Lowest()
	require.GreaterOrEqual(t, low, 0)
	require.InDelta(t, 0, cloud.Points[low].Z, 0.05)

	for _, p := range cloud.Points {
		r := math.Hypot(p.X, p.Y)
		require.LessOrEqual(t, r, radius)
		require.GreaterOrEqual(t, p.Z, 0.0)
		require.LessOrEqual(t, p.Z, radius)
		if r > 0.9*radius {
			continue // the faceted rim is steep; only check the bowl
		}
		want := radius - math.Sqrt(radius*radius-r*r)
		require.InDelta(t, want, p.Z, 0.05, "r=%f", r)
	}

	disc := math.Pi * radius * radius / (0.25 * 0.25)
	require.InEpsilon(t, disc, float64(cloud.Len()), 0.15)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
		ok   bool
	}{
		{"up", UpwardFacing, true},
		{"Upward-Facing", UpwardFacing, true},
		{"down", DownwardFacing, true},
		{"none", None, true},
		{"sideways", 0, false},
		{"", 0, false},
		{"  ", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseFilter(tt.in)
		if !tt.ok {
			require.Error(t, err)
			require.Equal(t, ErrTypeInvalidInput, errors.Type(err))
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

func TestNewGridResolution(t *testing.T) {
	g, err := NewGrid(box(0, 0, 0, 84.4, 84.4, 28.25), 0.5)
	require.NoError(t, err)
	require.Equal(t, 169, g.Cols)
	require.Equal(t, 169, g.Rows)

	g, err = NewGrid(box(0, 0, 0, 84.4, 84.4, 28.25), 0.1)
	require.NoError(t, err)
	require.Equal(t, 844, g.Cols, "84.4 / 0.1 rounds to exactly 844")
	require.Equal(t, 844, g.Rows)

	g, err = NewGrid(box(0, 0, 0, 84.41, 84.4, 28.25), 0.1)
	require.NoError(t, err)
	require.Equal(t, 845, g.Cols, "any overhang adds a column")
	require.Equal(t, 844, g.Rows)

	g, err = NewGrid(box(-1, -1, 0, -1, 3, 0), 1)
	require.NoError(t, err)
	require.Equal(t, 1, g.Cols, "zero width still gets one column")
	require.Equal(t, 4, g.Rows)

	i, j, ok := g.Cell(-0.5, 2.5)
	require.True(t, ok)
	require.Equal(t, 0, i)
	require.Equal(t, 3, j)
	_, _, ok = g.Cell(-0.5, 3.0)
	require.False(t, ok)
}

func triangleSoup(n int, seed int64) []geom.Triangle {
	rnd := rand.New(rand.NewSource(seed))
	tris := make([]geom.Triangle, n)
	for i := range tris {
		cx, cy := rnd.Float64()*20, rnd.Float64()*20
		p := func() v3.Vec {
			return v3.Vec{X: cx + rnd.Float64()*3, Y: cy + rnd.Float64()*3, Z: rnd.Float64() * 5}
		}
		tris[i] = geom.NewTriangle(p(), p(), p())
	}
	return tris
}

func BenchmarkRasterize(b *testing.B) {
	tris := geom.Heightfield(0, 0, 80, 80, 120, 120, 0, func(x, y float64) float64 {
		return 10 + 3*math.Sin(x/7)*math.Cos(y/9)
	})

	for _, bc := range []struct {
		name string
		opts Options
	}{
		{"brute", Options{Step: 0.5, Index: IndexBruteForce}},
		{"cells-1x", Options{Step: 0.5, CellFactor: 1}},
		{"cells-4x", Options{Step: 0.5, CellFactor: 4}},
		{"cells-16x", Options{Step: 0.5, CellFactor: 16}},
		{"cells-4x-workers-4", Options{Step: 0.5, CellFactor: 4, Workers: 4}},
	} {
		b.Run(bc.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Rasterize(tris, bc.opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
