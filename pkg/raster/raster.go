// Package raster converts a triangle mesh into a point cloud by casting
// vertical rays through a regular XY grid and keeping at most one hit per
// grid cell.
//
// Face orientation decides which triangles take part and which hit wins
// (see Filter). A spatial.Grid built once per call limits every ray to
// the triangles whose footprint can contain it; the result is identical
// to testing every triangle.
package raster

import (
	"fmt"
	"math"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/contour/pkg/geom"
	"github.com/chazu/contour/pkg/spatial"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Error types raised by this package, read with errors.Type.
const (
	ErrTypeInvalidInput = "invalid-input"
	ErrTypeAllocation   = "allocation"
)

// DefaultCellFactor is the spatial cell size in units of the ray step.
const DefaultCellFactor = 4.0

// IndexKind selects the acceleration structure.
type IndexKind int

const (
	IndexGrid IndexKind = iota
	IndexBruteForce
)

// Options control one rasterization.
type Options struct {
	// Step is the distance between rays along X and Y. Required.
	Step float64
	// Filter selects the faces and the best-hit comparison.
	Filter Filter
	// CellFactor sets the spatial cell size to CellFactor*Step.
	CellFactor float64
	// IndexCols and IndexRows, when both positive, set the spatial grid
	// dimensions directly and override CellFactor.
	IndexCols int
	IndexRows int
	// Index selects the spatial grid or the brute-force reference.
	Index IndexKind
	// Workers splits the raster rows over that many goroutines. The
	// output does not depend on it.
	Workers int
	// MaxCells bounds the raster size. Zero means DefaultMaxCells.
	MaxCells int
}

func (o Options) withDefaults() Options {
	if !(o.CellFactor > 0) || math.IsInf(o.CellFactor, 0) {
		o.CellFactor = DefaultCellFactor
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.MaxCells <= 0 {
		o.MaxCells = DefaultMaxCells
	}
	return o
}

// Stats records what a rasterization did.
type Stats struct {
	Triangles  int           `json:"triangles"`
	Degenerate int           `json:"degenerate"`
	Accepted   int           `json:"accepted"`
	Tests      int64         `json:"tests"`
	Index      spatial.Stats `json:"index"`
}

// Rasterize casts one vertical ray through the center of every cell of
// the grid derived from the triangles' bounding box and opts.Step, and
// returns the best hit of each ray that hits anything.
//
// Degenerate triangles are skipped. A mesh with no triangle left after
// filtering produces an empty cloud, not an error.
func Rasterize(tris []geom.Triangle, opts Options) (*PointCloud, error) {
	opts = opts.withDefaults()

	r, ok := rules[opts.Filter]
	if !ok {
		return nil, errors.New("unknown face filter").
			WithType(ErrTypeInvalidInput).
			WithTag("filter", int(opts.Filter))
	}

	bounds := geom.FiniteBoundsOf(tris)
	grid, err := newGrid(bounds, opts.Step, opts.MaxCells)
	if err != nil {
		return nil, err
	}

	rz := rasterizer{grid: grid, rule: r}
	rz.stats.Triangles = len(tris)
	for i := range tris {
		if tris[i].Degenerate() {
			rz.stats.Degenerate++
			continue
		}
		if !r.accept(tris[i].NormalZ) {
			continue
		}
		rz.tris = append(rz.tris, tris[i])
		rz.ids = append(rz.ids, int32(i))
	}
	rz.stats.Accepted = len(rz.tris)

	cloud := &PointCloud{Grid: grid, Filter: opts.Filter, Bounds: geom.EmptyBox()}
	if len(rz.tris) == 0 {
		cloud.Stats = rz.stats
		return cloud, nil
	}

	if opts.Index == IndexBruteForce {
		rz.index = spatial.NewBruteForce(len(rz.tris))
	} else {
		cols, rows, err := indexDims(bounds, opts)
		if err != nil {
			return nil, err
		}
		g := spatial.NewGridWithCells(rz.tris, bounds, cols, rows)
		rz.stats.Index = g.Stats()
		rz.index = g
	}

	chunks := rz.run(opts.Workers)

	n := 0
	for _, c := range chunks {
		n += len(c.points)
	}
	cloud.Points = make([]v3.Vec, 0, n)
	cloud.Cells = make([]int32, 0, n)
	cloud.Sources = make([]int32, 0, n)
	for _, c := range chunks {
		cloud.Points = append(cloud.Points, c.points...)
		cloud.Cells = append(cloud.Cells, c.cells...)
		cloud.Sources = append(cloud.Sources, c.sources...)
		rz.stats.Tests += c.tests
	}
	cloud.Bounds = geom.BoundsOfPoints(cloud.Points)
	cloud.Stats = rz.stats

	if rz.stats.Degenerate > 0 {
		logs.WithTag("degenerate", rz.stats.Degenerate).
			WithTag("triangles", rz.stats.Triangles).
			Debug("skipped degenerate triangles")
	}
	logs.WithTag("filter", opts.Filter.String()).
		WithTag("step", grid.Step).
		WithTag("cols", grid.Cols).
		WithTag("rows", grid.Rows).
		WithTag("accepted", rz.stats.Accepted).
		WithTag("points", len(cloud.Points)).
		WithTag("index_avg_per_cell", rz.stats.Index.AvgPerCell).
		Debug("mesh rasterized")

	return cloud, nil
}

// indexDims returns the spatial grid dimensions for opts, bounded by
// opts.MaxCells like the raster itself.
func indexDims(bounds geom.Box, opts Options) (cols, rows int, err error) {
	fc, fr := float64(opts.IndexCols), float64(opts.IndexRows)
	if opts.IndexCols <= 0 || opts.IndexRows <= 0 {
		size := bounds.Size()
		cell := opts.Step * opts.CellFactor
		fc = math.Ceil(size.X / cell)
		fr = math.Ceil(size.Y / cell)
	}
	fc, fr = math.Max(1, fc), math.Max(1, fr)
	if !(fc*fr <= float64(opts.MaxCells)) {
		return 0, 0, errors.New("spatial index too large").
			WithType(ErrTypeAllocation).
			WithTag("step", opts.Step).
			WithTag("cell_factor", opts.CellFactor).
			WithTag("cells", fmt.Sprint(fc*fr)).
			WithTag("max_cells", opts.MaxCells)
	}
	return int(fc), int(fr), nil
}

// rasterizer holds the read-only state shared by the row workers.
type rasterizer struct {
	grid  Grid
	rule  rule
	tris  []geom.Triangle
	ids   []int32 // index into the caller's slice for each entry of tris
	index spatial.Index
	stats Stats
}

type chunk struct {
	points  []v3.Vec
	cells   []int32
	sources []int32
	tests   int64
}

// run splits the rows into contiguous ranges, one per worker, and returns
// the per-range results in row order.
func (rz *rasterizer) run(workers int) []chunk {
	rows := rz.grid.Rows
	if workers > rows {
		workers = rows
	}
	if workers <= 1 {
		return []chunk{rz.rows(0, rows)}
	}

	chunks := make([]chunk, workers)
	per := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo, hi := w*per, min((w+1)*per, rows)
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			chunks[w] = rz.rows(lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()

	return chunks
}

// rows rasterizes rows [j0, j1).
func (rz *rasterizer) rows(j0, j1 int) chunk {
	var c chunk
	for j := j0; j < j1; j++ {
		for i := 0; i < rz.grid.Cols; i++ {
			x, y := rz.grid.Center(i, j)

			best := 0.0
			src := int32(-1)
			for _, k := range rz.index.Candidates(x, y) {
				c.tests++
				z, ok := geom.IntersectZ(rz.tris[k], x, y)
				if !ok {
					continue
				}
				if src < 0 || rz.rule.better(z, best) {
					best, src = z, k
				}
			}
			if src < 0 {
				continue
			}

			c.points = append(c.points, v3.Vec{X: x, Y: y, Z: best})
			c.cells = append(c.cells, int32(rz.grid.Index(i, j)))
			c.sources = append(c.sources, rz.ids[src])
		}
	}
	return c
}
