// Package spatial bins triangles into a 2D grid over the XY plane so a
// vertical ray only tests the triangles whose footprint can contain it.
//
// The grid is two dimensional on purpose. Rays always travel along Z, so
// locality only exists in XY: a solid that is dense through its depth
// fills every Z column of a 3D grid and gains nothing from it. The cell
// size is independent of the ray sampling step and is the one knob that
// decides whether binning pays off (see Stats).
package spatial

import (
	"math"

	"github.com/chazu/contour/pkg/geom"
)

// Index answers which triangles may be hit by a vertical ray at (x, y).
// Implementations return indices in ascending order and must never omit a
// triangle whose XY footprint contains the query point.
type Index interface {
	Candidates(x, y float64) []int32
}

// Compile-time interface checks.
var (
	_ Index = (*Grid)(nil)
	_ Index = (*BruteForce)(nil)
)

// Stats describes how triangles spread over a grid.
type Stats struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	Cells      int     `json:"cells"`
	Entries    int     `json:"entries"`
	EmptyCells int     `json:"empty_cells"`
	MaxPerCell int     `json:"max_per_cell"`
	AvgPerCell float64 `json:"avg_per_cell"`
}

// Grid is a uniform 2D partition. Cell contents are stored in compressed
// rows: the triangles of cell k are items[start[k]:start[k+1]]. A Grid is
// never mutated after construction and is safe for concurrent queries.
type Grid struct {
	minX, minY   float64
	maxX, maxY   float64
	cellW, cellH float64
	cols, rows   int
	start        []int32
	items        []int32
}

// NewGrid bins tris over bounds with square cells of the given size.
func NewGrid(tris []geom.Triangle, bounds geom.Box, cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = 1
	}
	size := bounds.Size()
	cols := int(math.Ceil(size.X / cellSize))
	rows := int(math.Ceil(size.Y / cellSize))
	return NewGridWithCells(tris, bounds, cols, rows)
}

// NewGridWithCells bins tris into exactly cols x rows cells spanning
// bounds. It lets callers tune cell count without touching the ray
// raster.
func NewGridWithCells(tris []geom.Triangle, bounds geom.Box, cols, rows int) *Grid {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	g := &Grid{
		minX: bounds.Min.X,
		minY: bounds.Min.Y,
		maxX: bounds.Max.X,
		maxY: bounds.Max.Y,
		cols: cols,
		rows: rows,
	}
	if bounds.Empty() {
		g.minX, g.minY, g.maxX, g.maxY = 0, 0, 0, 0
	}
	g.cellW = (g.maxX - g.minX) / float64(cols)
	g.cellH = (g.maxY - g.minY) / float64(rows)

	type span struct{ c0, c1, r0, r1 int }
	spans := make([]span, len(tris))
	counts := make([]int32, cols*rows+1)

	for i := range tris {
		b := tris[i].Bounds()
		s := span{
			c0: g.col(b.Min.X), c1: g.col(b.Max.X),
			r0: g.row(b.Min.Y), r1: g.row(b.Max.Y),
		}
		spans[i] = s
		for r := s.r0; r <= s.r1; r++ {
			for c := s.c0; c <= s.c1; c++ {
				counts[r*cols+c+1]++
			}
		}
	}

	for k := 1; k < len(counts); k++ {
		counts[k] += counts[k-1]
	}
	g.start = counts
	g.items = make([]int32, counts[len(counts)-1])

	fill := make([]int32, cols*rows)
	copy(fill, counts[:cols*rows])
	for i, s := range spans {
		for r := s.r0; r <= s.r1; r++ {
			for c := s.c0; c <= s.c1; c++ {
				k := r*cols + c
				g.items[fill[k]] = int32(i)
				fill[k]++
			}
		}
	}

	return g
}

// col maps x to a clamped column. It is monotone in x, which is what keeps
// a triangle's footprint and any point inside it in overlapping cells.
func (g *Grid) col(x float64) int {
	if g.cellW <= 0 {
		return 0
	}
	return clamp(int(math.Floor((x-g.minX)/g.cellW)), 0, g.cols-1)
}

func (g *Grid) row(y float64) int {
	if g.cellH <= 0 {
		return 0
	}
	return clamp(int(math.Floor((y-g.minY)/g.cellH)), 0, g.rows-1)
}

// Candidates returns the triangles binned in the cell containing (x, y),
// or nil when the point is outside the grid. The slice is shared; callers
// must not modify it.
func (g *Grid) Candidates(x, y float64) []int32 {
	if x < g.minX || x > g.maxX || y < g.minY || y > g.maxY {
		return nil
	}
	k := g.row(y)*g.cols + g.col(x)
	return g.items[g.start[k]:g.start[k+1]]
}

// Dims returns the number of columns and rows.
func (g *Grid) Dims() (cols, rows int) {
	return g.cols, g.rows
}

// Stats summarises the occupancy of the grid.
func (g *Grid) Stats() Stats {
	s := Stats{
		Cols:    g.cols,
		Rows:    g.rows,
		Cells:   g.cols * g.rows,
		Entries: len(g.items),
	}
	for k := 0; k < s.Cells; k++ {
		n := int(g.start[k+1] - g.start[k])
		if n == 0 {
			s.EmptyCells++
		}
		if n > s.MaxPerCell {
			s.MaxPerCell = n
		}
	}
	if s.Cells > 0 {
		s.AvgPerCell = float64(s.Entries) / float64(s.Cells)
	}
	return s
}

// BruteForce reports every triangle for every query. It is the reference
// the grid is checked against.
type BruteForce struct {
	all []int32
}

// NewBruteForce returns an index over n triangles.
func NewBruteForce(n int) *BruteForce {
	all := make([]int32, n)
	for i := range all {
		all[i] = int32(i)
	}
	return &BruteForce{all: all}
}

// Candidates returns all triangle indices.
func (b *BruteForce) Candidates(x, y float64) []int32 {
	return b.all
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
