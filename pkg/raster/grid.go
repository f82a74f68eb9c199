package raster

import (
	"fmt"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultMaxCells bounds the size of a raster. Larger requests fail with
// ErrTypeAllocation instead of exhausting memory.
const DefaultMaxCells = 1 << 28

// Grid is the sample grid geometry shared by a point cloud, the height
// grid built on it and the toolpath sampled from it. Cell (i, j) covers
// [Origin.X+i*Step, Origin.X+(i+1)*Step) along X and likewise along Y;
// rays are cast through cell centers.
type Grid struct {
	Origin v3.Vec  `json:"origin"`
	Step   float64 `json:"step"`
	Cols   int     `json:"cols"`
	Rows   int     `json:"rows"`
}

// NewGrid derives the sample grid covering bounds at the given step. The
// column and row counts are the XY extents divided by step, rounded up,
// and at least one. An empty box yields a grid with no cells.
func NewGrid(bounds geom.Box, step float64) (Grid, error) {
	return newGrid(bounds, step, DefaultMaxCells)
}

func newGrid(bounds geom.Box, step float64, maxCells int) (Grid, error) {
	if err := checkStep(step); err != nil {
		return Grid{}, err
	}
	if bounds.Empty() {
		return Grid{Step: step}, nil
	}

	size := bounds.Size()
	if !finite(bounds.Min.X, bounds.Min.Y, bounds.Min.Z, size.X, size.Y, size.Z) {
		return Grid{}, errors.New("raster bounds must be finite").
			WithType(ErrTypeInvalidInput).
			WithTag("min", fmt.Sprint(bounds.Min)).
			WithTag("max", fmt.Sprint(bounds.Max))
	}
	fc := math.Max(1, math.Ceil(size.X/step))
	fr := math.Max(1, math.Ceil(size.Y/step))
	if fc*fr > float64(maxCells) {
		return Grid{}, errors.New("raster grid too large").
			WithType(ErrTypeAllocation).
			WithTag("step", step).
			WithTag("cols", fc).
			WithTag("rows", fr).
			WithTag("max_cells", maxCells)
	}

	return Grid{
		Origin: v3.Vec{X: bounds.Min.X, Y: bounds.Min.Y, Z: bounds.Min.Z},
		Step:   step,
		Cols:   int(fc),
		Rows:   int(fr),
	}, nil
}

func checkStep(step float64) error {
	if step > 0 && !math.IsInf(step, 0) {
		return nil
	}
	return errors.New("step size must be a positive finite number").
		WithType(ErrTypeInvalidInput).
		WithTag("step", step)
}

func finite(fs ...float64) bool {
	for _, f := range fs {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Valid reports whether the grid has a usable step and non-negative
// dimensions.
func (g Grid) Valid() bool {
	return g.Cols >= 0 && g.Rows >= 0 && checkStep(g.Step) == nil
}

// Len returns the number of cells.
func (g Grid) Len() int {
	return g.Cols * g.Rows
}

// Index returns the row-major flat index of cell (i, j).
func (g Grid) Index(i, j int) int {
	return j*g.Cols + i
}

// Center returns the world XY position of the center of cell (i, j).
func (g Grid) Center(i, j int) (x, y float64) {
	return g.Origin.X + (float64(i)+0.5)*g.Step, g.Origin.Y + (float64(j)+0.5)*g.Step
}

// Cell returns the cell containing (x, y).
func (g Grid) Cell(x, y float64) (i, j int, ok bool) {
	fi := math.Floor((x - g.Origin.X) / g.Step)
	fj := math.Floor((y - g.Origin.Y) / g.Step)
	if fi < 0 || fj < 0 || fi >= float64(g.Cols) || fj >= float64(g.Rows) {
		return 0, 0, false
	}
	return int(fi), int(fj), true
}

// SameStep reports whether two grids were derived from the same step size.
func (g Grid) SameStep(o Grid) bool {
	return SameStep(g.Step, o.Step)
}

// SameStep compares step sizes with a relative tolerance of 1e-9.
func SameStep(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
