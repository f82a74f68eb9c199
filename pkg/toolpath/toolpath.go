// Package toolpath places a tool over a terrain height grid. For each
// sampled position it finds the lowest tool height at which no tool point
// is below the terrain: the height of first contact when lowering the
// tool from above.
package toolpath

import (
	"fmt"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/contour/pkg/raster"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Error types raised by this package on top of the raster ones.
const (
	ErrTypeInconsistentConfig = "inconsistent-config"
	ErrTypeVerification       = "verification"
)

// contactTolerance absorbs rounding when checking contact and clearance.
const contactTolerance = 1e-9

// Params control the sampling of a toolpath.
type Params struct {
	// XStride and YStride are counts of terrain raster cells between two
	// sampled positions, not world units.
	XStride int
	YStride int
	// Floor is the terrain height assumed outside terrain coverage.
	Floor float64
}

// Toolpath holds one tool reference height per sampled position. Sampled
// position (c, r) sits over terrain cell (c*XStride, r*YStride).
type Toolpath struct {
	Grid    raster.Grid
	XStride int
	YStride int
	Cols    int
	Rows    int
	Floor   float64
	Z       []float64
	// Covered is false where no tool point landed on terrain; Z is then
	// the floor.
	Covered []bool
}

// Len returns the number of sampled positions.
func (tp *Toolpath) Len() int {
	return tp.Cols * tp.Rows
}

// At returns the reference height at sampled position (c, r).
func (tp *Toolpath) At(c, r int) float64 {
	return tp.Z[r*tp.Cols+c]
}

// Position returns the world position of the tool tip at (c, r).
func (tp *Toolpath) Position(c, r int) v3.Vec {
	x, y := tp.Grid.Center(c*tp.XStride, r*tp.YStride)
	return v3.Vec{X: x, Y: y, Z: tp.At(c, r)}
}

// CoveredCount returns the number of positions that touch terrain.
func (tp *Toolpath) CoveredCount() int {
	n := 0
	for _, c := range tp.Covered {
		if c {
			n++
		}
	}
	return n
}

// MaxZ returns the highest reference height, or NaN for an empty path.
func (tp *Toolpath) MaxZ() float64 {
	z := math.NaN()
	for _, v := range tp.Z {
		if math.IsNaN(z) || v > z {
			z = v
		}
	}
	return z
}

// Generate computes the toolpath of tool over hg. Both must come from
// rasterizations with the same step; a mismatch is a caller error and is
// reported, never compensated.
func Generate(hg *HeightGrid, tool *ToolOffsets, p Params) (*Toolpath, error) {
	if hg == nil || tool == nil || tool.Len() == 0 {
		return nil, errors.New("toolpath needs a height grid and a non-empty tool").
			WithType(raster.ErrTypeInvalidInput)
	}
	if !hg.grid.Valid() {
		return nil, errors.New("height grid has no valid grid").
			WithType(raster.ErrTypeInvalidInput).
			WithTag("cols", hg.grid.Cols).
			WithTag("rows", hg.grid.Rows)
	}
	if p.XStride < 1 || p.YStride < 1 {
		return nil, errors.New("toolpath strides must be at least 1").
			WithType(raster.ErrTypeInvalidInput).
			WithTag("x_stride", p.XStride).
			WithTag("y_stride", p.YStride)
	}
	if !raster.SameStep(hg.grid.Step, tool.Step) {
		return nil, errors.New("terrain and tool steps differ").
			WithType(ErrTypeInconsistentConfig).
			WithTag("terrain_step", hg.grid.Step).
			WithTag("tool_step", tool.Step)
	}
	if math.IsNaN(p.Floor) {
		return nil, errors.New("floor must be a number").
			WithType(raster.ErrTypeInvalidInput)
	}

	g := hg.grid
	tp := &Toolpath{
		Grid:    g,
		XStride: p.XStride,
		YStride: p.YStride,
		Cols:    (g.Cols + p.XStride - 1) / p.XStride,
		Rows:    (g.Rows + p.YStride - 1) / p.YStride,
		Floor:   p.Floor,
	}
	tp.Z = make([]float64, tp.Cols*tp.Rows)
	tp.Covered = make([]bool, tp.Cols*tp.Rows)

	for r := 0; r < tp.Rows; r++ {
		j := r * p.YStride
		for c := 0; c < tp.Cols; c++ {
			i := c * p.XStride
			ref := math.Inf(-1)
			covered := false
			for _, o := range tool.Offsets {
				z, ok := hg.cell(i+o.DI, j+o.DJ)
				if ok {
					covered = true
				} else {
					z = p.Floor
				}
				if need := z - o.D.Z; need > ref {
					ref = need
				}
			}
			tp.Z[r*tp.Cols+c] = ref
			tp.Covered[r*tp.Cols+c] = covered
		}
	}

	logs.WithTag("cols", tp.Cols).
		WithTag("rows", tp.Rows).
		WithTag("tool_points", tool.Len()).
		WithTag("covered", tp.CoveredCount()).
		Debug("toolpath generated")

	return tp, nil
}

// Verify checks every sampled position of tp: no tool point may sit below
// the terrain (or the floor outside it), and at least one must touch it.
func Verify(hg *HeightGrid, tool *ToolOffsets, tp *Toolpath) error {
	for r := 0; r < tp.Rows; r++ {
		for c := 0; c < tp.Cols; c++ {
			i, j := c*tp.XStride, r*tp.YStride
			ref := tp.At(c, r)
			contact := false
			for _, o := range tool.Offsets {
				z, ok := hg.cell(i+o.DI, j+o.DJ)
				if !ok {
					z = tp.Floor
				}
				gap := ref + o.D.Z - z
				if gap < -contactTolerance {
					return errors.New("tool penetrates terrain").
						WithType(ErrTypeVerification).
						WithTag("position", fmt.Sprintf("%d,%d", c, r)).
						WithTag("offset", o.D).
						WithTag("depth", -gap)
				}
				if gap <= contactTolerance {
					contact = true
				}
			}
			if !contact {
				return errors.New("tool does not touch terrain").
					WithType(ErrTypeVerification).
					WithTag("position", fmt.Sprintf("%d,%d", c, r)).
					WithTag("z", ref)
			}
		}
	}
	return nil
}
