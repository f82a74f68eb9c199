package toolpath

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/raster"
)

// HeightGrid is a dense lookup table over a terrain point cloud: one Z per
// raster cell, NaN where the cloud has no point.
type HeightGrid struct {
	grid    raster.Grid
	z       []float64
	covered int
}

// NewHeightGrid indexes cloud by raster cell.
func NewHeightGrid(cloud *raster.PointCloud) (*HeightGrid, error) {
	if cloud == nil {
		return nil, errors.New("height grid needs a point cloud").
			WithType(raster.ErrTypeInvalidInput)
	}
	g := cloud.Grid
	if !g.Valid() {
		return nil, errors.New("point cloud has no valid grid").
			WithType(raster.ErrTypeInvalidInput).
			WithTag("step", g.Step).
			WithTag("cols", g.Cols).
			WithTag("rows", g.Rows)
	}

	z := make([]float64, g.Len())
	for k := range z {
		z[k] = math.NaN()
	}
	for k, c := range cloud.Cells {
		z[c] = cloud.Points[k].Z
	}

	return &HeightGrid{grid: g, z: z, covered: cloud.Len()}, nil
}

// Grid returns the sample grid the height grid was built on.
func (h *HeightGrid) Grid() raster.Grid {
	return h.grid
}

// Covered returns the number of cells holding a terrain height.
func (h *HeightGrid) Covered() int {
	return h.covered
}

// Lookup returns the terrain height of the cell containing (x, y).
func (h *HeightGrid) Lookup(x, y float64) (float64, bool) {
	i, j, ok := h.grid.Cell(x, y)
	if !ok {
		return 0, false
	}
	return h.cell(i, j)
}

// At returns the terrain height at (x, y), or floor where the terrain
// has no coverage.
func (h *HeightGrid) At(x, y, floor float64) float64 {
	if z, ok := h.Lookup(x, y); ok {
		return z
	}
	return floor
}

func (h *HeightGrid) cell(i, j int) (float64, bool) {
	if i < 0 || j < 0 || i >= h.grid.Cols || j >= h.grid.Rows {
		return 0, false
	}
	z := h.z[h.grid.Index(i, j)]
	if math.IsNaN(z) {
		return 0, false
	}
	return z, true
}
