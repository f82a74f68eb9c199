package raster

import (
	"math"

	"github.com/chazu/contour/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// PointCloud is the output of Rasterize: one point per hit cell, in raster
// scan order (row by row, increasing Y, then increasing X). It is never
// mutated after Rasterize returns.
type PointCloud struct {
	Grid   Grid     `json:"grid"`
	Filter Filter   `json:"filter"`
	Bounds geom.Box `json:"bounds"`
	Points []v3.Vec `json:"points"`
	// Cells[k] is the flat grid index of Points[k].
	Cells []int32 `json:"cells"`
	// Sources[k] is the index of the input triangle that produced Points[k].
	Sources []int32 `json:"sources"`
	Stats   Stats   `json:"stats"`
}

// Len returns the number of points.
func (c *PointCloud) Len() int {
	return len(c.Points)
}

// Cell returns the grid cell of point k.
func (c *PointCloud) Cell(k int) (i, j int) {
	idx := int(c.Cells[k])
	return idx % c.Grid.Cols, idx / c.Grid.Cols
}

// Lowest returns the index of the point with the smallest Z. Ties resolve
// to the earliest point in scan order. It returns -1 for an empty cloud.
func (c *PointCloud) Lowest() int {
	best := -1
	z := math.Inf(1)
	for k, p := range c.Points {
		if p.Z < z {
			best, z = k, p.Z
		}
	}
	return best
}
