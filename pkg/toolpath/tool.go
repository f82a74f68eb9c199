package toolpath

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/raster"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Offset is one tool point relative to the tool tip, in world units (D)
// and in whole raster cells (DI, DJ).
type Offset struct {
	D  v3.Vec
	DI int
	DJ int
}

// ToolOffsets is a tool point cloud re-expressed relative to its tip, the
// lowest point and therefore the first to touch a surface below it.
type ToolOffsets struct {
	Step    float64
	Tip     v3.Vec
	Offsets []Offset
}

// NewToolOffsets builds the offset cloud of a tool rasterized at step.
// The tip is the minimum Z point (the first in scan order on ties) and its
// offset is the zero vector.
func NewToolOffsets(cloud *raster.PointCloud, step float64) (*ToolOffsets, error) {
	if cloud == nil || cloud.Len() == 0 {
		return nil, errors.New("tool point cloud is empty").
			WithType(raster.ErrTypeInvalidInput)
	}
	if !raster.SameStep(cloud.Grid.Step, step) {
		return nil, errors.New("tool was rasterized with a different step").
			WithType(ErrTypeInconsistentConfig).
			WithTag("tool_step", cloud.Grid.Step).
			WithTag("step", step)
	}

	tip := cloud.Lowest()
	ti, tj := cloud.Cell(tip)
	t := &ToolOffsets{
		Step:    step,
		Tip:     cloud.Points[tip],
		Offsets: make([]Offset, cloud.Len()),
	}
	for k, p := range cloud.Points {
		i, j := cloud.Cell(k)
		t.Offsets[k] = Offset{
			D:  p.Sub(t.Tip),
			DI: i - ti,
			DJ: j - tj,
		}
	}
	return t, nil
}

// Len returns the number of offsets.
func (t *ToolOffsets) Len() int {
	return len(t.Offsets)
}
