// Package export writes toolpaths and point clouds to files: JSON, 16-bit
// TIFF height maps and G-code.
package export

import (
	"io"

	"github.com/chazu/contour/pkg/geom"
	"github.com/chazu/contour/pkg/raster"
	"github.com/chazu/contour/pkg/toolpath"
	"github.com/segmentio/encoding/json"
)

type gridJSON struct {
	Origin [3]float64 `json:"origin"`
	Step   float64    `json:"step"`
	Cols   int        `json:"cols"`
	Rows   int        `json:"rows"`
}

type boxJSON struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

type toolpathJSON struct {
	Grid     gridJSON  `json:"grid"`
	XStride  int       `json:"x_stride"`
	YStride  int       `json:"y_stride"`
	Cols     int       `json:"cols"`
	Rows     int       `json:"rows"`
	Floor    float64   `json:"floor"`
	Z        []float64 `json:"z"`
	Covered  []bool    `json:"covered"`
	MaxZ     float64   `json:"max_z"`
	Contacts int       `json:"contacts"`
}

type cloudJSON struct {
	Grid    gridJSON     `json:"grid"`
	Filter  string       `json:"filter"`
	Bounds  *boxJSON     `json:"bounds,omitempty"`
	Points  [][3]float64 `json:"points"`
	Cells   []int32      `json:"cells"`
	Sources []int32      `json:"sources"`
	Stats   raster.Stats `json:"stats"`
}

// WriteToolpathJSON writes tp as a JSON document.
func WriteToolpathJSON(w io.Writer, tp *toolpath.Toolpath, indent bool) error {
	doc := toolpathJSON{
		Grid:     gridOf(tp.Grid),
		XStride:  tp.XStride,
		YStride:  tp.YStride,
		Cols:     tp.Cols,
		Rows:     tp.Rows,
		Floor:    tp.Floor,
		Z:        tp.Z,
		Covered:  tp.Covered,
		Contacts: tp.CoveredCount(),
	}
	if tp.Len() > 0 {
		doc.MaxZ = tp.MaxZ()
	}
	return encode(w, doc, indent)
}

// WriteCloudJSON writes c as a JSON document. An empty cloud has no
// bounds.
func WriteCloudJSON(w io.Writer, c *raster.PointCloud, indent bool) error {
	doc := cloudJSON{
		Grid:    gridOf(c.Grid),
		Filter:  c.Filter.String(),
		Points:  make([][3]float64, len(c.Points)),
		Cells:   c.Cells,
		Sources: c.Sources,
		Stats:   c.Stats,
	}
	for i, p := range c.Points {
		doc.Points[i] = [3]float64{p.X, p.Y, p.Z}
	}
	if !c.Bounds.Empty() {
		doc.Bounds = boxOf(c.Bounds)
	}
	return encode(w, doc, indent)
}

func gridOf(g raster.Grid) gridJSON {
	return gridJSON{
		Origin: [3]float64{g.Origin.X, g.Origin.Y, g.Origin.Z},
		Step:   g.Step,
		Cols:   g.Cols,
		Rows:   g.Rows,
	}
}

func boxOf(b geom.Box) *boxJSON {
	return &boxJSON{
		Min: [3]float64{b.Min.X, b.Min.Y, b.Min.Z},
		Max: [3]float64{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

func encode(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
