// Package job describes a toolpath job: the terrain and tool shapes and
// the sampling parameters the pipeline runs them with.
package job

import (
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ErrTypeInvalidStep is raised for step values that are neither a known
// level nor a positive number.
const ErrTypeInvalidStep = "invalid-step"

// MinCellFactor is the smallest accepted spatial index cell size, in ray
// steps. Zero still means the rasterizer default.
const MinCellFactor = 0.25

// Job is the evaluated form of a job script.
type Job struct {
	Name       string  `json:"name"`
	Step       float64 `json:"step"`
	XStride    int     `json:"x_stride"`
	YStride    int     `json:"y_stride"`
	Floor      float64 `json:"floor"`
	CellFactor float64 `json:"cell_factor,omitempty"`
	Terrain    *Shape  `json:"terrain,omitempty"`
	Tool       *Shape  `json:"tool,omitempty"`
}

// New returns a job with default parameters and no shapes.
func New() *Job {
	return &Job{
		Name:    "untitled",
		Step:    StepLevels["medium"],
		XStride: 1,
		YStride: 1,
	}
}

// StepLevels are the named sampling resolutions, in millimeters.
var StepLevels = map[string]float64{
	"coarse":    1.0,
	"medium":    0.5,
	"fine":      0.25,
	"very-fine": 0.1,
}

// ParseStep accepts a step level name or a positive number.
func ParseStep(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := StepLevels[s]; ok {
		return v, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) {
		return 0, errors.New("step must be coarse, medium, fine, very-fine or a positive number").
			WithType(ErrTypeInvalidStep).
			WithTag("step", s)
	}
	return v, nil
}
