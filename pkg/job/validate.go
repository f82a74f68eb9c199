package job

import (
	"fmt"
	"math"
)

// Severity indicates whether a finding blocks the job or is advisory.
type Severity int

const (
	SeverityError   Severity = iota // blocks the job
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding describes one validation result.
type Finding struct {
	Path     string // shape path, empty for job level findings
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	if f.Path == "" {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Path, f.Message)
}

// Validate checks the job parameters and both shape trees. It never
// mutates the job.
func Validate(j *Job) []Finding {
	var fs []Finding
	fs = append(fs, validateParams(j)...)
	fs = append(fs, validateShape("terrain", j.Terrain)...)
	fs = append(fs, validateShape("tool", j.Tool)...)
	fs = append(fs, validateResolution(j)...)
	return fs
}

// HasErrors reports whether any finding blocks the job.
func HasErrors(fs []Finding) bool {
	for _, f := range fs {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateParams(j *Job) []Finding {
	var fs []Finding
	if !(j.Step > 0) || math.IsInf(j.Step, 0) {
		fs = append(fs, errorf("", "step must be a positive number, got %v", j.Step))
	}
	if j.XStride < 1 || j.YStride < 1 {
		fs = append(fs, errorf("", "strides must be at least 1, got %d and %d", j.XStride, j.YStride))
	}
	if math.IsNaN(j.Floor) || math.IsInf(j.Floor, 0) {
		fs = append(fs, errorf("", "floor must be a finite number"))
	}
	switch {
	case j.CellFactor < 0 || math.IsNaN(j.CellFactor) || math.IsInf(j.CellFactor, 0):
		fs = append(fs, errorf("", "cell factor must be a non-negative number, got %v", j.CellFactor))
	case j.CellFactor > 0 && j.CellFactor < MinCellFactor:
		fs = append(fs, errorf("", "cell factor must be at least %v, got %v", MinCellFactor, j.CellFactor))
	}
	return fs
}

func validateShape(root string, s *Shape) []Finding {
	if s == nil {
		return []Finding{errorf(root, "no %s shape defined", root)}
	}

	var fs []Finding
	s.Walk(func(path string, n *Shape) {
		path = root + ":" + path
		for i, c := range n.Children {
			if c == nil {
				fs = append(fs, errorf(path, "child %d is missing", i))
			}
		}

		switch n.Kind {
		case ShapeBox:
			d, ok := n.Data.(BoxData)
			if !ok {
				fs = append(fs, dataMismatch(path, n))
				return
			}
			if !(d.Size.X > 0 && d.Size.Y > 0 && d.Size.Z > 0) {
				fs = append(fs, errorf(path, "box dimensions must be positive, got %v x %v x %v", d.Size.X, d.Size.Y, d.Size.Z))
			}
		case ShapeCylinder:
			d, ok := n.Data.(CylinderData)
			if !ok {
				fs = append(fs, dataMismatch(path, n))
				return
			}
			if !(d.Height > 0 && d.Radius > 0) {
				fs = append(fs, errorf(path, "cylinder height and radius must be positive"))
			}
		case ShapeSphere:
			d, ok := n.Data.(SphereData)
			if !ok {
				fs = append(fs, dataMismatch(path, n))
				return
			}
			if !(d.Radius > 0) {
				fs = append(fs, errorf(path, "sphere radius must be positive"))
			}
		case ShapeBallEnd, ShapeFlatEnd:
			d, ok := n.Data.(CutterData)
			if !ok {
				fs = append(fs, dataMismatch(path, n))
				return
			}
			if !(d.Radius > 0) {
				fs = append(fs, errorf(path, "cutter radius must be positive"))
			}
			if d.Length < 0 {
				fs = append(fs, errorf(path, "cutter length must not be negative"))
			}
		case ShapeMesh:
			d, ok := n.Data.(MeshData)
			if !ok {
				fs = append(fs, dataMismatch(path, n))
				return
			}
			if d.Path == "" {
				fs = append(fs, errorf(path, "stl needs a file path"))
			}
		case ShapeUnion, ShapeDifference, ShapeIntersection:
			if len(n.Children) < 2 {
				fs = append(fs, errorf(path, "%s needs at least two shapes, got %d", n.Kind, len(n.Children)))
			}
		case ShapeTranslate, ShapeRotate:
			if _, ok := n.Data.(TransformData); !ok {
				fs = append(fs, dataMismatch(path, n))
			}
			if len(n.Children) != 1 {
				fs = append(fs, errorf(path, "%s takes exactly one shape, got %d", n.Kind, len(n.Children)))
			}
		default:
			fs = append(fs, errorf(path, "unknown shape kind %d", int(n.Kind)))
		}
	})
	return fs
}

// validateResolution warns when the step is too coarse to resolve the
// cutter. Only cutters at the root of the tool tree are checked.
func validateResolution(j *Job) []Finding {
	if j.Tool == nil || !(j.Step > 0) {
		return nil
	}
	d, ok := j.Tool.Data.(CutterData)
	if !ok || !(d.Radius > 0) {
		return nil
	}
	if j.Step > d.Radius {
		return []Finding{{
			Path:     "tool",
			Message:  fmt.Sprintf("step %v is coarser than the cutter radius %v; the tool will be sampled by very few points", j.Step, d.Radius),
			Severity: SeverityWarning,
		}}
	}
	return nil
}

func dataMismatch(path string, n *Shape) Finding {
	return errorf(path, "%s has unexpected data %T", n.Kind, n.Data)
}

func errorf(path, format string, args ...any) Finding {
	return Finding{
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	}
}
