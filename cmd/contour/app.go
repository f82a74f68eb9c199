package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/contour/pkg/engine"
	"github.com/chazu/contour/pkg/export"
	"github.com/chazu/contour/pkg/job"
	"github.com/chazu/contour/pkg/kernel"
	"github.com/chazu/contour/pkg/kernel/manifold"
	"github.com/chazu/contour/pkg/kernel/sdfx"
	"github.com/chazu/contour/pkg/meshio"
	"github.com/chazu/contour/pkg/pipeline"
	"github.com/chazu/contour/pkg/raster"
	"github.com/chazu/contour/pkg/tessellate"
	"github.com/chazu/contour/pkg/toolpath"
)

// errTypeScript marks job scripts that failed to evaluate or validate.
const errTypeScript = "job-script"

// App runs job scripts end to end: evaluate, tessellate, rasterize,
// generate and export.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	runner *pipeline.Runner
}

// NewApp creates an App with an engine and the sdfx kernel.
func NewApp() *App {
	return NewAppWithKernel(sdfx.New())
}

// NewAppWithKernel creates an App that builds solids with k.
func NewAppWithKernel(k kernel.Kernel) *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: k,
		runner: pipeline.NewRunner(),
	}
}

// newKernel returns the geometry kernel called name.
func newKernel(name string) (kernel.Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sdfx":
		return sdfx.New(), nil
	case "manifold":
		return manifold.New()
	}
	return nil, errors.New("unknown geometry kernel").
		WithTag("kernel", name)
}

// Overrides replace job script parameters. Zero values keep the script's.
type Overrides struct {
	Step       string
	XStride    int
	YStride    int
	Floor      string
	CellFactor float64
}

// RunOptions control one run.
type RunOptions struct {
	Overrides     Overrides
	TerrainFilter raster.Filter
	ToolFilter    raster.Filter
	Workers       int
	MeshCells     int
	Verify        bool
}

// Report describes a finished run.
type Report struct {
	Job              *job.Job
	Findings         []job.Finding
	TerrainTriangles int
	ToolTriangles    int
	Terrain          *raster.PointCloud
	Tool             *raster.PointCloud
	Toolpath         *toolpath.Toolpath
	Verified         bool
	Elapsed          time.Duration
}

// Evaluate turns job script source into a job. Script errors are
// returned as one error listing every eval error.
func (a *App) Evaluate(source string, o Overrides) (*job.Job, error) {
	j, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, len(evalErrs))
		for i, e := range evalErrs {
			msgs[i] = e.Error()
		}
		return nil, errors.New("job script has errors").
			WithType(errTypeScript).
			WithTag("errors", strings.Join(msgs, "; "))
	}
	if err := applyOverrides(j, o); err != nil {
		return nil, err
	}
	return j, nil
}

func applyOverrides(j *job.Job, o Overrides) error {
	if o.Step != "" {
		step, err := job.ParseStep(o.Step)
		if err != nil {
			return err
		}
		j.Step = step
	}
	if o.XStride > 0 {
		j.XStride = o.XStride
	}
	if o.YStride > 0 {
		j.YStride = o.YStride
	}
	if o.Floor != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(o.Floor), 64)
		if err != nil {
			return errors.New("invalid floor").
				WithTag("floor", o.Floor).
				Wrap(err)
		}
		j.Floor = f
	}
	if o.CellFactor > 0 {
		j.CellFactor = o.CellFactor
	}
	return nil
}

// RunFile evaluates the job script at path and runs it. STL paths in the
// script are relative to the script's directory.
func (a *App) RunFile(ctx context.Context, path string, opts RunOptions) (*Report, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading job script failed").
			WithTag("path", path).
			Wrap(err)
	}
	return a.Run(ctx, string(source), filepath.Dir(path), opts)
}

// Run evaluates source and runs the resulting job.
func (a *App) Run(ctx context.Context, source, dir string, opts RunOptions) (*Report, error) {
	start := time.Now()

	j, err := a.Evaluate(source, opts.Overrides)
	if err != nil {
		return nil, err
	}

	report := &Report{Job: j, Findings: job.Validate(j)}
	for _, f := range report.Findings {
		if f.Severity == job.SeverityWarning {
			logs.Warn(errors.New(f.Message).WithTag("path", f.Path))
		}
	}
	if job.HasErrors(report.Findings) {
		msgs := make([]string, 0, len(report.Findings))
		for _, f := range report.Findings {
			if f.Severity == job.SeverityError {
				msgs = append(msgs, f.Error())
			}
		}
		return report, errors.New("job is invalid").
			WithType(errTypeScript).
			WithTag("findings", strings.Join(msgs, "; "))
	}

	terrainMesh, toolMesh, err := tessellate.Job(j, a.kernel, tessellate.Options{
		Cells: opts.MeshCells,
		Load: func(p string) (*kernel.Mesh, error) {
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			return meshio.LoadSTL(p)
		},
	})
	if err != nil {
		return report, err
	}
	report.TerrainTriangles = terrainMesh.TriangleCount()
	report.ToolTriangles = toolMesh.TriangleCount()

	rasterOpts := raster.Options{
		Step:       j.Step,
		CellFactor: j.CellFactor,
		Workers:    opts.Workers,
	}
	terrainOpts, toolOpts := rasterOpts, rasterOpts
	terrainOpts.Filter = opts.TerrainFilter
	toolOpts.Filter = opts.ToolFilter

	terrainCh := a.runner.Submit(ctx, pipeline.Request{
		Purpose:   pipeline.PurposeTerrain,
		Triangles: terrainMesh.Triangles,
		Options:   terrainOpts,
	})
	toolCh := a.runner.Submit(ctx, pipeline.Request{
		Purpose:   pipeline.PurposeTool,
		Triangles: toolMesh.Triangles,
		Options:   toolOpts,
	})
	terrainRes, toolRes := <-terrainCh, <-toolCh
	if terrainRes.Err != nil {
		return report, terrainRes.Err
	}
	if toolRes.Err != nil {
		return report, toolRes.Err
	}
	report.Terrain, report.Tool = terrainRes.Cloud, toolRes.Cloud

	logs.WithTag("terrain_points", terrainRes.Cloud.Len()).
		WithTag("terrain_elapsed", terrainRes.Elapsed).
		WithTag("tool_points", toolRes.Cloud.Len()).
		WithTag("tool_elapsed", toolRes.Elapsed).
		Info("meshes rasterized")

	s := pipeline.NewSession()
	defer s.Close()

	tp, err := generate(s, terrainRes.Cloud, toolRes.Cloud, j, opts.Verify)
	if err != nil {
		return report, err
	}
	report.Toolpath = tp
	report.Verified = opts.Verify
	report.Elapsed = time.Since(start)

	logs.WithTag("job", j.Name).
		WithTag("positions", tp.Len()).
		WithTag("contacts", tp.CoveredCount()).
		WithTag("elapsed", report.Elapsed).
		Info("toolpath generated")
	return report, nil
}

func generate(s *pipeline.Session, terrain, tool *raster.PointCloud, j *job.Job, verify bool) (*toolpath.Toolpath, error) {
	terrainH, err := s.Adopt(terrain)
	if err != nil {
		return nil, err
	}
	toolH, err := s.Adopt(tool)
	if err != nil {
		return nil, err
	}
	gridH, err := s.BuildHeightGrid(terrainH)
	if err != nil {
		return nil, err
	}
	offsetsH, err := s.BuildToolOffsets(toolH, j.Step)
	if err != nil {
		return nil, err
	}
	pathH, err := s.GenerateToolpath(gridH, offsetsH, toolpath.Params{
		XStride: j.XStride,
		YStride: j.YStride,
		Floor:   j.Floor,
	})
	if err != nil {
		return nil, err
	}

	tp, err := s.Toolpath(pathH)
	if err != nil {
		return nil, err
	}
	if verify {
		if err := verifyToolpath(s, gridH, offsetsH, tp); err != nil {
			return nil, err
		}
	}
	return tp, nil
}

func verifyToolpath(s *pipeline.Session, gridH, offsetsH pipeline.Handle, tp *toolpath.Toolpath) error {
	hg, err := s.HeightGrid(gridH)
	if err != nil {
		return err
	}
	offsets, err := s.ToolOffsets(offsetsH)
	if err != nil {
		return err
	}
	return toolpath.Verify(hg, offsets, tp)
}

// ExportOptions select output files. Empty paths are skipped.
type ExportOptions struct {
	ToolpathJSON string
	TerrainJSON  string
	ToolJSON     string
	HeightTIFF   string
	GCode        string
	GCodeOptions export.GCodeOptions
	Indent       bool
}

// Export writes the requested files for r and returns the paths written.
func Export(r *Report, opts ExportOptions) ([]string, error) {
	outputs := []struct {
		path  string
		write func(f *os.File) error
	}{
		{opts.ToolpathJSON, func(f *os.File) error { return export.WriteToolpathJSON(f, r.Toolpath, opts.Indent) }},
		{opts.TerrainJSON, func(f *os.File) error { return export.WriteCloudJSON(f, r.Terrain, opts.Indent) }},
		{opts.ToolJSON, func(f *os.File) error { return export.WriteCloudJSON(f, r.Tool, opts.Indent) }},
		{opts.HeightTIFF, func(f *os.File) error { return export.WriteHeightTIFF(f, r.Toolpath) }},
		{opts.GCode, func(f *os.File) error { return export.WriteGCode(f, r.Toolpath, opts.GCodeOptions) }},
	}

	var written []string
	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		if err := writeFile(o.path, o.write); err != nil {
			return written, err
		}
		written = append(written, o.path)
	}
	return written, nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New("creating output file failed").
			WithTag("path", path).
			Wrap(err)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.New("writing output file failed").
			WithTag("path", path).
			Wrap(err)
	}
	return f.Close()
}
