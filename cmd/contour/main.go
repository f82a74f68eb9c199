package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/contour/pkg/export"
	"github.com/chazu/contour/pkg/job"
	"github.com/chazu/contour/pkg/kernel/sdfx"
	"github.com/chazu/contour/pkg/preview"
	"github.com/chazu/contour/pkg/raster"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

// The Contour version number. Set at build.
var version = "v0.1.0"

// Keeps the config field names readable by the cli package under
// obfuscating builds.
var _ = reflect.TypeOf(config{})

type config struct {
	Job           string        `cli:""        env:"CONTOUR_JOB"            help:"The job script to run."`
	Out           string        `cli:""        env:"CONTOUR_OUT"            help:"Output directory."`
	Formats       []string      `cli:""        env:"CONTOUR_FORMATS"        help:"Comma separated outputs (json|gcode|tiff|clouds)."`
	Step          string        `cli:""        env:"CONTOUR_STEP"           help:"Overrides the job step (coarse|medium|fine|very-fine|<mm>)."`
	XStride       int           `cli:""        env:"CONTOUR_X_STRIDE"       help:"Overrides the job X stride, in raster cells."`
	YStride       int           `cli:""        env:"CONTOUR_Y_STRIDE"       help:"Overrides the job Y stride, in raster cells."`
	Floor         string        `cli:""        env:"CONTOUR_FLOOR"          help:"Overrides the job floor height."`
	CellFactor    float64       `cli:",hidden" env:"CONTOUR_CELL_FACTOR"    help:"Overrides the spatial index cell size, in steps."`
	TerrainFilter string        `cli:""        env:"CONTOUR_TERRAIN_FILTER" help:"Terrain face filter (up|down|none)."`
	ToolFilter    string        `cli:",hidden" env:"CONTOUR_TOOL_FILTER"    help:"Tool face filter (up|down|none)."`
	Workers       int           `cli:""        env:"CONTOUR_WORKERS"        help:"Rasterization workers per mesh."`
	Kernel        string        `cli:""        env:"CONTOUR_KERNEL"         help:"Geometry kernel for solids (sdfx|manifold)."`
	MeshCells     int           `cli:",hidden" env:"CONTOUR_MESH_CELLS"     help:"Marching cubes resolution for solids without an exact mesh."`
	Verify        bool          `cli:""        env:"CONTOUR_VERIFY"         help:"Check the toolpath against the terrain after generation."`
	Feed          float64       `cli:""        env:"CONTOUR_FEED"           help:"G-code cutting feed rate in mm/min."`
	PlungeFeed    float64       `cli:",hidden" env:"CONTOUR_PLUNGE_FEED"    help:"G-code plunge feed rate in mm/min."`
	Clearance     float64       `cli:""        env:"CONTOUR_CLEARANCE"      help:"G-code rapid height above the highest position."`
	SpindleRPM    float64       `cli:""        env:"CONTOUR_SPINDLE_RPM"    help:"G-code spindle speed, 0 leaves the spindle alone."`
	Preview       bool          `cli:""        env:"CONTOUR_PREVIEW"        help:"Print a braille height preview."`
	PreviewWidth  int           `cli:",hidden" env:"CONTOUR_PREVIEW_WIDTH"  help:"Preview width in terminal cells."`
	MetricsAddr   string        `cli:""        env:"CONTOUR_METRICS_ADDR"   help:"Serves prometheus metrics on this address while running."`
	MetricsLinger time.Duration `cli:",hidden" env:"CONTOUR_METRICS_LINGER" help:"Keeps serving metrics this long after the run."`
	LogLevel      string        `cli:""        env:"CONTOUR_LOG_LEVEL"      help:"Log level (debug|info|warning|error)."`
	LogIndent     bool          `cli:""        env:"CONTOUR_LOG_INDENT"     help:"Indent logs."`
	Version       bool          `cli:""        env:"-"                      help:"Show version."`
	Help          bool          `cli:""        env:"-"                      help:"Show help."`
}

func main() {
	gcode := export.DefaultGCodeOptions()
	conf := config{
		Out:           ".",
		Formats:       []string{"json", "gcode"},
		TerrainFilter: raster.UpwardFacing.String(),
		ToolFilter:    raster.DownwardFacing.String(),
		Workers:       runtime.NumCPU(),
		Kernel:        "sdfx",
		MeshCells:     sdfx.DefaultMeshCells,
		Feed:          gcode.Feed,
		Clearance:     gcode.Clearance,
		Preview:       true,
		PreviewWidth:  preview.DefaultWidth,
		LogLevel:      logs.InfoLevel.String(),
	}

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Generates a raster toolpath from a job script.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	if conf.MetricsAddr != "" {
		srv := serveMetrics(conf.MetricsAddr)
		defer func() {
			time.Sleep(conf.MetricsLinger)
			srv.Close()
		}()
	}

	logs.WithTag("version", version).
		WithTag("job", conf.Job).
		WithTag("workers", conf.Workers).
		Info("starting contour")

	if err := run(ctx, conf); err != nil {
		logs.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, conf config) error {
	terrainFilter, _ := raster.ParseFilter(conf.TerrainFilter)
	toolFilter, _ := raster.ParseFilter(conf.ToolFilter)

	k, err := newKernel(conf.Kernel)
	if err != nil {
		return err
	}

	report, err := NewAppWithKernel(k).RunFile(ctx, conf.Job, RunOptions{
		Overrides: Overrides{
			Step:       conf.Step,
			XStride:    conf.XStride,
			YStride:    conf.YStride,
			Floor:      conf.Floor,
			CellFactor: conf.CellFactor,
		},
		TerrainFilter: terrainFilter,
		ToolFilter:    toolFilter,
		Workers:       conf.Workers,
		MeshCells:     conf.MeshCells,
		Verify:        conf.Verify,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(conf.Out, 0o755); err != nil {
		return errors.New("creating output directory failed").
			WithTag("dir", conf.Out).
			Wrap(err)
	}
	written, err := Export(report, exportOptions(conf, report.Job))
	if err != nil {
		return err
	}

	fmt.Print(summary(report, written))
	if conf.Preview {
		fmt.Println(preview.Render(report.Toolpath, preview.Options{
			Width: conf.PreviewWidth,
			Title: report.Job.Name,
			Color: true,
		}))
	}
	return nil
}

func exportOptions(conf config, j *job.Job) ExportOptions {
	base := filepath.Join(conf.Out, fileName(j.Name))
	opts := ExportOptions{
		GCodeOptions: export.GCodeOptions{
			Clearance:  conf.Clearance,
			Feed:       conf.Feed,
			PlungeFeed: conf.PlungeFeed,
			SpindleRPM: conf.SpindleRPM,
			Simplify:   true,
		},
		Indent: conf.LogIndent,
	}
	for _, f := range conf.Formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "json":
			opts.ToolpathJSON = base + ".toolpath.json"
		case "gcode":
			opts.GCode = base + ".nc"
		case "tiff":
			opts.HeightTIFF = base + ".tiff"
		case "clouds":
			opts.TerrainJSON = base + ".terrain.json"
			opts.ToolJSON = base + ".tool.json"
		}
	}
	return opts
}

// fileName turns a job name into a safe file name.
func fileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.TrimSpace(name))
	if name == "" {
		return "untitled"
	}
	return name
}

func summary(r *Report, written []string) string {
	var b strings.Builder
	tp := r.Toolpath
	fmt.Fprintf(&b, "job       %s (step %g, strides %dx%d, floor %g)\n",
		r.Job.Name, r.Job.Step, r.Job.XStride, r.Job.YStride, r.Job.Floor)
	fmt.Fprintf(&b, "terrain   %d triangles, %d points\n", r.TerrainTriangles, r.Terrain.Len())
	fmt.Fprintf(&b, "tool      %d triangles, %d points\n", r.ToolTriangles, r.Tool.Len())
	fmt.Fprintf(&b, "toolpath  %dx%d positions, %d touching terrain, max z %.3f\n",
		tp.Cols, tp.Rows, tp.CoveredCount(), tp.MaxZ())
	if r.Verified {
		b.WriteString("verified  no gouges\n")
	}
	for _, p := range written {
		fmt.Fprintf(&b, "wrote     %s\n", p)
	}
	fmt.Fprintf(&b, "elapsed   %s\n", r.Elapsed.Round(time.Millisecond))
	return b.String()
}

func serveMetrics(addr string) *http.Server {
	var mux http.ServeMux
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: &mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Warn(errors.New("serving metrics failed").
				WithTag("addr", addr).
				Wrap(err))
		}
	}()
	return srv
}

func validateConfig(conf config) error {
	if conf.Job == "" {
		return errors.New("job script is not set").
			WithTag("env", "CONTOUR_JOB")
	}
	if conf.Step != "" {
		if _, err := job.ParseStep(conf.Step); err != nil {
			return err
		}
	}
	if conf.XStride < 0 || conf.YStride < 0 {
		return errors.New("strides cannot be negative").
			WithTag("x_stride", conf.XStride).
			WithTag("y_stride", conf.YStride)
	}
	for name, f := range map[string]string{"terrain": conf.TerrainFilter, "tool": conf.ToolFilter} {
		if _, err := raster.ParseFilter(f); err != nil {
			return errors.New("invalid face filter").
				WithTag("mesh", name).
				Wrap(err)
		}
	}
	if k := strings.ToLower(conf.Kernel); k != "sdfx" && k != "manifold" {
		return errors.New("unknown geometry kernel").
			WithTag("kernel", conf.Kernel)
	}
	if conf.Workers < 1 {
		return errors.New("workers must be at least 1").
			WithTag("workers", conf.Workers)
	}
	for _, f := range conf.Formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "json", "gcode", "tiff", "clouds":
		default:
			return errors.New("unknown output format").
				WithTag("format", f)
		}
	}
	if !(conf.Feed > 0) {
		return errors.New("feed rate must be positive").
			WithTag("feed", conf.Feed)
	}
	return nil
}
