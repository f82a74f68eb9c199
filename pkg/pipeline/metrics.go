package pipeline

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/raster"
	"github.com/chazu/contour/pkg/toolpath"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
	filterLabel  = "filter"
	purposeLabel = "purpose"
	outcomeLabel = "outcome"

	outcomeOK         = "ok"
	outcomeError      = "error"
	outcomeSuperseded = "superseded"
)

var (
	rasterizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contour_rasterizations",
		Help: "The number of rasterizations run.",
	}, []string{
		filterLabel,
		outcomeLabel,
	})

	rasterizeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contour_rasterize_errors",
		Help: "The errors that occured while rasterizing a mesh.",
	}, []string{
		errTypeLabel,
	})

	rasterPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contour_raster_points",
		Help: "The number of points emitted by rasterizations.",
	}, []string{
		filterLabel,
	})

	degenerateTriangles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contour_degenerate_triangles",
		Help: "The number of triangles skipped as degenerate.",
	})

	rasterizeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "contour_rasterize_latency",
		Help: "The time to rasterize a mesh.",
	}, []string{
		filterLabel,
	})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contour_submissions",
		Help: "The number of asynchronous rasterization results by outcome.",
	}, []string{
		purposeLabel,
		outcomeLabel,
	})

	toolpathLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "contour_toolpath_latency",
		Help: "The time to generate a toolpath.",
	})

	toolpathPositions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contour_toolpath_positions",
		Help: "The number of toolpath positions generated.",
	})

	toolpathErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contour_toolpath_errors",
		Help: "The errors that occured while generating a toolpath.",
	}, []string{
		errTypeLabel,
	})
)

func instrumentRasterize(f raster.Filter, cloud *raster.PointCloud, start time.Time, err error) {
	labels := prometheus.Labels{filterLabel: f.String()}
	rasterizeLatency.With(labels).Observe(time.Since(start).Seconds())

	if err != nil {
		rasterizations.With(prometheus.Labels{
			filterLabel:  f.String(),
			outcomeLabel: outcomeError,
		}).Inc()
		rasterizeErrors.With(prometheus.Labels{
			errTypeLabel: errors.Type(err),
		}).Inc()
		return
	}

	rasterizations.With(prometheus.Labels{
		filterLabel:  f.String(),
		outcomeLabel: outcomeOK,
	}).Inc()
	rasterPoints.With(labels).Add(float64(cloud.Len()))
	degenerateTriangles.Add(float64(cloud.Stats.Degenerate))
}

func instrumentSubmission(p Purpose, err error) {
	outcome := outcomeOK
	switch {
	case errors.Type(err) == ErrTypeSuperseded:
		outcome = outcomeSuperseded
	case err != nil:
		outcome = outcomeError
	}
	submissions.With(prometheus.Labels{
		purposeLabel: p.String(),
		outcomeLabel: outcome,
	}).Inc()
}

func instrumentToolpath(tp *toolpath.Toolpath, start time.Time, err error) {
	toolpathLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		toolpathErrors.With(prometheus.Labels{
			errTypeLabel: errors.Type(err),
		}).Inc()
		return
	}
	toolpathPositions.Add(float64(tp.Len()))
}
