package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/contour/pkg/geom"
	"github.com/chazu/contour/pkg/raster"
	"github.com/google/uuid"
)

// Purpose tells what a rasterization is for. Each purpose has its own
// generation counter.
type Purpose int

const (
	PurposeTerrain Purpose = iota
	PurposeTool
)

func (p Purpose) String() string {
	switch p {
	case PurposeTerrain:
		return "terrain"
	case PurposeTool:
		return "tool"
	default:
		return "unknown"
	}
}

// Request is an asynchronous rasterization.
type Request struct {
	// ID correlates the request with its result. A zero ID is replaced
	// with a random one.
	ID        uuid.UUID
	Purpose   Purpose
	Triangles []geom.Triangle
	Options   raster.Options
}

// Result is the outcome of a Request. ID and Purpose are copied from the
// request.
type Result struct {
	ID      uuid.UUID
	Purpose Purpose
	Cloud   *raster.PointCloud
	Err     error
	Elapsed time.Duration
}

// Runner rasterizes meshes in the background. A newer submission for a
// purpose supersedes older ones: their results come back with an
// ErrTypeSuperseded error instead of a cloud.
type Runner struct {
	mu          sync.Mutex
	generations map[Purpose]uint64
	rasterize   func([]geom.Triangle, raster.Options) (*raster.PointCloud, error)
}

// NewRunner returns a runner with no submission in flight.
func NewRunner() *Runner {
	return &Runner{
		generations: make(map[Purpose]uint64),
		rasterize:   raster.Rasterize,
	}
}

// Submit starts rasterizing req and returns a channel that receives
// exactly one Result. Canceling ctx delivers ctx's error early; the
// rasterization itself still runs to the end and is discarded.
func (r *Runner) Submit(ctx context.Context, req Request) <-chan Result {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	r.mu.Lock()
	r.generations[req.Purpose]++
	gen := r.generations[req.Purpose]
	r.mu.Unlock()

	done := make(chan Result, 1)
	go func() {
		start := time.Now()
		cloud, err := r.rasterize(req.Triangles, req.Options)
		instrumentRasterize(req.Options.Filter, cloud, start, err)
		done <- Result{
			ID:      req.ID,
			Purpose: req.Purpose,
			Cloud:   cloud,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}()

	out := make(chan Result, 1)
	go func() {
		var res Result
		select {
		case res = <-done:
			if current := r.generation(req.Purpose); current != gen {
				res.Cloud = nil
				res.Err = errors.New("rasterization superseded by a newer request").
					WithType(ErrTypeSuperseded).
					WithTag("id", req.ID.String()).
					WithTag("purpose", req.Purpose.String()).
					WithTag("generation", gen).
					WithTag("current", current)
			}

		case <-ctx.Done():
			res = Result{
				ID:      req.ID,
				Purpose: req.Purpose,
				Err: errors.New("stopped waiting for rasterization").
					WithTag("id", req.ID.String()).
					Wrap(ctx.Err()),
			}
		}

		instrumentSubmission(req.Purpose, res.Err)
		logs.WithTag("id", req.ID.String()).
			WithTag("purpose", req.Purpose.String()).
			WithTag("elapsed", res.Elapsed).
			WithTag("failed", res.Err != nil).
			Debug("rasterization finished")
		out <- res
	}()
	return out
}

func (r *Runner) generation(p Purpose) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[p]
}
