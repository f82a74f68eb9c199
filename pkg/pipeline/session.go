// Package pipeline runs rasterizations and toolpath generation for the
// application. A Session owns the intermediate results and hands out
// handles to them; a Runner rasterizes meshes in the background and
// correlates results with their requests.
package pipeline

import (
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/contour/pkg/geom"
	"github.com/chazu/contour/pkg/raster"
	"github.com/chazu/contour/pkg/toolpath"
	"github.com/google/uuid"
)

// Error types raised by this package.
const (
	ErrTypeInvalidHandle = "invalid-handle"
	ErrTypeSuperseded    = "superseded"
)

// Handle refers to a result owned by a Session.
type Handle uuid.UUID

// String returns the handle in its canonical uuid form.
func (h Handle) String() string {
	return uuid.UUID(h).String()
}

// Session is an arena for one pipeline run. Every result it creates
// lives until Release or Close. It is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	objects map[Handle]any
	closed  bool
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{objects: make(map[Handle]any)}
}

// Rasterize rasterizes tris and stores the point cloud.
func (s *Session) Rasterize(tris []geom.Triangle, opts raster.Options) (Handle, error) {
	start := time.Now()
	cloud, err := raster.Rasterize(tris, opts)
	instrumentRasterize(opts.Filter, cloud, start, err)
	if err != nil {
		return Handle{}, err
	}
	return s.store(cloud)
}

// Adopt stores a point cloud produced elsewhere, typically by a Runner.
func (s *Session) Adopt(cloud *raster.PointCloud) (Handle, error) {
	if cloud == nil {
		return Handle{}, errors.New("no point cloud to adopt").
			WithType(raster.ErrTypeInvalidInput)
	}
	return s.store(cloud)
}

// BuildHeightGrid builds the terrain lookup grid from a point cloud.
func (s *Session) BuildHeightGrid(cloud Handle) (Handle, error) {
	c, err := s.Cloud(cloud)
	if err != nil {
		return Handle{}, err
	}
	hg, err := toolpath.NewHeightGrid(c)
	if err != nil {
		return Handle{}, err
	}
	return s.store(hg)
}

// BuildToolOffsets derives tool offsets from a tool point cloud sampled
// with step.
func (s *Session) BuildToolOffsets(cloud Handle, step float64) (Handle, error) {
	c, err := s.Cloud(cloud)
	if err != nil {
		return Handle{}, err
	}
	offsets, err := toolpath.NewToolOffsets(c, step)
	if err != nil {
		return Handle{}, err
	}
	return s.store(offsets)
}

// GenerateToolpath generates a toolpath over a height grid with a tool.
func (s *Session) GenerateToolpath(grid, tool Handle, p toolpath.Params) (Handle, error) {
	hg, err := s.HeightGrid(grid)
	if err != nil {
		return Handle{}, err
	}
	offsets, err := s.ToolOffsets(tool)
	if err != nil {
		return Handle{}, err
	}

	start := time.Now()
	tp, err := toolpath.Generate(hg, offsets, p)
	instrumentToolpath(tp, start, err)
	if err != nil {
		return Handle{}, err
	}
	return s.store(tp)
}

// Cloud returns the point cloud behind h.
func (s *Session) Cloud(h Handle) (*raster.PointCloud, error) {
	return lookup[*raster.PointCloud](s, h, "point cloud")
}

// HeightGrid returns the height grid behind h.
func (s *Session) HeightGrid(h Handle) (*toolpath.HeightGrid, error) {
	return lookup[*toolpath.HeightGrid](s, h, "height grid")
}

// ToolOffsets returns the tool offsets behind h.
func (s *Session) ToolOffsets(h Handle) (*toolpath.ToolOffsets, error) {
	return lookup[*toolpath.ToolOffsets](s, h, "tool offsets")
}

// Toolpath returns the toolpath behind h.
func (s *Session) Toolpath(h Handle) (*toolpath.Toolpath, error) {
	return lookup[*toolpath.Toolpath](s, h, "toolpath")
}

// Release frees the result behind h. Releasing twice is an error.
func (s *Session) Release(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[h]; !ok {
		return invalidHandle(h, "handle is unknown or released", "any")
	}
	delete(s.objects, h)
	return nil
}

// Len returns the number of live handles.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Close releases every result. The session cannot be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs.WithTag("released", len(s.objects)).Debug("pipeline session closed")
	s.objects = nil
	s.closed = true
}

func (s *Session) store(v any) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Handle{}, errors.New("session is closed").
			WithType(ErrTypeInvalidHandle)
	}
	h := Handle(uuid.New())
	s.objects[h] = v
	return h, nil
}

func lookup[T any](s *Session, h Handle, kind string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	v, ok := s.objects[h]
	if !ok {
		return zero, invalidHandle(h, "handle is unknown or released", kind)
	}
	t, ok := v.(T)
	if !ok {
		return zero, invalidHandle(h, "handle refers to another kind of result", kind)
	}
	return t, nil
}

func invalidHandle(h Handle, msg, want string) error {
	return errors.New(msg).
		WithType(ErrTypeInvalidHandle).
		WithTag("handle", h.String()).
		WithTag("want", want)
}
