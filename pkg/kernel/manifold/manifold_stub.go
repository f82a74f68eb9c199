//go:build !manifold

package manifold

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/kernel"
)

// New reports that the binary was built without Manifold.
func New() (kernel.Kernel, error) {
	return nil, errors.New("manifold kernel not available: build with -tags=manifold").
		WithType(ErrTypeUnavailable)
}
