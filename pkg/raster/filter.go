package raster

import (
	"fmt"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Filter selects which faces take part in rasterization and which hit is
// kept when a ray crosses several of them.
type Filter int

const (
	// UpwardFacing keeps faces with a positive normal Z and the highest
	// hit: the top surface of a terrain.
	UpwardFacing Filter = iota
	// DownwardFacing keeps faces with a negative normal Z and the lowest
	// hit: the cutting surface of a tool.
	DownwardFacing
	// None keeps every face and the highest hit.
	None
)

func (f Filter) String() string {
	switch f {
	case UpwardFacing:
		return "upward-facing"
	case DownwardFacing:
		return "downward-facing"
	case None:
		return "none"
	default:
		return fmt.Sprintf("Filter(%d)", int(f))
	}
}

// ParseFilter converts a name such as "up", "downward-facing" or "none"
// into a Filter. A blank name is an error, not None.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "upward", "upward-facing", "upward_facing":
		return UpwardFacing, nil
	case "down", "downward", "downward-facing", "downward_facing":
		return DownwardFacing, nil
	case "none", "all":
		return None, nil
	}
	return 0, errors.New("invalid filter, expected up, down or none").
		WithType(ErrTypeInvalidInput).
		WithTag("filter", s)
}

// rule is a Filter expressed as data: which normal signs participate and
// how two hits on the same ray compare.
type rule struct {
	accept func(normalZ float64) bool
	better func(z, best float64) bool
}

var rules = map[Filter]rule{
	UpwardFacing: {
		accept: func(nz float64) bool { return nz > 0 },
		better: higher,
	},
	DownwardFacing: {
		accept: func(nz float64) bool { return nz < 0 },
		better: lower,
	},
	None: {
		accept: func(float64) bool { return true },
		better: higher,
	},
}

func higher(z, best float64) bool { return z > best }
func lower(z, best float64) bool  { return z < best }
