package engine

import (
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/job"
)

// DefaultTimeout is the limit for a single evaluation.
const DefaultTimeout = 5 * time.Second

// Error types of fatal evaluation failures.
const (
	ErrTypeTimeout    = "eval-timeout"
	ErrTypeSuperseded = "eval-superseded"
	ErrTypePanic      = "eval-panic"
)

type evalResult struct {
	job    *job.Job
	errors []EvalError
	err    error
}

// waitWithTimeout waits for the result of evaluation gen. A result that
// arrives after a newer evaluation started is discarded.
//
// On timeout the evaluating goroutine keeps running; its result lands in
// the buffered channel and is dropped.
func waitWithTimeout(
	ch <-chan evalResult,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*job.Job, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, errors.New("evaluation superseded by a newer request").
				WithType(ErrTypeSuperseded).
				WithTag("generation", gen).
				WithTag("current", current)
		}
		return res.job, res.errors, res.err

	case <-timer.C:
		return nil, nil, errors.New("evaluation timed out").
			WithType(ErrTypeTimeout).
			WithTag("timeout", timeout)
	}
}
