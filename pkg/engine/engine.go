// Package engine evaluates job scripts. It wraps zygomys in a sandboxed
// environment and produces a job.Job from the script source.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/contour/pkg/job"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a non-fatal error in the script itself, such as a parse
// error or a bad builtin argument.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates job scripts. It is safe for concurrent use; each call
// to Evaluate runs in a fresh sandbox so results only depend on the
// source.
type Engine struct {
	// Timeout bounds a single evaluation. Zero means DefaultTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an Engine with the default timeout.
func NewEngine() *Engine {
	return &Engine{Timeout: DefaultTimeout}
}

// Evaluate runs source and returns the job it describes.
//
//   - On success: job, nil, nil
//   - On a script error: nil, eval errors, nil
//   - On a fatal failure (timeout, panic, superseded): nil, nil, error
func (e *Engine) Evaluate(source string) (*job.Job, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	timeout := e.Timeout
	e.mu.Unlock()

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: errors.New("panic during evaluation").
					WithType(ErrTypePanic).
					WithTag("panic", fmt.Sprint(r))}
			}
		}()

		j, evalErrs, err := evaluate(source)
		ch <- evalResult{job: j, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, timeout, gen, &e.mu, &e.generation)
}

func evaluate(source string) (*job.Job, []EvalError, error) {
	j := job.New()
	if strings.TrimSpace(source) == "" {
		return j, nil, nil
	}

	// The sandbox keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, j)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	logs.WithTag("name", j.Name).
		WithTag("step", j.Step).
		WithTag("terrain", j.Terrain != nil).
		WithTag("tool", j.Tool != nil).
		Debug("job script evaluated")
	return j, nil, nil
}

// linePattern matches zygomys messages such as "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ...".
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into eval errors, extracting
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
