// Package parse turns archived Hansard pages into speaker-attributed speech.
//
// Parsing is a chain of stages ordered from the most specific format revision
// to the most general fallback. Each stage either parses the page or reports
// internalerr.ErrUnsupported, in which case the next stage is tried:
//
//	chain := parse.NewChain(parse.NewRevision(1901, 1988), parse.NewFallback())
//	res, err := chain.Parse(page)
//	if errors.Is(err, internalerr.ErrChainExhausted) {
//		// no stage recognised the page
//	}
package parse

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/cognicore/hansard/pkg/hansard/internalerr"
)

// Stage is one parsing strategy in a Chain.
//
// Attempt returns an error wrapping internalerr.ErrUnsupported when the page
// does not have the shape the stage understands. Any other error, a panic, or
// a Result that fails Validate counts as an unexpected failure of the stage.
type Stage interface {
	Name() string
	Attempt(doc string) (Result, error)
}

type funcStage struct {
	name string
	fn   func(doc string) (Result, error)
}

func (s funcStage) Name() string                       { return s.name }
func (s funcStage) Attempt(doc string) (Result, error) { return s.fn(doc) }

// StageFunc adapts a function to the Stage interface.
func StageFunc(name string, fn func(doc string) (Result, error)) Stage {
	return funcStage{name: name, fn: fn}
}

// Chain tries its stages in order and returns the first successful result.
// A Chain holds no mutable state and is safe for concurrent use.
type Chain struct {
	stages []Stage
}

// NewChain creates a chain that tries stages in the given order. Nil stages
// are dropped.
func NewChain(stages ...Stage) *Chain {
	c := &Chain{stages: make([]Stage, 0, len(stages))}
	for _, s := range stages {
		if s != nil {
			c.stages = append(c.stages, s)
		}
	}
	return c
}

// DefaultChain returns the 1901-1988 revision stage followed by the generic
// fallback.
func DefaultChain() *Chain {
	return NewChain(NewRevision(1901, 1988), NewFallback())
}

// Stages returns the stage names in the order they are tried.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	return names
}

// Parse runs doc through the chain.
func (c *Chain) Parse(doc string) (Result, error) {
	return c.ParseContext(context.Background(), doc)
}

// ParseContext runs doc through the chain, checking ctx between stages.
// When every stage fails the error is an *ExhaustedError.
func (c *Chain) ParseContext(ctx context.Context, doc string) (Result, error) {
	exhausted := &ExhaustedError{}
	for _, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		exhausted.Stages = append(exhausted.Stages, stage.Name())

		res, trace, err := attempt(stage, doc)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, internalerr.ErrUnsupported) {
			continue
		}
		// Unexpected failures are swallowed so a broken stage never hides
		// the stages after it; only the last one is kept for diagnostics.
		exhausted.Cause = fmt.Errorf("stage %s: %w", stage.Name(), err)
		exhausted.Trace = trace
	}
	return Result{}, exhausted
}

func attempt(stage Stage, doc string) (res Result, trace []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			trace = debug.Stack()
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	res, err = stage.Attempt(doc)
	if err != nil {
		return Result{}, nil, err
	}
	if err := res.Validate(); err != nil {
		return Result{}, nil, err
	}
	return res, nil, nil
}

// ExhaustedError reports that no stage could parse a document.
// It matches internalerr.ErrChainExhausted under errors.Is.
type ExhaustedError struct {
	// Stages lists the stages that were tried, in order.
	Stages []string
	// Cause is the last unexpected stage failure, nil if every stage
	// reported the document as unsupported.
	Cause error
	// Trace is the stack captured when Cause came from a panic.
	Trace []byte
}

func (e *ExhaustedError) Error() string {
	msg := internalerr.ErrChainExhausted.Error()
	if len(e.Stages) > 0 {
		msg += " (tried " + strings.Join(e.Stages, ", ") + ")"
	}
	if e.Cause != nil {
		msg += ": unexpected error while parsing: " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is internalerr.ErrChainExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == internalerr.ErrChainExhausted
}

// Unwrap returns the last unexpected failure, if any.
func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}
