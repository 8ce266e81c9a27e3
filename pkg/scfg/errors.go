package scfg

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntry is returned when a dominator computation finds no node
	// without predecessors (or, for postdominators, without successors).
	ErrNoEntry = errors.New("no entry points: dominator algorithm cannot be seeded")

	// ErrHead is returned when a graph does not have exactly one head.
	ErrHead = errors.New("graph does not have a unique head")

	// ErrEmptyGraph is returned when restructuring an empty graph.
	ErrEmptyGraph = errors.New("empty graph")

	// ErrUnsupported is returned for constructs the restructurer has no
	// strategy for, such as loops entered through more than one header.
	ErrUnsupported = errors.New("unsupported control flow")

	// ErrInvariant is returned when an internal assumption does not hold.
	ErrInvariant = errors.New("invariant violation")
)

// HeadError reports the candidate heads found by FindHead.
type HeadError struct {
	Heads []Label
}

func (e *HeadError) Error() string {
	return fmt.Sprintf("expected exactly one head, found %d %v", len(e.Heads), e.Heads)
}

func (e *HeadError) Unwrap() error {
	return ErrHead
}

// LoopError reports a loop that cannot be extracted.
type LoopError struct {
	Nodes   []Label
	Headers []Label
}

func (e *LoopError) Error() string {
	if len(e.Headers) == 0 {
		return fmt.Sprintf("loop %v has no header reachable from outside", e.Nodes)
	}
	return fmt.Sprintf("loop %v has %d headers %v", e.Nodes, len(e.Headers), e.Headers)
}

func (e *LoopError) Unwrap() error {
	return ErrUnsupported
}

func invariantf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
