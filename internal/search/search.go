// Package search implements the default solving strategy: a resumable
// breadth-first search that walks backward from Terminal to Initial.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/heptonion/conlog/internal/bounds"
	"github.com/heptonion/conlog/pkg/conlog"
	"github.com/heptonion/conlog/pkg/conlog/evaluator"
)

const Name = "bfs"

var ErrInvalidLimit = errors.New("limit must be non-negative or Unbounded")

// state is one entry of the search arena. Entries are appended in
// enqueue order and never modified, so the arena doubles as the FIFO
// queue and as the shared history: parent is the index of the state
// this one was expanded from.
type state struct {
	node   int
	last   int
	parent int
	depth  int
	values conlog.Values
}

// Searcher is a resumable backward breadth-first search over a graph.
type Searcher struct {
	graph  *conlog.Graph
	bounds bounds.Table
	limit  int
	tracer conlog.Tracer
	fixed  []conlog.Binding

	arena []state
	head  int
	stats conlog.Stats
	err   error
}

var _ conlog.Solutions = &Searcher{}

// New returns a Searcher positioned at Terminal.
func New(g *conlog.Graph, options ...Option) (*Searcher, error) {
	s := Searcher{graph: g, limit: conlog.DefaultLimit, fixed: g.Fixed()}
	for _, option := range append(options, defaults...) {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	s.arena = append(s.arena, state{
		node:   g.TerminalIndex(),
		last:   -1,
		parent: -1,
		values: g.Zero(),
	})
	return &s, nil
}

type Option func(s *Searcher) error

// WithLimit caps the number of states dequeued over the lifetime of
// the Searcher. conlog.Unbounded disables the cap.
func WithLimit(n int) Option {
	return func(s *Searcher) error {
		if n < 0 && n != conlog.Unbounded {
			return fmt.Errorf("%w: %d", ErrInvalidLimit, n)
		}
		s.limit = n
		return nil
	}
}

// WithBounds replaces the bounds table computed from the graph.
func WithBounds(t bounds.Table) Option {
	return func(s *Searcher) error {
		s.bounds = t
		return nil
	}
}

func WithTracer(t conlog.Tracer) Option {
	return func(s *Searcher) error {
		s.tracer = t
		return nil
	}
}

var defaults = []Option{
	func(s *Searcher) error {
		if s.bounds == nil {
			s.bounds = bounds.Analyze(s.graph)
		}
		return nil
	},
	func(s *Searcher) error {
		if s.tracer == nil {
			s.tracer = conlog.DefaultTracer{}
		}
		return nil
	},
}

func (s *Searcher) Stats() conlog.Stats {
	return s.stats
}

// Next resumes the search and returns the next solution.
func (s *Searcher) Next(ctx context.Context) (conlog.Solution, error) {
	if s.err != nil {
		return conlog.Solution{}, s.err
	}
	for {
		if s.head == len(s.arena) {
			s.err = conlog.ErrExhausted
			return conlog.Solution{}, s.err
		}
		if s.limit != conlog.Unbounded && s.stats.Dequeued >= s.limit {
			s.err = conlog.ErrLimitReached
			return conlog.Solution{}, s.err
		}
		select {
		case <-ctx.Done():
			return conlog.Solution{}, ctx.Err()
		default:
		}

		i := s.head
		s.head++
		s.stats.Dequeued++
		s.tracer.Trace(position{s: s, i: i})

		solution, found, err := s.goal(i)
		if err != nil {
			s.err = err
			return conlog.Solution{}, err
		}
		if err := s.expand(i); err != nil {
			s.err = err
			return conlog.Solution{}, err
		}
		if found {
			s.stats.Solutions++
			return solution, nil
		}
	}
}

// goal tests the state at i and certifies it if it matches.
func (s *Searcher) goal(i int) (conlog.Solution, bool, error) {
	st := s.arena[i]
	if st.node != s.graph.InitialIndex() {
		return conlog.Solution{}, false, nil
	}
	for _, b := range s.fixed {
		if st.values[b.Name] != b.Value {
			return conlog.Solution{}, false, nil
		}
	}

	path := s.path(i)
	solution, err := evaluator.Evaluate(s.graph, path, st.values)
	if err != nil {
		return conlog.Solution{}, false, &conlog.InconsistencyError{Strategy: Name, Path: path, Err: err}
	}
	return solution, true, nil
}

// path returns the walk from Initial to Terminal ending at state i.
// The arena links each state to the one it was reached from, which is
// the next node of the forward walk.
func (s *Searcher) path(i int) []conlog.Node {
	var path []conlog.Node
	for ; i >= 0; i = s.arena[i].parent {
		path = append(path, s.graph.At(s.arena[i].node))
	}
	return path
}

// expand enqueues the successors of the state at i.
func (s *Searcher) expand(i int) error {
	st := s.arena[i]
	if st.node == s.graph.TerminalIndex() && st.last >= 0 {
		return nil
	}

	values, err := conlog.Apply(s.graph.At(st.node).Op, st.values, true)
	if err != nil {
		return fmt.Errorf("node %q: %w", s.graph.At(st.node).Name, err)
	}
	if !s.bounds.Admits(values) {
		s.stats.Pruned++
		return nil
	}

	s.stats.Expanded++
	for _, next := range s.graph.NeighborIndices(st.node) {
		if next == st.last {
			continue
		}
		s.arena = append(s.arena, state{
			node:   next,
			last:   st.node,
			parent: i,
			depth:  st.depth + 1,
			values: values,
		})
	}
	return nil
}

type position struct {
	s *Searcher
	i int
}

func (p position) Node() conlog.Node {
	return p.s.graph.At(p.s.arena[p.i].node)
}

func (p position) Last() (conlog.Node, bool) {
	last := p.s.arena[p.i].last
	if last < 0 {
		return conlog.Node{}, false
	}
	return p.s.graph.At(last), true
}

func (p position) Values() conlog.Values {
	return p.s.arena[p.i].values.Clone()
}

func (p position) Depth() int {
	return p.s.arena[p.i].depth
}
