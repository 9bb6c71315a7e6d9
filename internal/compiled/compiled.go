// Package compiled implements the backward breadth-first search over a
// flattened form of the graph. It explores states in exactly the order
// of package search and yields the same solutions, but keeps its
// frontier in parallel arrays with a single values buffer.
package compiled

import (
	"context"
	"errors"
	"fmt"

	"github.com/heptonion/conlog/internal/bounds"
	"github.com/heptonion/conlog/pkg/conlog"
	"github.com/heptonion/conlog/pkg/conlog/evaluator"
)

const Name = "compiled"

// cancelCheckInterval is the number of dequeues between context checks.
const cancelCheckInterval = 256

var ErrInvalidLimit = errors.New("limit must be non-negative or Unbounded")

// Searcher is a resumable backward breadth-first search. State i lives
// at index i of every arena slice; its values are
// vals[voff[i] : voff[i]+width].
type Searcher struct {
	prog   *program
	bounds bounds.Table
	limit  int

	node   []int32
	last   []int32
	parent []int32
	voff   []int32
	vals   []int
	width  int

	head  int
	stats conlog.Stats
	err   error
}

var _ conlog.Solutions = &Searcher{}

func New(g *conlog.Graph, options ...Option) (*Searcher, error) {
	s := Searcher{limit: conlog.DefaultLimit}
	for _, option := range options {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	if s.bounds == nil {
		s.bounds = bounds.Analyze(g)
	}
	s.prog = compile(g, s.bounds)
	s.width = len(s.prog.names)
	s.vals = make([]int, s.width)
	s.push(s.prog.terminal, -1, -1, 0)
	return &s, nil
}

type Option func(s *Searcher) error

func WithLimit(n int) Option {
	return func(s *Searcher) error {
		if n < 0 && n != conlog.Unbounded {
			return fmt.Errorf("%w: %d", ErrInvalidLimit, n)
		}
		s.limit = n
		return nil
	}
}

func WithBounds(t bounds.Table) Option {
	return func(s *Searcher) error {
		s.bounds = t
		return nil
	}
}

func (s *Searcher) Stats() conlog.Stats {
	return s.stats
}

func (s *Searcher) push(node, last, parent, voff int32) {
	s.node = append(s.node, node)
	s.last = append(s.last, last)
	s.parent = append(s.parent, parent)
	s.voff = append(s.voff, voff)
}

func (s *Searcher) Next(ctx context.Context) (conlog.Solution, error) {
	if s.err != nil {
		return conlog.Solution{}, s.err
	}
	p := s.prog
	for n := 0; ; n++ {
		if s.head == len(s.node) {
			s.err = conlog.ErrExhausted
			return conlog.Solution{}, s.err
		}
		if s.limit != conlog.Unbounded && s.stats.Dequeued >= s.limit {
			s.err = conlog.ErrLimitReached
			return conlog.Solution{}, s.err
		}
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return conlog.Solution{}, err
			}
		}

		i := s.head
		s.head++
		s.stats.Dequeued++
		node := s.node[i]
		off := int(s.voff[i])

		found := node == p.initial && p.satisfies(s.vals[off:off+s.width])
		var solution conlog.Solution
		if found {
			var err error
			if solution, err = s.certify(i); err != nil {
				s.err = err
				return conlog.Solution{}, err
			}
		}

		if node != p.terminal || s.last[i] < 0 {
			s.expand(i, node, off)
		}
		if found {
			s.stats.Solutions++
			return solution, nil
		}
	}
}

func (s *Searcher) expand(i int, node int32, off int) {
	p := s.prog
	next := len(s.vals)
	s.vals = append(s.vals, s.vals[off:off+s.width]...)
	succ := s.vals[next:]
	p.reverse(node, succ)
	if !p.admits(succ) {
		s.vals = s.vals[:next]
		s.stats.Pruned++
		return
	}

	s.stats.Expanded++
	last := s.last[i]
	for _, t := range p.targets[p.offsets[node]:p.offsets[node+1]] {
		if t == last {
			continue
		}
		s.push(t, node, int32(i), int32(next))
	}
}

func (s *Searcher) certify(i int) (conlog.Solution, error) {
	g := s.prog.graph
	var path []conlog.Node
	for j := int32(i); j >= 0; j = s.parent[j] {
		path = append(path, g.At(int(s.node[j])))
	}
	off := int(s.voff[i])
	values := s.prog.values(s.vals[off : off+s.width])
	solution, err := evaluator.Evaluate(g, path, values)
	if err != nil {
		return conlog.Solution{}, &conlog.InconsistencyError{Strategy: Name, Path: path, Err: err}
	}
	return solution, nil
}
