// Package interpret implements the forward-interpretation strategy.
//
// Instead of searching backward from Terminal, it guesses a free
// assignment and a walk and runs the program forward along the walk.
// Candidates are ordered by depth d: a walk of length L paired with an
// assignment whose largest absolute value is r is tried at depth
// max(L, r), so every pair is tried exactly once. Walks of a given
// length are enumerated with a SAT solver.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/heptonion/conlog/internal/bounds"
	"github.com/heptonion/conlog/pkg/conlog"
	"github.com/heptonion/conlog/pkg/conlog/evaluator"
)

const Name = "interpret"

var ErrInvalidLimit = errors.New("limit must be non-negative or Unbounded")

// Searcher is a resumable forward interpreter. Every preparation of a
// (depth, length) stage, every replay of a candidate, and the pull that
// finds a length has no walks left counts as one dequeue against the
// limit. Walks are pulled from the solver one at a time as candidates
// need them.
type Searcher struct {
	graph  *conlog.Graph
	bounds bounds.Table
	limit  int

	free     []string
	low      []int
	high     []int
	finite   bool
	radius   int
	maxLen   int
	frontier []pair
	step     int
	lengths  map[int]*walkSet

	depth   int
	length  int
	assigns [][]int
	set     *walkSet
	ai, wi  int

	stats conlog.Stats
	err   error
}

var _ conlog.Solutions = &Searcher{}

// walkSet holds the walks of one length pulled so far. iter is nil
// once every walk has been pulled.
type walkSet struct {
	iter  *walkIter
	found [][]int
}

// pair is a position in a walk prefix: the current node and the node
// just departed, or -1 at the start.
type pair struct {
	node, last int
}

func New(g *conlog.Graph, options ...Option) (*Searcher, error) {
	s := Searcher{
		graph:    g,
		limit:    conlog.DefaultLimit,
		free:     g.Free(),
		maxLen:   -1,
		frontier: []pair{{node: g.InitialIndex(), last: -1}},
		lengths:  make(map[int]*walkSet),
	}
	for _, option := range options {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	if s.bounds == nil {
		s.bounds = bounds.Analyze(g)
	}

	s.finite = true
	for _, name := range s.free {
		i := s.bounds.Get(name)
		lo, hi := i.Low, i.High
		if i.LowInf || i.HighInf {
			s.finite = false
		}
		if i.LowInf {
			lo = minInt
		}
		if i.HighInf {
			hi = maxInt
		}
		s.low = append(s.low, lo)
		s.high = append(s.high, hi)
		if s.finite && !i.Empty() {
			s.radius = max(s.radius, abs(lo), abs(hi))
		}
	}
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

func (s *Searcher) Next(ctx context.Context) (conlog.Solution, error) {
	if s.err != nil {
		return conlog.Solution{}, s.err
	}
	for {
		if s.limit != conlog.Unbounded && s.stats.Dequeued >= s.limit {
			s.err = conlog.ErrLimitReached
			return conlog.Solution{}, s.err
		}
		if err := ctx.Err(); err != nil {
			return conlog.Solution{}, err
		}

		s.stats.Dequeued++
		if s.ai >= len(s.assigns) {
			if err := s.advance(); err != nil {
				s.err = err
				return conlog.Solution{}, err
			}
			continue
		}

		walk, err := s.nextWalk()
		if err != nil {
			s.err = err
			return conlog.Solution{}, err
		}
		if walk == nil {
			continue
		}
		assign := s.assigns[s.ai]
		s.wi++
		if s.set.iter == nil && s.wi == len(s.set.found) {
			s.wi = 0
			s.ai++
		}

		solution, err := evaluator.Evaluate(s.graph, s.path(walk), s.values(assign))
		if errors.Is(err, evaluator.ErrNotCertified) {
			s.stats.Pruned++
			continue
		}
		if err != nil {
			s.err = err
			return conlog.Solution{}, err
		}
		s.stats.Solutions++
		return solution, nil
	}
}

// advance moves to the next (depth, length) stage.
func (s *Searcher) advance() error {
	s.length++
	if s.length > s.depth {
		s.depth++
		s.length = 1
		s.grow()
		if s.maxLen >= 0 && s.finite && s.depth > max(s.maxLen, s.radius) {
			return conlog.ErrExhausted
		}
	}

	s.assigns, s.set, s.ai, s.wi = nil, nil, 0, 0
	if s.maxLen >= 0 && s.length > s.maxLen {
		return nil
	}
	set, ok := s.lengths[s.length]
	if !ok {
		set = &walkSet{iter: newWalkIter(s.graph, s.length)}
		s.lengths[s.length] = set
	}
	if set.iter == nil && len(set.found) == 0 {
		return nil
	}
	s.set = set
	s.assigns = s.assignments()
	return nil
}

// nextWalk returns the walk to replay with the current assignment,
// pulling one more from the solver once the walks found so far have
// been used. When the pull shows the length has no walks left it
// returns nil and moves on to the next assignment, or past the stage if
// the length has no walks at all.
func (s *Searcher) nextWalk() ([]int, error) {
	set := s.set
	if s.wi < len(set.found) {
		return set.found[s.wi], nil
	}
	walk, err := set.iter.Next()
	if err != nil {
		return nil, fmt.Errorf("enumerating walks of length %d: %w", s.length, err)
	}
	if walk != nil {
		set.found = append(set.found, walk)
		s.stats.Expanded++
		return walk, nil
	}
	set.iter = nil
	s.wi = 0
	s.ai++
	if len(set.found) == 0 {
		s.ai = len(s.assigns)
	}
	return nil, nil
}

// grow extends the walk-prefix frontier to the current depth. Once the
// frontier empties, maxLen is the length of the longest possible walk.
func (s *Searcher) grow() {
	for s.maxLen < 0 && s.step <= s.depth {
		seen := make(map[pair]struct{})
		var next []pair
		for _, p := range s.frontier {
			if p.node == s.graph.TerminalIndex() {
				continue
			}
			for _, n := range s.graph.NeighborIndices(p.node) {
				q := pair{node: n, last: p.node}
				if n == p.last {
					continue
				}
				if _, ok := seen[q]; ok {
					continue
				}
				seen[q] = struct{}{}
				next = append(next, q)
			}
		}
		sort.Slice(next, func(a, b int) bool {
			if next[a].node != next[b].node {
				return next[a].node < next[b].node
			}
			return next[a].last < next[b].last
		})
		if len(next) == 0 {
			s.maxLen = s.step
		}
		s.frontier = next
		s.step++
	}
}

// assignments returns the free assignments tried with walks of the
// current length at the current depth, in lexicographic order: all
// assignments within radius depth when the walks are that long, and
// only those on the boundary otherwise.
func (s *Searcher) assignments() [][]int {
	d := s.depth
	lo := make([]int, len(s.free))
	hi := make([]int, len(s.free))
	for i := range s.free {
		lo[i], hi[i] = max(s.low[i], -d), min(s.high[i], d)
		if lo[i] > hi[i] {
			return nil
		}
	}

	var out [][]int
	cur := append([]int(nil), lo...)
	for {
		onBoundary := false
		for _, v := range cur {
			if abs(v) == d {
				onBoundary = true
				break
			}
		}
		if s.length == d || onBoundary {
			out = append(out, append([]int(nil), cur...))
		}

		i := len(cur) - 1
		for ; i >= 0; i-- {
			if cur[i] < hi[i] {
				cur[i]++
				break
			}
			cur[i] = lo[i]
		}
		if i < 0 {
			return out
		}
	}
}

func (s *Searcher) path(walk []int) []conlog.Node {
	path := make([]conlog.Node, len(walk))
	for t, i := range walk {
		path[t] = s.graph.At(i)
	}
	return path
}

func (s *Searcher) values(assign []int) conlog.Values {
	v := make(conlog.Values, len(s.free))
	for i, name := range s.free {
		v[name] = assign[i]
	}
	for _, b := range s.graph.Fixed() {
		v[b.Name] = b.Value
	}
	return v
}

const (
	maxInt = int(^uint(0) >> 1)
	minInt = -maxInt - 1
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
