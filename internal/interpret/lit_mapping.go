package interpret

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/heptonion/conlog/pkg/conlog"
)

const satisfiable = 1

// litMapping encodes the walks of a fixed length through a graph as a
// SAT formula. lits[t][n] holds when the walk is at node n after t
// steps.
type litMapping struct {
	graph  *conlog.Graph
	length int
	lits   [][]z.Lit
	c      *logic.C
	errs   []error
}

// newLitMapping builds the circuit describing every walk of the given
// length that starts at Initial, ends at Terminal, visits Terminal only
// at its end, and never immediately reverses an edge.
func newLitMapping(g *conlog.Graph, length int) *litMapping {
	d := litMapping{
		graph:  g,
		length: length,
		lits:   make([][]z.Lit, length+1),
		c:      logic.NewC(),
	}
	n := g.Len()
	for t := range d.lits {
		d.lits[t] = make([]z.Lit, n)
		for i := range d.lits[t] {
			d.lits[t][i] = d.c.Lit()
		}
	}
	return &d
}

// Root returns a literal that holds exactly for valid walks.
func (d *litMapping) Root() z.Lit {
	g, c := d.graph, d.c
	initial, terminal := g.InitialIndex(), g.TerminalIndex()

	parts := []z.Lit{d.lits[0][initial], d.lits[d.length][terminal]}
	for t, step := range d.lits {
		// exactly one node per step
		parts = append(parts, c.Ors(step...), c.CardSort(append([]z.Lit(nil), step...)).Leq(1))
		if t < d.length {
			parts = append(parts, step[terminal].Not())
		}
	}

	for t := 0; t < d.length; t++ {
		for i := range d.lits[t] {
			nbrs := g.NeighborIndices(i)
			if len(nbrs) == 0 {
				parts = append(parts, d.lits[t][i].Not())
				continue
			}
			next := make([]z.Lit, len(nbrs))
			for k, j := range nbrs {
				next[k] = d.lits[t+1][j]
			}
			parts = append(parts, c.Or(d.lits[t][i].Not(), c.Ors(next...)))

			if t == 0 {
				continue
			}
			// no immediate backtrack: prev -> i -> prev is forbidden
			for _, j := range nbrs {
				parts = append(parts, c.Ors(d.lits[t-1][j].Not(), d.lits[t][i].Not(), d.lits[t+1][j].Not()))
			}
		}
	}
	return c.Ands(parts...)
}

// WalkOf reads the walk from a satisfying model of g.
func (d *litMapping) WalkOf(g inter.Model) []int {
	walk := make([]int, len(d.lits))
	for t, step := range d.lits {
		walk[t] = -1
		for i, m := range step {
			if g.Value(m) {
				walk[t] = i
				break
			}
		}
		if walk[t] < 0 {
			d.errs = append(d.errs, fmt.Errorf("no node selected at step %d", t))
		}
	}
	return walk
}

// Error returns a single error value that is an aggregation of all
// errors encountered during a litMapping's lifetime, or nil if there have
// been no errors. A non-nil return value likely indicates a problem
// with the encoding.
func (d *litMapping) Error() error {
	if len(d.errs) == 0 {
		return nil
	}
	s := make([]string, len(d.errs))
	for i, err := range d.errs {
		s[i] = err.Error()
	}
	return fmt.Errorf("%d errors encountered: %s", len(s), strings.Join(s, ", "))
}

// walkIter yields the walks of one length in lexicographic order of
// node index. It extends a prefix depth first and asks the solver, under
// the prefix as assumptions, whether a candidate step can still be
// completed into a walk, so every prefix it keeps leads to at least one
// walk and each call to Next does a bounded amount of work.
type walkIter struct {
	d      *litMapping
	s      *gini.Gini
	frames []frame
}

// frame is one step of the current prefix: the node chosen for it and
// the candidates for the following step not yet tried.
type frame struct {
	node int
	nbrs []int
	k    int
}

func newWalkIter(g *conlog.Graph, length int) *walkIter {
	d := newLitMapping(g, length)
	root := d.Root()

	s := gini.New()
	d.c.ToCnf(s)
	s.Add(root)
	s.Add(z.LitNull)

	it := &walkIter{d: d, s: s}
	it.push(g.InitialIndex())
	return it
}

// push extends the prefix with node n if some walk still starts with
// the extended prefix.
func (it *walkIter) push(n int) bool {
	t := len(it.frames)
	for i, f := range it.frames {
		it.s.Assume(it.d.lits[i][f.node])
	}
	it.s.Assume(it.d.lits[t][n])
	if it.s.Solve() != satisfiable {
		return false
	}

	f := frame{node: n}
	if t < it.d.length {
		f.nbrs = append([]int(nil), it.d.graph.NeighborIndices(n)...)
		sort.Ints(f.nbrs)
	}
	it.frames = append(it.frames, f)
	return true
}

// Next returns the next walk, or nil once every walk has been returned.
func (it *walkIter) Next() ([]int, error) {
	for len(it.frames) > 0 {
		top := &it.frames[len(it.frames)-1]
		if top.k == len(top.nbrs) {
			it.frames = it.frames[:len(it.frames)-1]
			continue
		}
		n := top.nbrs[top.k]
		top.k++
		if !it.push(n) || len(it.frames) <= it.d.length {
			continue
		}
		// the whole walk was assumed, so the model is exactly that walk
		walk := it.d.WalkOf(it.s)
		if err := it.d.Error(); err != nil {
			return nil, err
		}
		return walk, nil
	}
	return nil, nil
}
