package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heptonion/conlog/internal/testgraph"
	"github.com/heptonion/conlog/pkg/conlog"
)

// walks drains a walkIter.
func walks(g *conlog.Graph, length int) ([][]int, error) {
	it := newWalkIter(g, length)
	var out [][]int
	for {
		walk, err := it.Next()
		if err != nil || walk == nil {
			return out, err
		}
		out = append(out, walk)
	}
}

// enumerate lists walks of the given length by depth-first search.
func enumerate(g *conlog.Graph, length int) [][]int {
	var out [][]int
	var visit func(walk []int)
	visit = func(walk []int) {
		n := walk[len(walk)-1]
		if len(walk) == length+1 {
			if n == g.TerminalIndex() {
				out = append(out, append([]int(nil), walk...))
			}
			return
		}
		if n == g.TerminalIndex() {
			return
		}
		for _, next := range g.NeighborIndices(n) {
			if len(walk) >= 2 && walk[len(walk)-2] == next {
				continue
			}
			visit(append(walk, next))
		}
	}
	visit([]int{g.InitialIndex()})
	return out
}

func TestWalks(t *testing.T) {
	type tc struct {
		Name   string
		Graph  *conlog.Graph
		Length int
		Walks  [][]int
	}

	for _, tt := range []tc{
		{Name: "line", Graph: testgraph.Line(1), Length: 2, Walks: [][]int{{0, 1, 2}}},
		{Name: "line too short", Graph: testgraph.Line(1), Length: 1},
		{Name: "line too long", Graph: testgraph.Line(1), Length: 4},
		{Name: "loop exit", Graph: testgraph.Loop(1), Length: 1, Walks: [][]int{{0, 3}}},
		{Name: "loop once", Graph: testgraph.Loop(1), Length: 4, Walks: [][]int{{0, 1, 2, 0, 3}, {0, 2, 1, 0, 3}}},
		{Name: "loop partial", Graph: testgraph.Loop(1), Length: 3},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			walks, err := walks(tt.Graph, tt.Length)
			require.NoError(t, err)
			assert.Equal(t, tt.Walks, walks)
		})
	}
}

func TestWalksMatchEnumeration(t *testing.T) {
	for seed := int64(0); seed < 6; seed++ {
		g := testgraph.Random(seed, 6)
		for length := 1; length <= 7; length++ {
			got, err := walks(g, length)
			require.NoError(t, err)
			assert.ElementsMatch(t, enumerate(g, length), got, "seed %d length %d", seed, length)
			assert.IsIncreasing(t, keys(got), "seed %d length %d", seed, length)
		}
	}
}

// keys renders walks so that string order matches lexicographic order
// of node indices on small graphs.
func keys(walks [][]int) []string {
	out := make([]string, len(walks))
	for i, w := range walks {
		b := make([]byte, len(w))
		for t, n := range w {
			b[t] = byte('a' + n)
		}
		out[i] = string(b)
	}
	return out
}

func TestWalkIterIsLazy(t *testing.T) {
	it := newWalkIter(testgraph.Clique(7), 9)
	first, err := it.Next()
	require.NoError(t, err)
	second, err := it.Next()
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 3, 4, 2, 3, 4, 2, 8, 1}, first)
	assert.Equal(t, []int{0, 2, 3, 4, 2, 3, 4, 5, 8, 1}, second)
}
