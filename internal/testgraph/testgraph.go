// Package testgraph builds small program graphs shared by tests and
// benchmarks.
package testgraph

import (
	"fmt"
	"math/rand"

	"github.com/heptonion/conlog/pkg/conlog"
)

// Must panics if err is non-nil.
func Must(g *conlog.Graph, err error) *conlog.Graph {
	if err != nil {
		panic(err)
	}
	return g
}

// Line is I - S - T where S subtracts 1 from x and Initial fixes x.
// It has a single solution when x is 1 and none otherwise.
func Line(x int) *conlog.Graph {
	return Must(conlog.NewGraph(
		[]conlog.Node{
			{Name: "I", Op: conlog.Initial{Fixed: []conlog.Binding{{Name: "x", Value: x}}}},
			{Name: "S", Op: conlog.Subtraction{LHS: "x", RHS: conlog.Lit(1)}},
			{Name: "T", Op: conlog.Terminal{}},
		},
		[]conlog.Edge{{A: "I", B: "S"}, {A: "S", B: "T"}},
	))
}

// Loop is a triangle I - A - B - I with A subtracting 1 from n, plus an
// exit I - T. Initial fixes n, so every solution goes round the loop n
// times in a single direction.
func Loop(n int) *conlog.Graph {
	return Must(conlog.NewGraph(
		[]conlog.Node{
			{Name: "I", Op: conlog.Initial{Fixed: []conlog.Binding{{Name: "n", Value: n}}}},
			{Name: "A", Op: conlog.Subtraction{LHS: "n", RHS: conlog.Lit(1)}},
			{Name: "B", Op: conlog.NoOp{}},
			{Name: "T", Op: conlog.Terminal{}},
		},
		[]conlog.Edge{{A: "I", B: "A"}, {A: "A", B: "B"}, {A: "B", B: "I"}, {A: "I", B: "T"}},
	))
}

// Double has a free variable t that must equal twice the fixed n. The
// only way out of Initial is a loop that subtracts 1 from n and 2 from
// t on each turn, and prints t before reaching Terminal.
func Double(n int) *conlog.Graph {
	return Must(conlog.NewGraph(
		[]conlog.Node{
			{Name: "start", Op: conlog.Initial{Free: []string{"t"}, Fixed: []conlog.Binding{{Name: "n", Value: n}}}},
			{Name: "say", Op: conlog.Output{Arg: conlog.Var("t")}},
			{Name: "decr", Op: conlog.Subtraction{LHS: "n", RHS: conlog.Lit(1)}},
			{Name: "twice", Op: conlog.Subtraction{LHS: "t", RHS: conlog.Lit(2)}},
			{Name: "back", Op: conlog.NoOp{}},
			{Name: "end", Op: conlog.Terminal{}},
		},
		[]conlog.Edge{
			{A: "start", B: "say"},
			{A: "say", B: "decr"},
			{A: "decr", B: "twice"},
			{A: "twice", B: "back"},
			{A: "back", B: "say"},
			{A: "say", B: "end"},
		},
	))
}

// Clique joins n no-op nodes k0..k(n-1) pairwise, with Initial attached
// to k0 and Terminal to the last. Initial fixes x to 1 and nothing
// changes it, so no walk is a solution while the number of walks grows
// exponentially with their length.
func Clique(n int) *conlog.Graph {
	nodes := []conlog.Node{
		{Name: "I", Op: conlog.Initial{Fixed: []conlog.Binding{{Name: "x", Value: 1}}}},
		{Name: "T", Op: conlog.Terminal{}},
	}
	var edges []conlog.Edge
	for i := 0; i < n; i++ {
		nodes = append(nodes, conlog.Node{Name: fmt.Sprintf("k%d", i), Op: conlog.NoOp{}})
		for j := 0; j < i; j++ {
			edges = append(edges, conlog.Edge{A: fmt.Sprintf("k%d", j), B: fmt.Sprintf("k%d", i)})
		}
	}
	edges = append(edges, conlog.Edge{A: "I", B: "k0"}, conlog.Edge{A: fmt.Sprintf("k%d", n-1), B: "T"})
	return Must(conlog.NewGraph(nodes, edges))
}

// Random returns a connected graph of size intermediate nodes with one
// free and two fixed variables. The same seed yields the same graph.
func Random(seed int64, size int) *conlog.Graph {
	random := rand.New(rand.NewSource(seed)) //nolint:gosec // G404: not security-sensitive.
	vars := []string{"a", "b", "c"}

	nodes := []conlog.Node{
		{Name: "I", Op: conlog.Initial{
			Free:  []string{"a"},
			Fixed: []conlog.Binding{{Name: "b", Value: random.Intn(3)}, {Name: "c", Value: random.Intn(3)}},
		}},
		{Name: "T", Op: conlog.Terminal{}},
	}
	name := func(i int) string {
		return fmt.Sprintf("n%d", i)
	}
	for i := 0; i < size; i++ {
		lhs := vars[random.Intn(len(vars))]
		rhs := conlog.Lit(random.Intn(3) + 1)
		if random.Float64() < .3 {
			v := lhs
			for v == lhs {
				v = vars[random.Intn(len(vars))]
			}
			rhs = conlog.Var(v)
		}
		var op conlog.Operation
		switch random.Intn(6) {
		case 0:
			op = conlog.NoOp{}
		case 1:
			op = conlog.Addition{LHS: lhs, RHS: rhs}
		case 2, 3:
			op = conlog.Subtraction{LHS: lhs, RHS: rhs}
		case 4:
			op = conlog.ConditionalIncrement{LHS: lhs, RHS: rhs}
		case 5:
			op = conlog.ConditionalDecrement{LHS: lhs, RHS: rhs}
		}
		nodes = append(nodes, conlog.Node{Name: name(i), Op: op})
	}

	edges := []conlog.Edge{{A: "I", B: name(0)}, {A: name(size - 1), B: "T"}}
	for i := 1; i < size; i++ {
		edges = append(edges, conlog.Edge{A: name(i - 1), B: name(i)})
	}
	for i := 0; i < size/2; i++ {
		a, b := random.Intn(size), random.Intn(size)
		if a != b {
			edges = append(edges, conlog.Edge{A: name(a), B: name(b)})
		}
	}
	return Must(conlog.NewGraph(nodes, edges))
}
