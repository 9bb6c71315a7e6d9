package bounds

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heptonion/conlog/internal/testgraph"
	"github.com/heptonion/conlog/pkg/conlog"
)

func graph(t *testing.T, free []string, fixed []conlog.Binding, ops ...conlog.Operation) *conlog.Graph {
	t.Helper()
	nodes := []conlog.Node{
		{Name: "I", Op: conlog.Initial{Free: free, Fixed: fixed}},
		{Name: "T", Op: conlog.Terminal{}},
	}
	edges := []conlog.Edge{}
	last := "I"
	for i, op := range ops {
		name := string(rune('A' + i))
		nodes = append(nodes, conlog.Node{Name: name, Op: op})
		edges = append(edges, conlog.Edge{A: last, B: name})
		last = name
	}
	edges = append(edges, conlog.Edge{A: last, B: "T"})
	g, err := conlog.NewGraph(nodes, edges)
	if err != nil {
		t.Fatalf("invalid graph: %v", err)
	}
	return g
}

func TestAnalyze(t *testing.T) {
	type tc struct {
		Name    string
		Graph   *conlog.Graph
		Options []Option
		Table   Table
	}

	for _, tt := range []tc{
		{
			Name:  "decreasing fixed variable",
			Graph: testgraph.Line(1),
			Table: Table{"x": {Low: 0, High: 1}},
		},
		{
			Name:  "loop counter",
			Graph: testgraph.Loop(3),
			Table: Table{"n": {Low: 0, High: 3}},
		},
		{
			Name:  "decreasing free variable",
			Graph: testgraph.Double(2),
			Table: Table{"n": {Low: 0, High: 2}, "t": {Low: 0, HighInf: true}},
		},
		{
			Name:  "increasing fixed variable",
			Graph: graph(t, nil, []conlog.Binding{{Name: "x", Value: -4}}, conlog.Addition{LHS: "x", RHS: conlog.Lit(2)}),
			Table: Table{"x": {Low: -4, High: 0}},
		},
		{
			Name:  "increasing free variable",
			Graph: graph(t, []string{"x"}, nil, conlog.ConditionalIncrement{LHS: "x", RHS: conlog.Lit(1)}),
			Table: Table{"x": {LowInf: true, High: 0}},
		},
		{
			Name:  "never written",
			Graph: graph(t, []string{"z"}, []conlog.Binding{{Name: "y", Value: 4}}),
			Table: Table{"y": Point(0), "z": Point(0)},
		},
		{
			Name: "both directions",
			Graph: graph(t, []string{"x"}, nil,
				conlog.Addition{LHS: "x", RHS: conlog.Lit(1)},
				conlog.Subtraction{LHS: "x", RHS: conlog.Lit(1)},
			),
			Table: Table{},
		},
		{
			Name:  "inert conditional",
			Graph: graph(t, []string{"x"}, nil, conlog.ConditionalDecrement{LHS: "x", RHS: conlog.Lit(-1)}),
			Table: Table{"x": Point(0)},
		},
		{
			Name: "operand sign from previous pass",
			Graph: graph(t, []string{"a"}, []conlog.Binding{{Name: "b", Value: 2}},
				conlog.Subtraction{LHS: "b", RHS: conlog.Lit(1)},
				conlog.Addition{LHS: "a", RHS: conlog.Var("b")},
			),
			Table: Table{"a": {LowInf: true, High: 0}, "b": {Low: 0, High: 2}},
		},
		{
			Name: "single pass",
			Graph: graph(t, []string{"a"}, []conlog.Binding{{Name: "b", Value: 2}},
				conlog.Subtraction{LHS: "b", RHS: conlog.Lit(1)},
				conlog.Addition{LHS: "a", RHS: conlog.Var("b")},
			),
			Options: []Option{WithMaxPasses(1)},
			Table:   Table{"b": {Low: 0, High: 2}},
		},
		{
			Name: "unreachable fixed value",
			Graph: graph(t, nil, []conlog.Binding{{Name: "x", Value: 3}},
				conlog.Addition{LHS: "x", RHS: conlog.Lit(1)},
			),
			Table: Table{"x": {Low: 3, High: 0}},
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			assert.Equal(t, tt.Table, Analyze(tt.Graph, tt.Options...))
		})
	}
}

func TestInterval(t *testing.T) {
	a := Interval{Low: -2, High: 5}
	assert.True(t, a.Contains(-2))
	assert.True(t, a.Contains(5))
	assert.False(t, a.Contains(6))
	assert.False(t, a.Empty())
	assert.True(t, Interval{Low: 1, High: 0}.Empty())
	assert.False(t, Interval{Low: 1, HighInf: true}.Empty())

	assert.Equal(t, Interval{Low: 0, High: 5}, a.Intersect(Interval{Low: 0, HighInf: true}))
	assert.Equal(t, a, a.Intersect(Full()))
	assert.Equal(t, a, Full().Intersect(a))
	assert.Equal(t, Interval{Low: 3, High: 2}, Point(2).Intersect(Point(3)))

	assert.True(t, Point(0).NonNegative())
	assert.True(t, Point(0).NonPositive())
	assert.False(t, Interval{LowInf: true, High: 0}.NonNegative())
	assert.True(t, Full().Unbounded())
	assert.True(t, Full().Contains(-1<<30))

	assert.Equal(t, "[-2, 5]", a.String())
	assert.Equal(t, "[-inf, +inf]", Full().String())
}

func TestTable(t *testing.T) {
	table := Table{"b": {Low: 0, High: 2}, "a": {LowInf: true, High: 0}}
	assert.Equal(t, "a in [-inf, 0]\nb in [0, 2]\n", table.String())
	assert.Equal(t, Full(), table.Get("c"))
	assert.True(t, table.Contains("c", 100))
	assert.False(t, table.Contains("a", 1))

	assert.True(t, table.Admits(conlog.Values{"a": -7, "b": 2, "c": 9}))
	assert.False(t, table.Admits(conlog.Values{"a": -7, "b": 3}))
	assert.True(t, Unbounded().Admits(conlog.Values{"a": 1 << 30}))
}
