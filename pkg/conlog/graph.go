package conlog

import (
	"errors"
	"fmt"
	"slices"
)

// Node is a named graph vertex carrying one Operation.
type Node struct {
	Name string
	Op   Operation
}

func (n Node) String() string {
	return fmt.Sprintf("%s: %s", n.Name, n.Op)
}

// Edge is an undirected connection between two named nodes.
type Edge struct {
	A, B string
}

var (
	ErrMissingInitial    = errors.New("missing initial node")
	ErrMissingTerminal   = errors.New("missing terminal node")
	ErrDuplicateInitial  = errors.New("more than one initial node")
	ErrDuplicateTerminal = errors.New("more than one terminal node")
	ErrDuplicateNode     = errors.New("duplicate node name")
	ErrUnknownNode       = errors.New("edge refers to an unknown node")
	ErrUnknownVariable   = errors.New("undeclared variable")
	ErrFreeFixedOverlap  = errors.New("variable declared both free and fixed")
	ErrDuplicateVariable = errors.New("variable declared more than once")
	ErrSelfReference     = errors.New("operation reads the variable it writes")
	ErrNilOperation      = errors.New("node has no operation")
)

// GraphError describes a malformed graph. Node and Variable name the
// offending node and variable where they apply.
type GraphError struct {
	Node     string
	Variable string
	Err      error
}

func (e *GraphError) Error() string {
	switch {
	case e.Node != "" && e.Variable != "":
		return fmt.Sprintf("node %q: %v: %q", e.Node, e.Err, e.Variable)
	case e.Node != "":
		return fmt.Sprintf("node %q: %v", e.Node, e.Err)
	case e.Variable != "":
		return fmt.Sprintf("%v: %q", e.Err, e.Variable)
	}
	return e.Err.Error()
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// Graph is an immutable program graph. Traversal is bidirectional.
type Graph struct {
	nodes     []Node
	index     map[string]int
	adjacency [][]int
	edges     []Edge
	initial   int
	terminal  int
	variables []string
}

// NewGraph validates nodes and edges and returns the resulting graph.
// Duplicate edges are collapsed. Neighbors are ordered by the first
// edge that introduced them.
func NewGraph(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes:     make([]Node, len(nodes)),
		index:     make(map[string]int, len(nodes)),
		adjacency: make([][]int, len(nodes)),
		initial:   -1,
		terminal:  -1,
	}
	copy(g.nodes, nodes)

	for i, n := range g.nodes {
		if n.Op == nil {
			return nil, &GraphError{Node: n.Name, Err: ErrNilOperation}
		}
		if _, ok := g.index[n.Name]; ok {
			return nil, &GraphError{Node: n.Name, Err: ErrDuplicateNode}
		}
		g.index[n.Name] = i
		switch n.Op.Kind() {
		case InitialKind:
			if g.initial >= 0 {
				return nil, &GraphError{Node: n.Name, Err: ErrDuplicateInitial}
			}
			g.initial = i
		case TerminalKind:
			if g.terminal >= 0 {
				return nil, &GraphError{Node: n.Name, Err: ErrDuplicateTerminal}
			}
			g.terminal = i
		}
	}
	if g.initial < 0 {
		return nil, &GraphError{Err: ErrMissingInitial}
	}
	if g.terminal < 0 {
		return nil, &GraphError{Err: ErrMissingTerminal}
	}
	if op, ok := g.nodes[g.initial].Op.(Initial); ok {
		op.Free, op.Fixed = slices.Clone(op.Free), slices.Clone(op.Fixed)
		g.nodes[g.initial].Op = op
	}

	if err := g.declare(); err != nil {
		return nil, err
	}
	if err := g.checkReferences(); err != nil {
		return nil, err
	}

	seen := make(map[[2]int]struct{}, len(edges))
	for _, e := range edges {
		a, ok := g.index[e.A]
		if !ok {
			return nil, &GraphError{Node: e.A, Err: ErrUnknownNode}
		}
		b, ok := g.index[e.B]
		if !ok {
			return nil, &GraphError{Node: e.B, Err: ErrUnknownNode}
		}
		key := [2]int{min(a, b), max(a, b)}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		g.edges = append(g.edges, e)
		g.adjacency[a] = append(g.adjacency[a], b)
		if a != b {
			g.adjacency[b] = append(g.adjacency[b], a)
		}
	}
	return g, nil
}

func (g *Graph) declare() error {
	op := g.nodes[g.initial].Op.(Initial)
	name := g.nodes[g.initial].Name
	declared := make(map[string]bool, len(op.Free)+len(op.Fixed))
	for _, v := range op.Free {
		if declared[v] {
			return &GraphError{Node: name, Variable: v, Err: ErrDuplicateVariable}
		}
		declared[v] = true
		g.variables = append(g.variables, v)
	}
	for _, b := range op.Fixed {
		if _, ok := declared[b.Name]; ok {
			err := ErrDuplicateVariable
			if declared[b.Name] {
				err = ErrFreeFixedOverlap
			}
			return &GraphError{Node: name, Variable: b.Name, Err: err}
		}
		declared[b.Name] = false
		g.variables = append(g.variables, b.Name)
	}
	return nil
}

func (g *Graph) checkReferences() error {
	declared := make(map[string]struct{}, len(g.variables))
	for _, v := range g.variables {
		declared[v] = struct{}{}
	}
	check := func(node, v string) error {
		if _, ok := declared[v]; !ok {
			return &GraphError{Node: node, Variable: v, Err: ErrUnknownVariable}
		}
		return nil
	}
	for _, n := range g.nodes {
		if out, ok := n.Op.(Output); ok && out.Arg.IsVar() {
			if err := check(n.Name, out.Arg.Var); err != nil {
				return err
			}
			continue
		}
		lhs, rhs, ok := Arithmetic(n.Op)
		if !ok {
			continue
		}
		if err := check(n.Name, lhs); err != nil {
			return err
		}
		if !rhs.IsVar() {
			continue
		}
		if err := check(n.Name, rhs.Var); err != nil {
			return err
		}
		if rhs.Var == lhs {
			return &GraphError{Node: n.Name, Variable: lhs, Err: ErrSelfReference}
		}
	}
	return nil
}

// Nodes returns the graph's nodes in declaration order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Edges returns the de-duplicated edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node with the given name.
func (g *Graph) Node(name string) (Node, bool) {
	i, ok := g.index[name]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// At returns the node at index i.
func (g *Graph) At(i int) Node {
	return g.nodes[i]
}

// IndexOf returns the index of the named node, or -1.
func (g *Graph) IndexOf(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	return -1
}

// NeighborIndices returns the indices adjacent to node i. The returned
// slice must not be modified.
func (g *Graph) NeighborIndices(i int) []int {
	return g.adjacency[i]
}

// Neighbors returns the nodes adjacent to the named node.
func (g *Graph) Neighbors(name string) []Node {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	out := make([]Node, len(g.adjacency[i]))
	for k, j := range g.adjacency[i] {
		out[k] = g.nodes[j]
	}
	return out
}

// Adjacent reports whether an edge connects a and b.
func (g *Graph) Adjacent(a, b string) bool {
	i, ok := g.index[a]
	if !ok {
		return false
	}
	j, ok := g.index[b]
	if !ok {
		return false
	}
	for _, k := range g.adjacency[i] {
		if k == j {
			return true
		}
	}
	return false
}

func (g *Graph) Initial() Node {
	return g.nodes[g.initial]
}

func (g *Graph) InitialIndex() int {
	return g.initial
}

func (g *Graph) Terminal() Node {
	return g.nodes[g.terminal]
}

func (g *Graph) TerminalIndex() int {
	return g.terminal
}

// Variables returns every declared variable, free ones first, each in
// declaration order.
func (g *Graph) Variables() []string {
	return append([]string(nil), g.variables...)
}

func (g *Graph) Free() []string {
	return append([]string(nil), g.nodes[g.initial].Op.(Initial).Free...)
}

func (g *Graph) Fixed() []Binding {
	return append([]Binding(nil), g.nodes[g.initial].Op.(Initial).Fixed...)
}

// Zero returns values with every declared variable set to zero.
func (g *Graph) Zero() Values {
	v := make(Values, len(g.variables))
	for _, name := range g.variables {
		v[name] = 0
	}
	return v
}
