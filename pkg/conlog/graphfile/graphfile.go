// Package graphfile reads and writes program graphs as YAML.
//
//	initial: {name: start, free: [t], fixed: {n: 3}}
//	terminal: end
//	nodes:
//	  - {name: decr, op: sub, lhs: n, rhs: 1}
//	  - {name: say, op: print, arg: t}
//	edges: [[start, say], [say, decr], [decr, end]]
//
// Operands are integers or variable names. Fixed variables keep the
// order in which they appear.
package graphfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/heptonion/conlog/pkg/conlog"
)

var (
	ErrUnknownOp      = errors.New("unknown operation")
	ErrMissingOperand = errors.New("missing operand")
	ErrMalformed      = errors.New("malformed graph file")
)

const (
	opNop  = "nop"
	opAdd  = "add"
	opSub  = "sub"
	opCInc = "cinc"
	opCDec = "cdec"
	opOut  = "print"
)

type file struct {
	Initial  initialYAML `yaml:"initial"`
	Terminal string      `yaml:"terminal"`
	Nodes    []nodeYAML  `yaml:"nodes"`
	Edges    [][]string  `yaml:"edges,flow"`
}

type initialYAML struct {
	Name  string    `yaml:"name"`
	Free  []string  `yaml:"free,flow,omitempty"`
	Fixed yaml.Node `yaml:"fixed,omitempty"`
}

type nodeYAML struct {
	Name string   `yaml:"name"`
	Op   string   `yaml:"op"`
	LHS  string   `yaml:"lhs,omitempty"`
	RHS  *operand `yaml:"rhs,omitempty"`
	Arg  *operand `yaml:"arg,omitempty"`
	Char bool     `yaml:"char,omitempty"`
}

// operand is an integer literal or a variable name.
type operand conlog.Operand

func (o *operand) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: operand must be a scalar", value.Line)
	}
	if value.ShortTag() == "!!int" {
		var n int
		if err := value.Decode(&n); err != nil {
			return err
		}
		*o = operand(conlog.Lit(n))
		return nil
	}
	*o = operand(conlog.Var(value.Value))
	return nil
}

func (o operand) MarshalYAML() (interface{}, error) {
	if conlog.Operand(o).IsVar() {
		return o.Var, nil
	}
	return o.Lit, nil
}

// Load decodes a graph from r and validates it.
func Load(r io.Reader) (*conlog.Graph, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return f.graph()
}

// LoadFile reads the graph stored at path.
func LoadFile(path string) (*conlog.Graph, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	g, err := Load(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func (f *file) graph() (*conlog.Graph, error) {
	if f.Initial.Name == "" {
		return nil, &conlog.GraphError{Err: conlog.ErrMissingInitial}
	}
	if f.Terminal == "" {
		return nil, &conlog.GraphError{Err: conlog.ErrMissingTerminal}
	}
	fixed, err := decodeFixed(&f.Initial.Fixed)
	if err != nil {
		return nil, err
	}
	nodes := []conlog.Node{
		{Name: f.Initial.Name, Op: conlog.Initial{Free: f.Initial.Free, Fixed: fixed}},
		{Name: f.Terminal, Op: conlog.Terminal{}},
	}
	for _, n := range f.Nodes {
		op, err := n.operation()
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		nodes = append(nodes, conlog.Node{Name: n.Name, Op: op})
	}

	edges := make([]conlog.Edge, len(f.Edges))
	for i, e := range f.Edges {
		if len(e) != 2 {
			return nil, fmt.Errorf("%w: edge %d has %d endpoints", ErrMalformed, i, len(e))
		}
		edges[i] = conlog.Edge{A: e[0], B: e[1]}
	}
	return conlog.NewGraph(nodes, edges)
}

func decodeFixed(n *yaml.Node) ([]conlog.Binding, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: fixed must be a mapping", ErrMalformed, n.Line)
	}
	var fixed []conlog.Binding
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v int
		if err := n.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: fixed %q: %w", ErrMalformed, n.Content[i].Value, err)
		}
		fixed = append(fixed, conlog.Binding{Name: n.Content[i].Value, Value: v})
	}
	return fixed, nil
}

func (n nodeYAML) operation() (conlog.Operation, error) {
	switch n.Op {
	case opNop:
		return conlog.NoOp{}, nil
	case opOut:
		if n.Arg == nil {
			return nil, fmt.Errorf("%w: arg", ErrMissingOperand)
		}
		return conlog.Output{Arg: conlog.Operand(*n.Arg), Char: n.Char}, nil
	case opAdd, opSub, opCInc, opCDec:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownOp, n.Op)
	}

	if n.LHS == "" {
		return nil, fmt.Errorf("%w: lhs", ErrMissingOperand)
	}
	if n.RHS == nil {
		return nil, fmt.Errorf("%w: rhs", ErrMissingOperand)
	}
	rhs := conlog.Operand(*n.RHS)
	switch n.Op {
	case opAdd:
		return conlog.Addition{LHS: n.LHS, RHS: rhs}, nil
	case opSub:
		return conlog.Subtraction{LHS: n.LHS, RHS: rhs}, nil
	case opCInc:
		return conlog.ConditionalIncrement{LHS: n.LHS, RHS: rhs}, nil
	default:
		return conlog.ConditionalDecrement{LHS: n.LHS, RHS: rhs}, nil
	}
}

// Encode writes g in the format read by Load.
func Encode(w io.Writer, g *conlog.Graph) error {
	initial := g.Initial().Op.(conlog.Initial)
	f := file{
		Initial: initialYAML{
			Name: g.Initial().Name,
			Free: initial.Free,
		},
		Terminal: g.Terminal().Name,
	}
	if len(initial.Fixed) > 0 {
		f.Initial.Fixed = yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		for _, b := range initial.Fixed {
			f.Initial.Fixed.Content = append(f.Initial.Fixed.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: b.Name},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(b.Value)},
			)
		}
	}

	for _, n := range g.Nodes() {
		y := nodeYAML{Name: n.Name}
		switch op := n.Op.(type) {
		case conlog.Initial, conlog.Terminal:
			continue
		case conlog.NoOp:
			y.Op = opNop
		case conlog.Output:
			arg := operand(op.Arg)
			y.Op, y.Arg, y.Char = opOut, &arg, op.Char
		case conlog.Addition:
			y.Op, y.LHS, y.RHS = opAdd, op.LHS, ref(op.RHS)
		case conlog.Subtraction:
			y.Op, y.LHS, y.RHS = opSub, op.LHS, ref(op.RHS)
		case conlog.ConditionalIncrement:
			y.Op, y.LHS, y.RHS = opCInc, op.LHS, ref(op.RHS)
		case conlog.ConditionalDecrement:
			y.Op, y.LHS, y.RHS = opCDec, op.LHS, ref(op.RHS)
		default:
			return fmt.Errorf("node %q: %w %s", n.Name, ErrUnknownOp, n.Op.Kind())
		}
		f.Nodes = append(f.Nodes, y)
	}
	for _, e := range g.Edges() {
		f.Edges = append(f.Edges, []string{e.A, e.B})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return err
	}
	return enc.Close()
}

func ref(o conlog.Operand) *operand {
	p := operand(o)
	return &p
}
