package graphfile_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/heptonion/conlog/internal/testgraph"
	"github.com/heptonion/conlog/pkg/conlog"
	"github.com/heptonion/conlog/pkg/conlog/graphfile"
	"github.com/heptonion/conlog/pkg/conlog/solver"
)

func TestGraphfile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Graphfile Suite")
}

const double = `
initial: {name: start, free: [t], fixed: {n: 2}}
terminal: end
nodes:
  - {name: say, op: print, arg: t}
  - {name: decr, op: sub, lhs: n, rhs: 1}
  - {name: twice, op: sub, lhs: t, rhs: 2}
  - {name: back, op: nop}
edges: [[start, say], [say, decr], [decr, twice], [twice, back], [back, say], [say, end]]
`

func solutions(g *conlog.Graph) []string {
	s, err := solver.New(solver.WithLimit(5000))
	Expect(err).ToNot(HaveOccurred())
	sols, err := s.Solve(g)
	Expect(err).ToNot(HaveOccurred())
	found, err := solver.Collect(context.Background(), sols, -1)
	Expect(err).To(MatchError(conlog.ErrExhausted))

	var out []string
	for _, f := range found {
		var names []string
		for _, n := range f.Path {
			names = append(names, n.Name)
		}
		out = append(out, f.Assignment.String()+": "+strings.Join(names, " "))
	}
	return out
}

var _ = Describe("Load", func() {
	It("should read every operation", func() {
		g, err := graphfile.Load(strings.NewReader(`
initial: {name: I, free: [a, b], fixed: {z: 3, y: -1}}
terminal: T
nodes:
  - {name: n0, op: nop}
  - {name: n1, op: add, lhs: a, rhs: 2}
  - {name: n2, op: sub, lhs: a, rhs: b}
  - {name: n3, op: cinc, lhs: z, rhs: y}
  - {name: n4, op: cdec, lhs: y, rhs: -1}
  - {name: n5, op: print, arg: 72, char: true}
edges: [[I, n0], [n5, T]]
`))
		Expect(err).ToNot(HaveOccurred())
		Expect(g.Initial().Op).To(Equal(conlog.Initial{
			Free:  []string{"a", "b"},
			Fixed: []conlog.Binding{{Name: "z", Value: 3}, {Name: "y", Value: -1}},
		}))
		ops := map[string]conlog.Operation{}
		for _, n := range g.Nodes() {
			ops[n.Name] = n.Op
		}
		Expect(ops).To(Equal(map[string]conlog.Operation{
			"I":  g.Initial().Op,
			"T":  conlog.Terminal{},
			"n0": conlog.NoOp{},
			"n1": conlog.Addition{LHS: "a", RHS: conlog.Lit(2)},
			"n2": conlog.Subtraction{LHS: "a", RHS: conlog.Var("b")},
			"n3": conlog.ConditionalIncrement{LHS: "z", RHS: conlog.Var("y")},
			"n4": conlog.ConditionalDecrement{LHS: "y", RHS: conlog.Lit(-1)},
			"n5": conlog.Output{Arg: conlog.Lit(72), Char: true},
		}))
		Expect(g.Edges()).To(Equal([]conlog.Edge{{A: "I", B: "n0"}, {A: "n5", B: "T"}}))
	})

	It("should load a graph that solves like the one built in code", func() {
		g, err := graphfile.Load(strings.NewReader(double))
		Expect(err).ToNot(HaveOccurred())
		Expect(solutions(g)).To(Equal(solutions(testgraph.Double(2))))
	})

	DescribeTable("should reject",
		func(doc string, want error) {
			_, err := graphfile.Load(strings.NewReader(doc))
			Expect(err).To(MatchError(want))
		},
		Entry("an empty document", "", graphfile.ErrMalformed),
		Entry("a missing terminal", "initial: {name: I}\n", conlog.ErrMissingTerminal),
		Entry("a missing initial", "terminal: T\n", conlog.ErrMissingInitial),
		Entry("unknown keys", "initial: {name: I}\nterminal: T\ncolour: red\n", graphfile.ErrMalformed),
		Entry("a list of fixed values", "initial: {name: I, fixed: [1]}\nterminal: T\n", graphfile.ErrMalformed),
		Entry("a non-integer fixed value", "initial: {name: I, fixed: {n: x}}\nterminal: T\n", graphfile.ErrMalformed),
		Entry("an unknown operation", "initial: {name: I}\nterminal: T\nnodes: [{name: A, op: mul, lhs: x, rhs: 1}]\n", graphfile.ErrUnknownOp),
		Entry("a missing target", "initial: {name: I}\nterminal: T\nnodes: [{name: A, op: add, rhs: 1}]\n", graphfile.ErrMissingOperand),
		Entry("a missing operand", "initial: {name: I, free: [x]}\nterminal: T\nnodes: [{name: A, op: add, lhs: x}]\n", graphfile.ErrMissingOperand),
		Entry("a missing argument", "initial: {name: I}\nterminal: T\nnodes: [{name: A, op: print}]\n", graphfile.ErrMissingOperand),
		Entry("a short edge", "initial: {name: I}\nterminal: T\nedges: [[I]]\n", graphfile.ErrMalformed),
		Entry("an undeclared variable", "initial: {name: I}\nterminal: T\nnodes: [{name: A, op: add, lhs: x, rhs: 1}]\n", conlog.ErrUnknownVariable),
		Entry("an unknown endpoint", "initial: {name: I}\nterminal: T\nedges: [[I, X]]\n", conlog.ErrUnknownNode),
	)
})

var _ = Describe("Encode", func() {
	It("should round trip", func() {
		for _, g := range []*conlog.Graph{testgraph.Double(2), testgraph.Loop(3), testgraph.Random(4, 8)} {
			var buf bytes.Buffer
			Expect(graphfile.Encode(&buf, g)).To(Succeed())

			loaded, err := graphfile.Load(&buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded.Edges()).To(Equal(g.Edges()))
			Expect(loaded.Variables()).To(Equal(g.Variables()))
			for _, n := range g.Nodes() {
				got, ok := loaded.Node(n.Name)
				Expect(ok).To(BeTrue())
				Expect(got.Op).To(Equal(n.Op))
			}
		}
	})

	It("should write a file LoadFile reads back", func() {
		path := filepath.Join(GinkgoT().TempDir(), "double.yaml")
		Expect(os.WriteFile(path, []byte(double), 0o600)).To(Succeed())
		g, err := graphfile.LoadFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(g.Len()).To(Equal(6))

		_, err = graphfile.LoadFile(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})
})
