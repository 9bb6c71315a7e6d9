// Package evaluator certifies candidate walks by replaying them forward.
package evaluator

import (
	"errors"
	"fmt"

	"github.com/heptonion/conlog/pkg/conlog"
)

// ErrNotCertified is wrapped by every CertificationError.
var ErrNotCertified = errors.New("walk does not certify")

// CertificationError describes why a candidate walk failed forward
// replay. Step is the index into the path where the failure was
// detected, or -1 when it concerns the whole walk.
type CertificationError struct {
	Step   int
	Reason string
}

func (e *CertificationError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("%v: %s", ErrNotCertified, e.Reason)
	}
	return fmt.Sprintf("%v: step %d: %s", ErrNotCertified, e.Step, e.Reason)
}

func (e *CertificationError) Unwrap() error {
	return ErrNotCertified
}

func fail(step int, format string, args ...interface{}) error {
	return &CertificationError{Step: step, Reason: fmt.Sprintf(format, args...)}
}

// Evaluate replays path forward from values, the candidate values at
// Initial, and returns the resulting Solution. It fails unless path is
// a walk over g from Initial to Terminal that never immediately
// reverses an edge or passes through Terminal, values carries every
// declared variable with the fixed ones at their declared values, and
// the replay ends with every variable equal to zero.
func Evaluate(g *conlog.Graph, path []conlog.Node, values conlog.Values) (conlog.Solution, error) {
	if err := checkWalk(g, path); err != nil {
		return conlog.Solution{}, err
	}
	for _, name := range g.Variables() {
		if _, ok := values[name]; !ok {
			return conlog.Solution{}, fail(-1, "no value for variable %q", name)
		}
	}
	if len(values) != len(g.Variables()) {
		return conlog.Solution{}, fail(-1, "values carry undeclared variables")
	}
	for _, b := range g.Fixed() {
		if values[b.Name] != b.Value {
			return conlog.Solution{}, fail(0, "fixed variable %q is %d, want %d", b.Name, values[b.Name], b.Value)
		}
	}

	var stdout []conlog.Token
	current := values
	for i, node := range path {
		if out, ok := node.Op.(conlog.Output); ok {
			v, err := out.Arg.Resolve(current)
			if err != nil {
				return conlog.Solution{}, fail(i, "%v", err)
			}
			kind := conlog.NumberToken
			if out.Char {
				kind = conlog.CharToken
			}
			stdout = append(stdout, conlog.Token{Kind: kind, Value: v})
		}
		next, err := conlog.Apply(node.Op, current, false)
		if err != nil {
			return conlog.Solution{}, fail(i, "%v", err)
		}
		current = next
	}
	for _, name := range g.Variables() {
		if current[name] != 0 {
			return conlog.Solution{}, fail(len(path)-1, "variable %q is %d at terminal", name, current[name])
		}
	}

	free := g.Free()
	assignment := make(conlog.Assignment, len(free))
	for i, name := range free {
		assignment[i] = conlog.Binding{Name: name, Value: values[name]}
	}
	return conlog.Solution{
		Assignment: assignment,
		Stdout:     stdout,
		Path:       append([]conlog.Node(nil), path...),
	}, nil
}

func checkWalk(g *conlog.Graph, path []conlog.Node) error {
	if len(path) < 2 {
		return fail(-1, "walk has %d nodes", len(path))
	}
	initial, terminal := g.Initial().Name, g.Terminal().Name
	if path[0].Name != initial {
		return fail(0, "walk starts at %q, not %q", path[0].Name, initial)
	}
	for i, node := range path {
		known, ok := g.Node(node.Name)
		if !ok {
			return fail(i, "unknown node %q", node.Name)
		}
		if known.Op.Kind() != node.Op.Kind() {
			return fail(i, "node %q carries %s, graph has %s", node.Name, node.Op, known.Op)
		}
		if node.Name == terminal && i != len(path)-1 {
			return fail(i, "walk passes through terminal")
		}
		if i == 0 {
			continue
		}
		if !g.Adjacent(path[i-1].Name, node.Name) {
			return fail(i, "no edge between %q and %q", path[i-1].Name, node.Name)
		}
		if i >= 2 && path[i-2].Name == node.Name {
			return fail(i, "walk reverses the edge %q-%q", node.Name, path[i-1].Name)
		}
	}
	if path[len(path)-1].Name != terminal {
		return fail(len(path)-1, "walk ends at %q, not %q", path[len(path)-1].Name, terminal)
	}
	return nil
}
