package conlog

import (
	"fmt"
	"strconv"
	"strings"
)

// Operand is the right-hand side of an arithmetic operation: either an
// integer literal or a reference to a variable.
type Operand struct {
	Var string
	Lit int
}

// Lit returns a literal operand.
func Lit(n int) Operand {
	return Operand{Lit: n}
}

// Var returns an operand referring to the named variable.
func Var(name string) Operand {
	return Operand{Var: name}
}

func (o Operand) IsVar() bool {
	return o.Var != ""
}

// Resolve returns the operand's value under values.
func (o Operand) Resolve(values Values) (int, error) {
	if !o.IsVar() {
		return o.Lit, nil
	}
	v, ok := values[o.Var]
	if !ok {
		return 0, UnknownVariableError(o.Var)
	}
	return v, nil
}

func (o Operand) String() string {
	if o.IsVar() {
		return o.Var
	}
	return strconv.Itoa(o.Lit)
}

// UnknownVariableError is returned when an operation refers to a
// variable that has no value.
type UnknownVariableError string

func (e UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", string(e))
}

type OpKind int

const (
	InitialKind OpKind = iota
	TerminalKind
	NoOpKind
	AdditionKind
	SubtractionKind
	ConditionalIncrementKind
	ConditionalDecrementKind
	OutputKind
)

var opKindNames = [...]string{
	InitialKind:              "initial",
	TerminalKind:             "terminal",
	NoOpKind:                 "nop",
	AdditionKind:             "add",
	SubtractionKind:          "sub",
	ConditionalIncrementKind: "cinc",
	ConditionalDecrementKind: "cdec",
	OutputKind:               "print",
}

func (k OpKind) String() string {
	if int(k) < len(opKindNames) {
		return opKindNames[k]
	}
	return "unknown"
}

// Operation describes how a node transforms variable values during a
// forward traversal. The set of implementations is closed.
type Operation interface {
	Kind() OpKind
	String() string
	operation()
}

// Initial is the program entry. Free variables are solved for; fixed
// variables must hold the given values at entry.
type Initial struct {
	Free  []string
	Fixed []Binding
}

type Terminal struct{}

type NoOp struct{}

// Addition performs LHS += RHS.
type Addition struct {
	LHS string
	RHS Operand
}

// Subtraction performs LHS -= RHS.
type Subtraction struct {
	LHS string
	RHS Operand
}

// ConditionalIncrement increments LHS by one when RHS > 0.
type ConditionalIncrement struct {
	LHS string
	RHS Operand
}

// ConditionalDecrement decrements LHS by one when RHS > 0.
type ConditionalDecrement struct {
	LHS string
	RHS Operand
}

// Output writes Arg to stdout, as a character when Char is set and as
// a number otherwise. It leaves all values unchanged.
type Output struct {
	Arg  Operand
	Char bool
}

func (Initial) Kind() OpKind              { return InitialKind }
func (Terminal) Kind() OpKind             { return TerminalKind }
func (NoOp) Kind() OpKind                 { return NoOpKind }
func (Addition) Kind() OpKind             { return AdditionKind }
func (Subtraction) Kind() OpKind          { return SubtractionKind }
func (ConditionalIncrement) Kind() OpKind { return ConditionalIncrementKind }
func (ConditionalDecrement) Kind() OpKind { return ConditionalDecrementKind }
func (Output) Kind() OpKind               { return OutputKind }

func (Initial) operation()              {}
func (Terminal) operation()             {}
func (NoOp) operation()                 {}
func (Addition) operation()             {}
func (Subtraction) operation()          {}
func (ConditionalIncrement) operation() {}
func (ConditionalDecrement) operation() {}
func (Output) operation()               {}

func (op Initial) String() string {
	s := append(make([]string, 0, len(op.Free)+len(op.Fixed)), op.Free...)
	for _, b := range op.Fixed {
		s = append(s, fmt.Sprintf("%s=%d", b.Name, b.Value))
	}
	return fmt.Sprintf("initial(%s)", strings.Join(s, ", "))
}

func (Terminal) String() string                { return "terminal" }
func (NoOp) String() string                    { return "nop" }
func (op Addition) String() string             { return fmt.Sprintf("%s += %s", op.LHS, op.RHS) }
func (op Subtraction) String() string          { return fmt.Sprintf("%s -= %s", op.LHS, op.RHS) }
func (op ConditionalIncrement) String() string { return fmt.Sprintf("%s++ if %s > 0", op.LHS, op.RHS) }
func (op ConditionalDecrement) String() string { return fmt.Sprintf("%s-- if %s > 0", op.LHS, op.RHS) }

func (op Output) String() string {
	if op.Char {
		return fmt.Sprintf("print char %s", op.Arg)
	}
	return fmt.Sprintf("print %s", op.Arg)
}

// Arithmetic returns the target and operand of an arithmetic or
// conditional operation. ok is false for every other operation.
func Arithmetic(op Operation) (lhs string, rhs Operand, ok bool) {
	switch op := op.(type) {
	case Addition:
		return op.LHS, op.RHS, true
	case Subtraction:
		return op.LHS, op.RHS, true
	case ConditionalIncrement:
		return op.LHS, op.RHS, true
	case ConditionalDecrement:
		return op.LHS, op.RHS, true
	}
	return "", Operand{}, false
}

// Values maps every declared variable to its current value.
type Values map[string]int

// Clone returns an independent copy of v.
func (v Values) Clone() Values {
	c := make(Values, len(v))
	for name, value := range v {
		c[name] = value
	}
	return c
}

// Apply returns the values obtained by traversing a node carrying op,
// forwards or, when reverse is set, backwards. values is not modified.
//
// Conditional operations test the operand as resolved against values,
// the state before the transition in the direction of travel.
func Apply(op Operation, values Values, reverse bool) (Values, error) {
	next := values.Clone()
	lhs, rhs, ok := Arithmetic(op)
	if !ok {
		return next, nil
	}
	n, err := rhs.Resolve(values)
	if err != nil {
		return nil, err
	}
	if _, ok := next[lhs]; !ok {
		return nil, UnknownVariableError(lhs)
	}
	next[lhs] += Delta(op.Kind(), n, reverse)
	return next, nil
}

// Delta returns the change an operation of kind k applies to its
// target, given the resolved operand n.
func Delta(k OpKind, n int, reverse bool) int {
	sign := 1
	if reverse {
		sign = -1
	}
	switch k {
	case AdditionKind:
		return sign * n
	case SubtractionKind:
		return -sign * n
	case ConditionalIncrementKind:
		if n <= 0 {
			return 0
		}
		return sign
	case ConditionalDecrementKind:
		if n <= 0 {
			return 0
		}
		return -sign
	}
	return 0
}
