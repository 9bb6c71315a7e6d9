package conlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the number of search states a strategy may
	// dequeue when no limit is supplied.
	DefaultLimit = 1000000

	// Unbounded disables the search limit.
	Unbounded = -1
)

var (
	// ErrExhausted is returned once the search space has been fully
	// explored: no further solutions exist.
	ErrExhausted = errors.New("search space exhausted")

	// ErrLimitReached is returned when the search limit was consumed
	// while states were still queued. The result is inconclusive.
	ErrLimitReached = errors.New("search limit reached")
)

// InconsistencyError reports a candidate that the search accepted but
// that failed forward certification. It indicates a defect in a
// strategy or in the bounds used to prune it.
type InconsistencyError struct {
	Strategy string
	Path     []Node
	Err      error
}

func (e *InconsistencyError) Error() string {
	names := make([]string, len(e.Path))
	for i, n := range e.Path {
		names[i] = n.Name
	}
	return fmt.Sprintf("%s strategy accepted an invalid solution [%s]: %v", e.Strategy, strings.Join(names, " "), e.Err)
}

func (e *InconsistencyError) Unwrap() error {
	return e.Err
}

// Solutions is a lazy, resumable, ordered sequence of solutions.
//
// Next returns the next certified Solution. It returns ErrExhausted or
// ErrLimitReached when the sequence ends, an *InconsistencyError if a
// candidate failed certification, and the context's error if ctx is
// cancelled. A cancelled sequence may be resumed by calling Next again.
type Solutions interface {
	Next(ctx context.Context) (Solution, error)
	Stats() Stats
}

// Stats counts the work a strategy has performed so far.
type Stats struct {
	Dequeued  int
	Expanded  int
	Pruned    int
	Solutions int
}

// Sub returns the difference s - o.
func (s Stats) Sub(o Stats) Stats {
	return Stats{
		Dequeued:  s.Dequeued - o.Dequeued,
		Expanded:  s.Expanded - o.Expanded,
		Pruned:    s.Pruned - o.Pruned,
		Solutions: s.Solutions - o.Solutions,
	}
}

// Binding associates a variable name with a value.
type Binding struct {
	Name  string
	Value int
}

// Assignment is an ordered set of bindings.
type Assignment []Binding

// Get returns the value bound to name.
func (a Assignment) Get(name string) (int, bool) {
	for _, b := range a {
		if b.Name == name {
			return b.Value, true
		}
	}
	return 0, false
}

func (a Assignment) String() string {
	s := make([]string, len(a))
	for i, b := range a {
		s[i] = fmt.Sprintf("%s = %d", b.Name, b.Value)
	}
	return strings.Join(s, ", ")
}

type TokenKind int

const (
	NumberToken TokenKind = iota
	CharToken
)

// Token is a single item written to stdout by an Output operation.
type Token struct {
	Kind  TokenKind
	Value int
}

func (t Token) String() string {
	if t.Kind == CharToken {
		return string(rune(t.Value))
	}
	return strconv.Itoa(t.Value)
}

// Solution is a certified satisfying walk through a graph.
type Solution struct {
	// Assignment holds the values of the free variables at Initial,
	// in declaration order.
	Assignment Assignment
	// Stdout holds the tokens emitted along Path, in order.
	Stdout []Token
	// Path runs from Initial to Terminal.
	Path []Node
}
