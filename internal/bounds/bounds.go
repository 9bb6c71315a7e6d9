// Package bounds computes a sound interval for every program variable.
//
// The table is advisory: strategies use it to discard search states
// whose values no valid execution can reach. It may be loose, but must
// never exclude a reachable value.
package bounds

import (
	"fmt"
	"sort"
	"strings"

	"github.com/heptonion/conlog/pkg/conlog"
)

// DefaultMaxPasses bounds the number of propagation passes.
const DefaultMaxPasses = 8

// Interval is an inclusive range. A side marked infinite is unbounded
// and its value is ignored. Low > High denotes the empty interval.
type Interval struct {
	Low, High       int
	LowInf, HighInf bool
}

// Full returns the unbounded interval.
func Full() Interval {
	return Interval{LowInf: true, HighInf: true}
}

func Point(v int) Interval {
	return Interval{Low: v, High: v}
}

func (i Interval) Contains(v int) bool {
	return (i.LowInf || v >= i.Low) && (i.HighInf || v <= i.High)
}

func (i Interval) Empty() bool {
	return !i.LowInf && !i.HighInf && i.Low > i.High
}

func (i Interval) Unbounded() bool {
	return i.LowInf && i.HighInf
}

// NonNegative reports whether every member is >= 0.
func (i Interval) NonNegative() bool {
	return !i.LowInf && i.Low >= 0
}

// NonPositive reports whether every member is <= 0.
func (i Interval) NonPositive() bool {
	return !i.HighInf && i.High <= 0
}

// Intersect returns the interval of values in both i and o.
func (i Interval) Intersect(o Interval) Interval {
	r := i
	if !o.LowInf && (r.LowInf || o.Low > r.Low) {
		r.Low, r.LowInf = o.Low, false
	}
	if !o.HighInf && (r.HighInf || o.High < r.High) {
		r.High, r.HighInf = o.High, false
	}
	return r
}

func (i Interval) String() string {
	low, high := "-inf", "+inf"
	if !i.LowInf {
		low = fmt.Sprint(i.Low)
	}
	if !i.HighInf {
		high = fmt.Sprint(i.High)
	}
	return fmt.Sprintf("[%s, %s]", low, high)
}

// Table maps variable names to intervals. A missing entry is unbounded.
type Table map[string]Interval

// Unbounded returns a table that bounds nothing.
func Unbounded() Table {
	return Table{}
}

// Get returns the interval for name.
func (t Table) Get(name string) Interval {
	if i, ok := t[name]; ok {
		return i
	}
	return Full()
}

// Contains reports whether v lies within the interval for name.
func (t Table) Contains(name string, v int) bool {
	return t.Get(name).Contains(v)
}

// Admits reports whether every bounded variable of values lies within
// its interval.
func (t Table) Admits(values conlog.Values) bool {
	for name, i := range t {
		if v, ok := values[name]; ok && !i.Contains(v) {
			return false
		}
	}
	return true
}

func (t Table) String() string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s in %s\n", name, t[name])
	}
	return b.String()
}

type options struct {
	maxPasses int
}

type Option func(*options)

// WithMaxPasses caps the number of propagation passes. Values below one
// are ignored.
func WithMaxPasses(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPasses = n
		}
	}
}

// direction records which ways a variable may move during execution.
type direction struct {
	up, down bool
}

// Analyze computes the bounds table for g.
//
// Every execution ends at Terminal with all variables equal to zero and
// starts at Initial with fixed variables at their declared values. A
// variable that can only increase therefore never exceeds zero and
// never falls below its fixed value; symmetrically for one that can
// only decrease. The sign of a variable operand is taken from the
// previous pass, so each pass may sharpen the directions of the
// variables it feeds, until nothing changes.
func Analyze(g *conlog.Graph, opts ...Option) Table {
	o := options{maxPasses: DefaultMaxPasses}
	for _, opt := range opts {
		opt(&o)
	}

	fixed := make(map[string]int)
	for _, b := range g.Fixed() {
		fixed[b.Name] = b.Value
	}

	table := make(Table, len(g.Variables()))
	for _, name := range g.Variables() {
		table[name] = Full()
	}

	for pass := 0; pass < o.maxPasses; pass++ {
		dirs := directions(g, table)
		changed := false
		for _, name := range g.Variables() {
			next := table[name].Intersect(derive(dirs[name], fixed, name))
			if next != table[name] {
				table[name] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for name, i := range table {
		if i.Unbounded() {
			delete(table, name)
		}
	}
	return table
}

func derive(d direction, fixed map[string]int, name string) Interval {
	start, isFixed := fixed[name]
	switch {
	case !d.up && !d.down:
		return Point(0)
	case d.up && !d.down:
		if isFixed {
			return Interval{Low: start, High: 0}
		}
		return Interval{LowInf: true, High: 0}
	case d.down && !d.up:
		if isFixed {
			return Interval{Low: 0, High: start}
		}
		return Interval{Low: 0, HighInf: true}
	}
	return Full()
}

func directions(g *conlog.Graph, table Table) map[string]direction {
	dirs := make(map[string]direction, len(table))
	for _, n := range g.Nodes() {
		lhs, rhs, ok := conlog.Arithmetic(n.Op)
		if !ok {
			continue
		}
		up, down := moves(n.Op.Kind(), rhs, table)
		d := dirs[lhs]
		d.up = d.up || up
		d.down = d.down || down
		dirs[lhs] = d
	}
	return dirs
}

// moves reports whether a forward traversal of an operation may
// increase or decrease its target.
func moves(k conlog.OpKind, rhs conlog.Operand, table Table) (up, down bool) {
	var positive, negative bool
	if rhs.IsVar() {
		i := table.Get(rhs.Var)
		positive = !i.NonPositive()
		negative = !i.NonNegative()
	} else {
		positive = rhs.Lit > 0
		negative = rhs.Lit < 0
	}

	switch k {
	case conlog.AdditionKind:
		return positive, negative
	case conlog.SubtractionKind:
		return negative, positive
	case conlog.ConditionalIncrementKind:
		return positive, false
	case conlog.ConditionalDecrementKind:
		return false, positive
	}
	return false, false
}
