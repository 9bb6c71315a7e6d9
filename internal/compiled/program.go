package compiled

import (
	"math"

	"github.com/heptonion/conlog/internal/bounds"
	"github.com/heptonion/conlog/pkg/conlog"
)

type opcode uint8

const (
	opNop opcode = iota
	opAdd
	opSub
	opCondInc
	opCondDec
)

// instr is a node operation with variables replaced by slot numbers.
// rhs is the operand slot, or -1 when the operand is the literal lit.
type instr struct {
	op  opcode
	lhs int32
	rhs int32
	lit int
}

// program is a graph flattened into arrays indexed by node and slot.
type program struct {
	graph *conlog.Graph
	code  []instr
	// neighbors of node n are targets[offsets[n]:offsets[n+1]].
	offsets []int32
	targets []int32

	slots    map[string]int32
	names    []string
	fixed    []int32
	fixedVal []int

	// slot s is bounded by [lo[s], hi[s]]; unbounded sides hold the
	// extreme int values.
	lo, hi  []int
	bounded []int32

	initial, terminal int32
}

func compile(g *conlog.Graph, table bounds.Table) *program {
	p := &program{
		graph:    g,
		code:     make([]instr, g.Len()),
		offsets:  make([]int32, g.Len()+1),
		slots:    make(map[string]int32),
		names:    g.Variables(),
		initial:  int32(g.InitialIndex()),
		terminal: int32(g.TerminalIndex()),
	}
	for i, name := range p.names {
		p.slots[name] = int32(i)
	}
	for _, b := range g.Fixed() {
		p.fixed = append(p.fixed, p.slots[b.Name])
		p.fixedVal = append(p.fixedVal, b.Value)
	}

	for i := 0; i < g.Len(); i++ {
		p.code[i] = p.instr(g.At(i).Op)
		for _, j := range g.NeighborIndices(i) {
			p.targets = append(p.targets, int32(j))
		}
		p.offsets[i+1] = int32(len(p.targets))
	}

	p.lo = make([]int, len(p.names))
	p.hi = make([]int, len(p.names))
	for i, name := range p.names {
		p.lo[i], p.hi[i] = math.MinInt, math.MaxInt
		iv, ok := table[name]
		if !ok {
			continue
		}
		if !iv.LowInf {
			p.lo[i] = iv.Low
		}
		if !iv.HighInf {
			p.hi[i] = iv.High
		}
		p.bounded = append(p.bounded, int32(i))
	}
	return p
}

func (p *program) instr(op conlog.Operation) instr {
	lhs, rhs, ok := conlog.Arithmetic(op)
	if !ok {
		return instr{op: opNop, rhs: -1}
	}
	in := instr{lhs: p.slots[lhs], rhs: -1, lit: rhs.Lit}
	if rhs.IsVar() {
		in.rhs = p.slots[rhs.Var]
	}
	switch op.Kind() {
	case conlog.AdditionKind:
		in.op = opAdd
	case conlog.SubtractionKind:
		in.op = opSub
	case conlog.ConditionalIncrementKind:
		in.op = opCondInc
	case conlog.ConditionalDecrementKind:
		in.op = opCondDec
	}
	return in
}

// reverse applies the inverse of node n's operation to vals in place.
func (p *program) reverse(n int32, vals []int) {
	in := p.code[n]
	if in.op == opNop {
		return
	}
	rhs := in.lit
	if in.rhs >= 0 {
		rhs = vals[in.rhs]
	}
	switch in.op {
	case opAdd:
		vals[in.lhs] -= rhs
	case opSub:
		vals[in.lhs] += rhs
	case opCondInc:
		if rhs > 0 {
			vals[in.lhs]--
		}
	case opCondDec:
		if rhs > 0 {
			vals[in.lhs]++
		}
	}
}

func (p *program) admits(vals []int) bool {
	for _, s := range p.bounded {
		if v := vals[s]; v < p.lo[s] || v > p.hi[s] {
			return false
		}
	}
	return true
}

func (p *program) satisfies(vals []int) bool {
	for i, s := range p.fixed {
		if vals[s] != p.fixedVal[i] {
			return false
		}
	}
	return true
}

func (p *program) values(vals []int) conlog.Values {
	v := make(conlog.Values, len(p.names))
	for i, name := range p.names {
		v[name] = vals[i]
	}
	return v
}
