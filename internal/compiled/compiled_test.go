package compiled

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heptonion/conlog/internal/bounds"
	"github.com/heptonion/conlog/internal/search"
	"github.com/heptonion/conlog/internal/testgraph"
	"github.com/heptonion/conlog/pkg/conlog"
	"github.com/heptonion/conlog/pkg/conlog/evaluator"
)

func drain(s conlog.Solutions) ([]conlog.Solution, error) {
	var out []conlog.Solution
	for {
		solution, err := s.Next(context.Background())
		if err != nil {
			return out, err
		}
		out = append(out, solution)
	}
}

func TestMatchesSearch(t *testing.T) {
	type tc struct {
		Name   string
		Graph  *conlog.Graph
		Limit  int
		Bounds bounds.Table
	}

	tests := []tc{
		{Name: "line", Graph: testgraph.Line(1), Limit: 10},
		{Name: "unreachable", Graph: testgraph.Line(2), Limit: 10},
		{Name: "loop", Graph: testgraph.Loop(3), Limit: 50},
		{Name: "double", Graph: testgraph.Double(3), Limit: 2000},
		{Name: "double without bounds", Graph: testgraph.Double(2), Limit: 2000, Bounds: bounds.Unbounded()},
	}
	for seed := int64(0); seed < 16; seed++ {
		tests = append(tests, tc{Name: "random", Graph: testgraph.Random(seed, 10), Limit: 3000})
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			want, err := search.New(tt.Graph, search.WithLimit(tt.Limit), search.WithBounds(tt.Bounds))
			require.NoError(t, err)
			got, err := New(tt.Graph, WithLimit(tt.Limit), WithBounds(tt.Bounds))
			require.NoError(t, err)

			wantSols, wantErr := drain(want)
			gotSols, gotErr := drain(got)

			assert.Equal(t, wantErr, gotErr)
			assert.Equal(t, wantSols, gotSols)
			assert.Equal(t, want.Stats(), got.Stats())
		})
	}
}

func TestReverseMatchesApply(t *testing.T) {
	random := rand.New(rand.NewSource(1)) //nolint:gosec // G404: not security-sensitive.
	for seed := int64(0); seed < 4; seed++ {
		g := testgraph.Random(seed, 16)
		p := compile(g, bounds.Analyze(g))
		for n := 0; n < g.Len(); n++ {
			vals := make([]int, len(p.names))
			for i := range vals {
				vals[i] = random.Intn(7) - 3
			}
			want, err := conlog.Apply(g.At(n).Op, p.values(vals), true)
			require.NoError(t, err)

			p.reverse(int32(n), vals)
			assert.Equal(t, want, p.values(vals), "node %s", g.At(n))
		}
	}
}

func TestProgramBounds(t *testing.T) {
	g := testgraph.Double(2)
	p := compile(g, bounds.Analyze(g))

	slot := func(name string) int32 { return p.slots[name] }
	vals := make([]int, len(p.names))
	assert.True(t, p.admits(vals))

	vals[slot("n")] = 3
	assert.False(t, p.admits(vals))
	vals[slot("n")] = 2
	vals[slot("t")] = 1 << 30
	assert.True(t, p.admits(vals))
	assert.True(t, p.satisfies(vals))
	vals[slot("t")] = -1
	assert.False(t, p.admits(vals))
}

func TestCompiledCancelled(t *testing.T) {
	s, err := New(testgraph.Line(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	solution, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, solution.Path, 3)
	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, conlog.ErrExhausted)
}

func TestCompiledInvalidLimit(t *testing.T) {
	_, err := New(testgraph.Line(1), WithLimit(-3))
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestInconsistencyErrorIsSticky(t *testing.T) {
	s, err := New(testgraph.Double(1), WithBounds(bounds.Unbounded()))
	require.NoError(t, err)
	s.vals[s.prog.slots["t"]] = 7

	_, err = s.Next(context.Background())
	var inconsistent *conlog.InconsistencyError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, Name, inconsistent.Strategy)
	assert.ErrorIs(t, err, evaluator.ErrNotCertified)

	dequeued := s.Stats().Dequeued
	_, again := s.Next(context.Background())
	assert.Equal(t, err, again)
	assert.Equal(t, dequeued, s.Stats().Dequeued)
}
