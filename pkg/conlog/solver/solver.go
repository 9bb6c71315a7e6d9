package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/heptonion/conlog/internal/bounds"
	"github.com/heptonion/conlog/internal/compiled"
	"github.com/heptonion/conlog/internal/interpret"
	"github.com/heptonion/conlog/internal/search"
	"github.com/heptonion/conlog/pkg/conlog"
	"github.com/heptonion/conlog/pkg/conlog/metrics"
)

// ErrOptionViolation is returned by New when an option is invalid.
var ErrOptionViolation = errors.New("solver: option violation")

// Strategy names a search algorithm.
type Strategy string

const (
	// BFS is the backward breadth-first search. It is the default.
	BFS Strategy = search.Name
	// Compiled is the breadth-first search over a flattened program.
	// It yields the same solutions as BFS in the same order.
	Compiled Strategy = compiled.Name
	// Interpret guesses assignments and walks and runs them forward.
	Interpret Strategy = interpret.Name
)

// ParseStrategy accepts a strategy name or its single letter alias:
// g for bfs, c for compiled and p for interpret.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "", "g", string(BFS):
		return BFS, nil
	case "c", string(Compiled):
		return Compiled, nil
	case "p", string(Interpret):
		return Interpret, nil
	}
	return "", fmt.Errorf("%w: unknown strategy %q", ErrOptionViolation, s)
}

// Solver turns graphs into solution sequences using a configured
// strategy.
type Solver struct {
	strategy Strategy
	limit    int
	noBounds bool
	tracer   conlog.Tracer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(options ...Option) (*Solver, error) {
	s := Solver{
		strategy: BFS,
		limit:    conlog.DefaultLimit,
	}
	for _, option := range append(options, defaults...) {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

type Option func(s *Solver) error

func WithStrategy(strategy Strategy) Option {
	return func(s *Solver) error {
		switch strategy {
		case BFS, Compiled, Interpret:
		default:
			return fmt.Errorf("%w: unknown strategy %q", ErrOptionViolation, strategy)
		}
		s.strategy = strategy
		return nil
	}
}

// WithLimit caps the work performed by each solution sequence.
// conlog.Unbounded removes the cap.
func WithLimit(n int) Option {
	return func(s *Solver) error {
		if n < 0 && n != conlog.Unbounded {
			return fmt.Errorf("%w: limit %d", ErrOptionViolation, n)
		}
		s.limit = n
		return nil
	}
}

// WithoutBounds disables pruning by the bounds analysis.
func WithoutBounds() Option {
	return func(s *Solver) error {
		s.noBounds = true
		return nil
	}
}

// WithTracer installs a tracer. Only the bfs strategy reports positions.
func WithTracer(t conlog.Tracer) Option {
	return func(s *Solver) error {
		s.tracer = t
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) error {
		if l == nil {
			return fmt.Errorf("%w: nil logger", ErrOptionViolation)
		}
		s.logger = l
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Solver) error {
		s.metrics = m
		return nil
	}
}

var defaults = []Option{
	func(s *Solver) error {
		if s.tracer == nil {
			s.tracer = conlog.DefaultTracer{}
		}
		return nil
	},
	func(s *Solver) error {
		if s.logger == nil {
			s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		return nil
	},
}

// Solve returns the lazy sequence of solutions of g.
func (s *Solver) Solve(g *conlog.Graph) (conlog.Solutions, error) {
	var table bounds.Table
	if s.noBounds {
		table = bounds.Unbounded()
	} else {
		table = bounds.Analyze(g)
	}

	var (
		inner conlog.Solutions
		err   error
	)
	switch s.strategy {
	case Compiled:
		inner, err = compiled.New(g, compiled.WithLimit(s.limit), compiled.WithBounds(table))
	case Interpret:
		inner, err = interpret.New(g, interpret.WithLimit(s.limit), interpret.WithBounds(table))
	default:
		inner, err = search.New(g, search.WithLimit(s.limit), search.WithBounds(table), search.WithTracer(s.tracer))
	}
	if err != nil {
		return nil, fmt.Errorf("%s strategy: %w", s.strategy, err)
	}

	r := &run{
		inner:    inner,
		logger:   s.logger.With("run_id", uuid.NewString(), "strategy", string(s.strategy)),
		recorder: s.metrics.For(string(s.strategy)),
	}
	r.logger.Debug("solve started",
		"nodes", g.Len(),
		"edges", len(g.Edges()),
		"limit", s.limit,
		"bounds", len(table),
	)
	return r, nil
}

// run decorates a strategy with logging and metrics.
type run struct {
	inner    conlog.Solutions
	logger   *slog.Logger
	recorder *metrics.Recorder
	seen     conlog.Stats
}

func (r *run) Next(ctx context.Context) (conlog.Solution, error) {
	solution, err := r.inner.Next(ctx)

	stats := r.inner.Stats()
	r.recorder.Add(stats.Sub(r.seen))
	r.seen = stats
	r.recorder.Outcome(err)

	switch {
	case err == nil:
		r.logger.Debug("solution found", "assignment", solution.Assignment.String(), "length", len(solution.Path)-1, "dequeued", stats.Dequeued)
	case errors.Is(err, conlog.ErrExhausted), errors.Is(err, conlog.ErrLimitReached):
		r.logger.Debug("search finished", "outcome", metrics.OutcomeOf(err), "dequeued", stats.Dequeued, "solutions", stats.Solutions)
	default:
		r.logger.Warn("search stopped", "error", err, "dequeued", stats.Dequeued)
	}
	return solution, err
}

func (r *run) Stats() conlog.Stats {
	return r.inner.Stats()
}

// Collect drains up to max solutions from sols, or all of them when max
// is negative. The returned error is the one that ended the sequence,
// or nil if max solutions were collected.
func Collect(ctx context.Context, sols conlog.Solutions, max int) ([]conlog.Solution, error) {
	var out []conlog.Solution
	for max < 0 || len(out) < max {
		solution, err := sols.Next(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, solution)
	}
	return out, nil
}
