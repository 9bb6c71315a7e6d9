package solve

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/heptonion/conlog/pkg/conlog"
	"github.com/heptonion/conlog/pkg/conlog/metrics"
	"github.com/heptonion/conlog/pkg/conlog/solver"
)

type flags struct {
	strategy    string
	limit       string
	all         bool
	noBounds    bool
	showPath    bool
	verbose     bool
	trace       bool
	metricsFile string
}

func NewSolveCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "solve <path>",
		Short: "Solves a program graph given in YAML",
		Long: `Searches for values of the free variables under which a walk from the
initial node to the terminal node leaves every variable at zero. For instance:

initial: {name: start, free: [t], fixed: {n: 2}}
terminal: end
nodes:
  - {name: say, op: print, arg: t}
  - {name: decr, op: sub, lhs: n, rhs: 1}
  - {name: twice, op: sub, lhs: t, rhs: 2}
  - {name: back, op: nop}
edges: [[start, say], [say, decr], [decr, twice], [twice, back], [back, say], [say, end]]
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}

			var reg *prometheus.Registry
			if f.metricsFile != "" {
				reg = prometheus.NewRegistry()
				opts = append(opts, solver.WithMetrics(metrics.New(reg)))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			err = Run(ctx, cmd.OutOrStdout(), args[0], Config{
				All:      f.all,
				ShowPath: f.showPath,
				Options:  opts,
			})

			if reg != nil {
				if werr := prometheus.WriteToTextfile(f.metricsFile, reg); werr != nil {
					return errors.Join(err, fmt.Errorf("writing metrics: %w", werr))
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "g", "search strategy: g (bfs), c (compiled) or p (interpret)")
	cmd.Flags().StringVarP(&f.limit, "limit", "l", strconv.Itoa(conlog.DefaultLimit), "search limit, or inf")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "print every solution")
	cmd.Flags().BoolVar(&f.noBounds, "no-bounds", false, "disable pruning by variable bounds")
	cmd.Flags().BoolVar(&f.showPath, "path", false, "print the path of each solution")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log search progress to stderr")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "log every dequeued search state (bfs only)")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write search metrics to this file in the Prometheus text format")
	return cmd
}

func (f *flags) options(cmd *cobra.Command) ([]solver.Option, error) {
	strategy, err := solver.ParseStrategy(f.strategy)
	if err != nil {
		return nil, err
	}
	limit, err := ParseLimit(f.limit)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if f.verbose || f.trace {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	opts := []solver.Option{
		solver.WithStrategy(strategy),
		solver.WithLimit(limit),
		solver.WithLogger(logger),
	}
	if f.noBounds {
		opts = append(opts, solver.WithoutBounds())
	}
	if f.trace {
		opts = append(opts, solver.WithTracer(conlog.LoggingTracer{Logger: logger}))
	}
	return opts, nil
}

// ParseLimit reads a search limit: a non-negative integer or "inf".
func ParseLimit(s string) (int, error) {
	switch strings.ToLower(s) {
	case "inf", "infinity", "none":
		return conlog.Unbounded, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit (%s): want a non-negative integer or inf", s)
	}
	return n, nil
}
