package solve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/heptonion/conlog/pkg/conlog"
	"github.com/heptonion/conlog/pkg/conlog/graphfile"
	"github.com/heptonion/conlog/pkg/conlog/solver"
)

// maxPathNodes is the longest path printed in full.
const maxPathNodes = 15

// Config controls a single Run.
type Config struct {
	// All prints every solution rather than only the first.
	All      bool
	ShowPath bool
	Options  []solver.Option
}

// Run solves the graph stored at path and writes the outcome to out.
// Running out of solutions, reaching the search limit and interruption
// are reported on out and are not errors.
func Run(ctx context.Context, out io.Writer, path string, cfg Config) error {
	g, err := graphfile.LoadFile(path)
	if err != nil {
		return fmt.Errorf("error loading graph file (%s): %w", path, err)
	}

	s, err := solver.New(cfg.Options...)
	if err != nil {
		return err
	}
	sols, err := s.Solve(g)
	if err != nil {
		return err
	}

	solution, err := sols.Next(ctx)
	if err != nil {
		return report(out, err, "unsatisfiable")
	}
	fmt.Fprintln(out, "satisfiable")

	alternate := false
	for {
		writeSolution(out, solution, alternate, cfg.ShowPath)
		if !cfg.All {
			return nil
		}
		alternate = true
		if solution, err = sols.Next(ctx); err != nil {
			return report(out, err, "")
		}
		fmt.Fprint(out, "or ")
	}
}

// report prints the outcome that ended a sequence. exhausted is printed
// when no further solutions exist.
func report(out io.Writer, err error, exhausted string) error {
	switch {
	case errors.Is(err, conlog.ErrExhausted):
		if exhausted != "" {
			fmt.Fprintln(out, exhausted)
		}
	case errors.Is(err, conlog.ErrLimitReached):
		fmt.Fprintln(out, "search limit reached")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintln(out, "interrupted")
	default:
		return err
	}
	return nil
}

func writeSolution(out io.Writer, solution conlog.Solution, alternate, showPath bool) {
	for i, b := range solution.Assignment {
		if alternate && i > 0 {
			fmt.Fprint(out, "   ")
		}
		fmt.Fprintf(out, "%s = %d\n", b.Name, b.Value)
	}
	if len(solution.Stdout) > 0 {
		fmt.Fprintln(out, FormatStdout(solution.Stdout))
	}
	if showPath {
		fmt.Fprintln(out, formatPath(solution.Path))
	}
}

// FormatStdout joins output tokens: consecutive characters are
// concatenated, anything else is separated by a space.
func FormatStdout(tokens []conlog.Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && !(t.Kind == conlog.CharToken && tokens[i-1].Kind == conlog.CharToken) {
			b.WriteByte(' ')
		}
		b.WriteString(t.String())
	}
	return b.String()
}

func formatPath(path []conlog.Node) string {
	names := make([]string, 0, len(path))
	for _, n := range path {
		names = append(names, n.Name)
	}
	if len(names) > maxPathNodes {
		names = append(append(names[:7:7], "..."), names[len(names)-7:]...)
	}
	return strings.Join(names, " -- ")
}
