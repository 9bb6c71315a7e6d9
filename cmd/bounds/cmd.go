package bounds

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/heptonion/conlog/internal/bounds"
	"github.com/heptonion/conlog/pkg/conlog/graphfile"
)

func NewBoundsCommand() *cobra.Command {
	var passes int
	cmd := &cobra.Command{
		Use:   "bounds <path>",
		Short: "Prints the value intervals used to prune the search",
		Long: `Prints, for every variable the analysis could bound, the interval its
value must lie in at every point of a satisfying walk. Variables that
are not listed are unbounded.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			if passes < 1 {
				return fmt.Errorf("invalid number of passes (%d)", passes)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), args[0], passes)
		},
	}
	cmd.Flags().IntVar(&passes, "passes", bounds.DefaultMaxPasses, "maximum number of analysis passes")
	return cmd
}

func run(out io.Writer, path string, passes int) error {
	g, err := graphfile.LoadFile(path)
	if err != nil {
		return fmt.Errorf("error loading graph file (%s): %w", path, err)
	}
	table := bounds.Analyze(g, bounds.WithMaxPasses(passes))
	if len(table) == 0 {
		fmt.Fprintln(out, "no bounds")
		return nil
	}
	fmt.Fprint(out, table)
	return nil
}
