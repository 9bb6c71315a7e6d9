package check

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heptonion/conlog/pkg/conlog"
	"github.com/heptonion/conlog/pkg/conlog/graphfile"
)

func NewCheckCommand() *cobra.Command {
	var normalize bool
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Validates a program graph",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graphfile.LoadFile(args[0])
			if err != nil {
				return err
			}
			if normalize {
				return graphfile.Encode(cmd.OutOrStdout(), g)
			}
			summarize(cmd.OutOrStdout(), g)
			return nil
		},
	}
	cmd.Flags().BoolVar(&normalize, "normalize", false, "print the graph in canonical form instead of a summary")
	return cmd
}

func summarize(out io.Writer, g *conlog.Graph) {
	fixed := make([]string, len(g.Fixed()))
	for i, b := range g.Fixed() {
		fixed[i] = fmt.Sprintf("%s = %d", b.Name, b.Value)
	}
	fmt.Fprintf(out, "ok: %d nodes, %d edges\n", g.Len(), len(g.Edges()))
	fmt.Fprintf(out, "free: %s\n", list(g.Free()))
	fmt.Fprintf(out, "fixed: %s\n", list(fixed))
}

func list(s []string) string {
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, ", ")
}
