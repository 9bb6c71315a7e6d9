package root

import (
	"github.com/spf13/cobra"

	"github.com/heptonion/conlog/cmd/bounds"
	"github.com/heptonion/conlog/cmd/check"
	"github.com/heptonion/conlog/cmd/solve"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "conlog",
		Short: "Conlog solves programs written as graphs",
		Long: `Conlog runs programs backwards. A program is an undirected graph of
arithmetic nodes; conlog searches for inputs that let a walk from the
initial node reach the terminal node with every variable at zero.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// add sub-commands
	rootCmd.AddCommand(solve.NewSolveCommand())
	rootCmd.AddCommand(bounds.NewBoundsCommand())
	rootCmd.AddCommand(check.NewCheckCommand())

	return rootCmd
}
