package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/benchmarks/internal/envinfo"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print harness and framework versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			vs := envinfo.Versions()
			fmt.Fprintf(cmd.OutOrStdout(), "born-bench %s (framework %s, %s)\n", vs.HarnessVersion, vs.FrameworkVersion, vs.GoVersion)
		},
	}
	// version needs no configuration.
	noop := func(*cobra.Command, []string) error { return nil }
	cmd.PersistentPreRunE = noop
	cmd.PersistentPostRunE = noop
	return cmd
}
