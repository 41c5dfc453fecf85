// Package cli implements the cilantro command line: serving an app from a
// config file, inspecting its route table, validating configuration, and
// reporting the build version.
package cli

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cilantro",
		Short:         "Config-driven web application server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newRoutesCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the CLI and returns the command error, if any.
func Execute() error {
	return newRootCmd().Execute()
}
