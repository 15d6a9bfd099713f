package main

import (
	"github.com/spf13/cobra"
)

// globalFlags override the matching environment settings when set on the command line.
type globalFlags struct {
	addr     string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "core-go",
		Short: "Site manager core: reconciles site trees with device alarm data",
		Long: `core-go merges a user-supplied site tree into the baseline hierarchy, grafts
device records onto it and normalizes alarm severities. Without a subcommand it
serves the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newRenderCmd(flags))
	return root
}
