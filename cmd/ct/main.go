package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultConfig = "caretaker.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ct",
		Short:         "Caretaker — recurring facility task scheduling",
		Long:          "Caretaker turns recurring task templates into daily work items for facility staff and tracks them to completion.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newAssetCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newGroupCmd())
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDaemonCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ct %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
