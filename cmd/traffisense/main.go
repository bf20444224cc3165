package main

import (
	"os"

	"github.com/traffisense/core/cli"
	"github.com/traffisense/core/cmd"
	"github.com/traffisense/core/pkg/profiling"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"traffisense",
		"Live wrong-way analysis of traffic video",
	)

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(rootCmd)
	rootCmd.PersistentPreRunE = profiler.PreRun
	rootCmd.PersistentPostRun = profiler.PostRun

	rootCmd.AddCommand(
		cmd.NewUploadCmd(),
		cmd.NewWatchCmd(),
		cmd.NewIngestCmd(),
		cmd.NewHistoryCmd(),
		cmd.NewExportCmd(),
		cmd.NewHealthCmd(),
		cmd.NewStubCmd(),
		cmd.NewConfigCmd(),
		cmd.NewLogsCmd(),
		cli.NewVersionCommand("traffisense"),
		cli.NewDocsCommand(),
	)
	cli.SetVersionTemplate(rootCmd)
	cli.ApplyStyledHelpRecursive(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		cli.NewErrorHandler(verbose).Handle(err)
		os.Exit(1)
	}
}
