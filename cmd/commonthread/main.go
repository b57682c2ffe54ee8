package main

import (
	"fmt"
	"os"

	"commonthread/internal/cli"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "commonthread",
		Short: "CommonThread story archive backend",
		Long: `CommonThread serves the organization, project and story API and runs
the asynchronous transcription, tagging and summarization pipeline.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.WorkerCmd())
	rootCmd.AddCommand(cli.ReapCmd())
	rootCmd.AddCommand(cli.MigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
