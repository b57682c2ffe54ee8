package cli

import (
	"fmt"

	"commonthread/internal/app"

	"github.com/spf13/cobra"
)

const (
	errFailedInitWorkerFmt = "failed to initialize worker: %w"
	errFailedReapFmt       = "failed to reap stale tasks: %w"
	msgReapFinished        = "stale task sweep finished"
)

// WorkerCmd runs the long-poll ML consumer.
func WorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume ML task messages",
		Long: `Long-poll the task queue and run transcription, tagging and
summarization for each message. Tasks stuck in processing longer than
ML_TASK_STALE_AFTER are marked failed every ML_REAP_INTERVAL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap("worker")
			if err != nil {
				return err
			}

			w, err := app.NewWorker(cfg, log)
			if err != nil {
				return fmt.Errorf(errFailedInitWorkerFmt, err)
			}
			defer w.Close()

			ctx, stop := signalContext()
			defer stop()

			return w.Run(ctx)
		},
	}
}

// ReapCmd runs one stale task sweep, for cron-style scheduling.
func ReapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Mark ML tasks stuck in processing as failed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap("reaper")
			if err != nil {
				return err
			}

			w, err := app.NewWorker(cfg, log)
			if err != nil {
				return fmt.Errorf(errFailedInitWorkerFmt, err)
			}
			defer w.Close()

			ctx, stop := signalContext()
			defer stop()

			n, err := w.Reap(ctx)
			if err != nil {
				return fmt.Errorf(errFailedReapFmt, err)
			}
			log.Info().Int64("tasks", n).Msg(msgReapFinished)
			return nil
		},
	}
}
