package cli

import (
	"context"
	"fmt"

	"commonthread/internal/app"

	"github.com/spf13/cobra"
)

const (
	errFailedInitAPIFmt  = "failed to initialize api: %w"
	errForcedShutdownFmt = "server forced to shutdown: %w"
	msgServerStopped     = "server exited gracefully"
)

// ServeCmd runs the HTTP API.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the story, project and organization API.

With QUEUE_DRIVER=memory the ML worker runs in the same process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap("api")
			if err != nil {
				return err
			}

			api, err := app.NewAPI(cfg, log)
			if err != nil {
				return fmt.Errorf(errFailedInitAPIFmt, err)
			}

			ctx, stop := signalContext()
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- api.Start()
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				log.Info().Msg(msgShutdownSignal)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := api.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf(errForcedShutdownFmt, err)
			}
			log.Info().Msg(msgServerStopped)
			return nil
		},
	}
}
