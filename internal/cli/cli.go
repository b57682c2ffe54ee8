// Package cli holds the commonthread subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"commonthread/internal/config"
	"commonthread/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	envFilePath            = ".env"
	serviceName            = "commonthread"
	errFailedLoadConfigFmt = "failed to load configuration: %w"
	msgEnvFileMissing      = ".env file not found, using environment variables"
	msgConfigurationLoaded = "configuration loaded"
	msgShutdownSignal      = "shutdown signal received"
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// bootstrap loads .env and the configuration and installs the process
// logger. component tags every log line.
func bootstrap(component string) (*config.Config, zerolog.Logger, error) {
	envErr := godotenv.Load(envFilePath)

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf(errFailedLoadConfigFmt, err)
	}

	log := logger.Setup(cfg.Log.Level, cfg.Log.Format, serviceName).
		With().Str("process", component).Logger()
	if envErr != nil {
		log.Debug().Msg(msgEnvFileMissing)
	}
	log.Info().Str("store", cfg.Store.Driver).Str("queue", cfg.Queue.Driver).Msg(msgConfigurationLoaded)
	log.Debug().Fields(configFields(cfg)).Msg(msgConfigurationLoaded)

	return cfg, log, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), shutdownSignals...)
}

// configFields lists connection settings for debug logs. URLs are scrubbed
// of embedded credentials.
func configFields(cfg *config.Config) map[string]interface{} {
	return logger.SanitizeMap(map[string]interface{}{
		"db_host":       cfg.Database.Host,
		"db_name":       cfg.Database.Database,
		"aws_region":    cfg.AWS.Region,
		"aws_endpoint":  cfg.AWS.Endpoint,
		"sqs_queue_url": cfg.Queue.SQSQueueURL,
		"rabbitmq_url":  cfg.Queue.RabbitURL,
		"redis_url":     cfg.Redis.URL,
		"ml_summarizer": cfg.ML.Summarizer,
		"ml_tagger":     cfg.ML.Tagger,
	})
}
