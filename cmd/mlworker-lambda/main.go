package main

import (
	"commonthread/internal/app"
	"commonthread/internal/config"
	"commonthread/pkg/logger"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
)

const serviceName = "commonthread-mlworker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	l := logger.Setup(cfg.Log.Level, cfg.Log.Format, serviceName)

	w, err := app.NewWorker(cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to initialize worker")
	}
	defer w.Close()

	lambda.Start(w.HandleSQSEvent)
}
