package main

import (
	"context"
	"errors"
	"os"
	"time"

	"invoiceinsights/internal/amqp"
	"invoiceinsights/internal/backend"
	"invoiceinsights/internal/cli"
	"invoiceinsights/internal/log"
	"invoiceinsights/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting insights-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	writer, err := backend.NewFactory(logger).SheetsWriter(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize sheets writer", log.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(repo, writer, cfg.SyncBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			err := amqpClient.ConsumeReportSync(ctx, syncWorker.HandleSyncMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				// The periodic backstop keeps exporting pending reports.
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled - relying on periodic sync only")
	}

	go syncWorker.Run(ctx, cfg.SyncInterval)

	<-ctx.Done()
	<-done
	logger.Info("Worker stopped gracefully")
}
