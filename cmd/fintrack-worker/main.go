package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	mem "fintrack/internal/sheets/memory"
	"fintrack/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.FromContext(context.Background()).Error("Worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	logger = cli.SetupLogger(cfg.LogLevel)
	logger.Info("Starting fintrack-worker", log.FieldOperation, log.OpStartup)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	appender, err := newAppender(ctx, cfg, logger.WithComponent(log.ComponentSheets))
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		return err
	}
	defer client.Close()

	mirror := worker.NewMirrorWorker(appender, logger.WithComponent(log.ComponentWorker))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeTransactionCreated(gctx, mirror.HandleTransactionCreated)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Worker stopped gracefully", "events_seen", mirror.Seen().Size())
	return nil
}

// newAppender mirrors to Google Sheets when a spreadsheet is configured and
// to an in-memory sheet otherwise.
func newAppender(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.TransactionAppender, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory only")
		return mem.New(), nil
	}
	creds, err := gsheet.LoadCredentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return nil, err
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: creds,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets mirror enabled", "sheet", cfg.GoogleSheetName)
	return client, nil
}
