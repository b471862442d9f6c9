package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vishnu5898/expense-manager/internal/cli"
	applog "github.com/vishnu5898/expense-manager/internal/log"
	"github.com/vishnu5898/expense-manager/internal/menu"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return err
	}

	logger := cli.SetupLogger(cfg)
	appLogger := logger.WithComponent(applog.ComponentApp)
	logger.WithComponent(applog.ComponentConfig).Debug("Configuration loaded",
		applog.FieldPath, cfg.DBPath,
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"amqp_enabled", cfg.AMQPEnabled())

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	repo, created, err := cli.InitSQLite(ctx, logger.WithComponent(applog.ComponentStorage), cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to initialize storage", applog.FieldError, err, applog.FieldPath, cfg.DBPath)
		return err
	}
	cli.ReportSchema(os.Stdout, created)

	svc := cli.InitService(ctx, logger, cfg, repo)
	defer func() {
		if err := svc.Close(); err != nil {
			appLogger.Warn("Failed to close expense service", applog.FieldError, err)
		}
	}()

	appLogger.Info("Expense manager started", applog.FieldOperation, applog.OpStartup, applog.FieldPath, cfg.DBPath)

	if err := menu.New(svc, os.Stdin, os.Stdout, menu.WithLogger(logger)).Run(ctx); err != nil {
		appLogger.Error("Expense manager stopped with error", applog.FieldOperation, applog.OpShutdown, applog.FieldError, err)
		return err
	}

	appLogger.Info("Expense manager exiting", applog.FieldOperation, applog.OpShutdown)
	return nil
}
