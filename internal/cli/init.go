// Package cli provides the bootstrap helpers used by cmd/expenses: logging,
// .env loading, configuration, storage and the optional event publisher.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vishnu5898/expense-manager/internal/amqp"
	"github.com/vishnu5898/expense-manager/internal/config"
	applog "github.com/vishnu5898/expense-manager/internal/log"
	"github.com/vishnu5898/expense-manager/internal/services"
	"github.com/vishnu5898/expense-manager/internal/storage"
)

// SetupLogger builds the application logger from config and installs it as
// the slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logCfg := applog.DefaultConfig()
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		logCfg.Level = level
	}
	logCfg.Format = cfg.LogFormat

	logger := applog.New(logCfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration from the environment and validates it.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TableCreatedMessage is printed on stdout when startup created the table.
const TableCreatedMessage = "Required table created successfully"

// InitSQLite opens the repository at dbPath and bootstraps its schema. It
// reports whether the expense table was created.
func InitSQLite(ctx context.Context, logger *applog.Logger, dbPath string) (*storage.SQLiteRepository, bool, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, false, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	created, err := repo.InitializeSchema(ctx)
	if err != nil {
		repo.Close()
		return nil, false, fmt.Errorf("initialize schema: %w", err)
	}

	logger.InfoContext(ctx, "SQLite repository ready",
		applog.FieldPath, dbPath,
		"table_created", created)
	return repo, created, nil
}

// ReportSchema prints the table-created notice when created is true.
func ReportSchema(w io.Writer, created bool) {
	if created {
		fmt.Fprintln(w, TableCreatedMessage)
	}
}

// InitService wires the expense service. The AMQP publisher is optional: a
// connection failure is logged and the service runs without events.
func InitService(ctx context.Context, logger *applog.Logger, cfg *config.Config, repo *storage.SQLiteRepository) *services.ExpenseService {
	svcOpts := []services.Option{services.WithLogger(logger)}
	if !cfg.AMQPEnabled() {
		return services.NewExpenseService(repo, nil, svcOpts...)
	}

	amqpLogger := logger.WithComponent(applog.ComponentAMQP)
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		amqpLogger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return services.NewExpenseService(repo, nil, svcOpts...)
	}

	amqpLogger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"routing_key", cfg.AMQPRoutingKey)
	return services.NewExpenseService(repo, client, svcOpts...)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
