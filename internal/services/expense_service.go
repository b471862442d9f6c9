package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/vishnu5898/expense-manager/internal/core"
	applog "github.com/vishnu5898/expense-manager/internal/log"
)

// Repository is the storage gateway the service delegates to.
type Repository interface {
	ListAll(ctx context.Context) ([]core.Expense, error)
	MaxTransactionID(ctx context.Context) (int64, bool, error)
	Insert(ctx context.Context, e core.Expense) error
	DeleteByID(ctx context.Context, id int64) error
	TotalAmount(ctx context.Context) (decimal.Decimal, bool, error)
	Close() error
}

// Publisher announces expense changes to other processes.
type Publisher interface {
	PublishExpenseAdded(ctx context.Context, transactionID int64) error
	PublishExpenseRemoved(ctx context.Context, transactionID int64) error
	Close() error
}

// ExpenseService runs expense operations against the repository and, when a
// publisher is configured, announces successful writes.
type ExpenseService struct {
	storage   Repository
	publisher Publisher
	logger    *applog.Logger
}

// Option customizes an ExpenseService.
type Option func(*ExpenseService)

// WithLogger sets the service logger; it is tagged with the expense component.
func WithLogger(logger *applog.Logger) Option {
	return func(s *ExpenseService) { s.logger = logger.WithComponent(applog.ComponentExpense) }
}

// NewExpenseService wires the service; publisher may be nil.
func NewExpenseService(storage Repository, publisher Publisher, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		storage:   storage,
		publisher: publisher,
		logger:    applog.New(applog.Config{Output: io.Discard, Component: applog.ComponentExpense}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExpenseService) ListAll(ctx context.Context) ([]core.Expense, error) {
	return s.storage.ListAll(ctx)
}

func (s *ExpenseService) MaxTransactionID(ctx context.Context) (int64, bool, error) {
	return s.storage.MaxTransactionID(ctx)
}

func (s *ExpenseService) TotalAmount(ctx context.Context) (decimal.Decimal, bool, error) {
	return s.storage.TotalAmount(ctx)
}

// Insert saves an expense and publishes an added event. A publish failure is
// logged and does not fail the insert.
func (s *ExpenseService) Insert(ctx context.Context, e core.Expense) error {
	if err := s.storage.Insert(ctx, e); err != nil {
		return fmt.Errorf("save expense: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseAdded(ctx, e.TransactionID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish expense added event", applog.NewFields().
				WithOperation(applog.OpPublish).
				WithTransactionID(e.TransactionID).
				WithError(err).
				ToSlice()...)
		}
	}

	return nil
}

// DeleteByID removes an expense and publishes a removed event. A publish
// failure is logged and does not fail the delete.
func (s *ExpenseService) DeleteByID(ctx context.Context, id int64) error {
	if err := s.storage.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseRemoved(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish expense removed event", applog.NewFields().
				WithOperation(applog.OpPublish).
				WithTransactionID(id).
				WithError(err).
				ToSlice()...)
		}
	}

	return nil
}

// Close closes both storage and publisher connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}

	return nil
}
