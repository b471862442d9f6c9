// Package menu implements the interactive command loop: it prints the menu,
// reads one command per line and dispatches it to the expense store.
package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vishnu5898/expense-manager/internal/cli"
	"github.com/vishnu5898/expense-manager/internal/core"
	applog "github.com/vishnu5898/expense-manager/internal/log"
)

// Commands accepted at the prompt.
const (
	CommandQuit   = "q"
	CommandList   = "1"
	CommandAdd    = "2"
	CommandRemove = "3"
	CommandTotal  = "4"
)

const (
	rule      = "=========="
	menuText  = "1) View expenses\n2) Add expense\n3) Remove expense\n4) Total expenses\nPress q for exiting the program\n"
	noRecords = "No expenses added"
)

// Store is what the loop needs from the expense service.
type Store interface {
	ListAll(ctx context.Context) ([]core.Expense, error)
	MaxTransactionID(ctx context.Context) (int64, bool, error)
	Insert(ctx context.Context, e core.Expense) error
	DeleteByID(ctx context.Context, id int64) error
	TotalAmount(ctx context.Context) (decimal.Decimal, bool, error)
}

// Loop is the command loop. It has a single state, awaiting a command, and
// stops on "q", end of input, cancellation or the first error.
type Loop struct {
	store  Store
	in     *cli.LineReader
	out    io.Writer
	now    func() time.Time
	logger *applog.Logger
}

// Option customizes a Loop.
type Option func(*Loop)

// WithClock sets the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *applog.Logger) Option {
	return func(l *Loop) { l.logger = logger.WithComponent(applog.ComponentMenu) }
}

func New(store Store, in io.Reader, out io.Writer, opts ...Option) *Loop {
	l := &Loop{
		store:  store,
		in:     cli.NewLineReader(in),
		out:    out,
		now:    time.Now,
		logger: applog.New(applog.Config{Output: io.Discard, Component: applog.ComponentMenu}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes commands until the user quits or input ends, in which case
// it returns nil. Any store or parse error stops the loop and is returned.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.print(menuText)

		command, err := l.in.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.logger.DebugContext(ctx, "Input closed")
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}

		command = strings.TrimSpace(command)
		if command == CommandQuit {
			return nil
		}

		if err := l.dispatch(ctx, command); err != nil {
			l.logger.ErrorContext(ctx, "Command failed",
				applog.FieldCommand, command,
				applog.FieldError, err)
			return err
		}
	}
}

func (l *Loop) dispatch(ctx context.Context, command string) error {
	switch command {
	case CommandList:
		return l.list(ctx)
	case CommandAdd:
		return l.add(ctx)
	case CommandRemove:
		return l.remove(ctx)
	case CommandTotal:
		return l.total(ctx)
	default:
		l.logger.DebugContext(ctx, "Unknown command", applog.FieldCommand, command)
		return nil
	}
}

func (l *Loop) list(ctx context.Context) error {
	expenses, err := l.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}
	l.logger.DebugContext(ctx, "Listing expenses", applog.FieldOperation, applog.OpList, "count", len(expenses))

	l.println(rule)
	if len(expenses) == 0 {
		l.println(noRecords)
	}
	for _, e := range expenses {
		l.println(e.String())
	}
	l.println(rule)
	return nil
}

func (l *Loop) add(ctx context.Context) error {
	maxID, ok, err := l.store.MaxTransactionID(ctx)
	if err != nil {
		return fmt.Errorf("next transaction id: %w", err)
	}
	nextID := int64(1)
	if ok {
		nextID = maxID + 1
	}

	category, err := l.prompt(ctx, "Enter category: ")
	if err != nil {
		return err
	}
	description, err := l.prompt(ctx, "Enter description: ")
	if err != nil {
		return err
	}
	rawAmount, err := l.prompt(ctx, "Enter amount spend (in Rs): ")
	if err != nil {
		return err
	}
	rawDate, err := l.prompt(ctx, "Enter the spend date (DD/MM/YYYY): ")
	if err != nil {
		return err
	}

	date, err := core.ParseExpenseDate(rawDate)
	if err != nil {
		return err
	}

	amount, amountText := core.CoerceAmount(rawAmount)
	if amountText != nil {
		l.logger.DebugContext(ctx, "Amount is not numeric, storing as text",
			applog.FieldOperation, applog.OpParse,
			applog.FieldAmount, rawAmount)
	}

	e := core.Expense{
		TransactionID: nextID,
		Category:      category,
		Description:   description,
		Amount:        amount,
		AmountText:    amountText,
		ExpenseDate:   date,
		UpdatedAt:     l.now(),
	}
	if err := l.store.Insert(ctx, e); err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "Expense added", applog.NewFields().
		WithOperation(applog.OpCreate).
		WithExpense(e.TransactionID, e.Category, e.AmountString()).
		ToSlice()...)
	l.println("Successfully saved the expense")
	return nil
}

func (l *Loop) remove(ctx context.Context) error {
	raw, err := l.prompt(ctx, "Enter transaction_id to be removed: ")
	if err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)

	// Input that is not an integral number cannot match an INTEGER id.
	if id, ok := parseTransactionID(raw); ok {
		if err := l.store.DeleteByID(ctx, id); err != nil {
			return err
		}
		l.logger.InfoContext(ctx, "Expense removed", applog.NewFields().
			WithOperation(applog.OpDelete).
			WithTransactionID(id).
			ToSlice()...)
	} else {
		l.logger.DebugContext(ctx, "Ignoring non-numeric transaction_id",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldTransactionID, raw)
	}

	l.println("Successfully removed transaction_id: " + raw)
	return nil
}

func (l *Loop) total(ctx context.Context) error {
	total, ok, err := l.store.TotalAmount(ctx)
	if err != nil {
		return fmt.Errorf("total expenses: %w", err)
	}
	l.logger.DebugContext(ctx, "Computed total", applog.FieldOperation, applog.OpTotal, "empty", !ok)

	l.println(rule)
	l.println("Total expense: " + core.FormatTotal(total, ok))
	l.println(rule)
	return nil
}

// parseTransactionID reads raw the way an INTEGER column compares text:
// "7", "+7", "7.0" and "7e0" all match id 7. Hex, infinities and NaN do not.
func parseTransactionID(raw string) (int64, bool) {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, true
	}
	if strings.ContainsAny(raw, "xXnN_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// prompt prints label and reads the answer. End of input here is an error:
// the record being entered is incomplete.
func (l *Loop) prompt(ctx context.Context, label string) (string, error) {
	l.print(label)
	answer, err := l.in.ReadLine(ctx)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", strings.TrimSuffix(label, ": "), err)
	}
	return answer, nil
}

func (l *Loop) print(s string) {
	fmt.Fprint(l.out, s)
}

func (l *Loop) println(s string) {
	fmt.Fprintln(l.out, s)
}
