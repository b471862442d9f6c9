package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vishnu5898/expense-manager/internal/core"
)

const (
	tableName = "expense_records"

	selectAllQuery = `SELECT transaction_id, category, description, amount, expense_date, updated_at
		FROM expense_records`
	maxIDQuery  = `SELECT MAX(transaction_id) FROM expense_records`
	insertQuery = `INSERT INTO expense_records
		(transaction_id, category, description, amount, expense_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	deleteQuery      = `DELETE FROM expense_records WHERE transaction_id = ?`
	sumQuery         = `SELECT SUM(amount) FROM expense_records`
	tableExistsQuery = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
)

// Layouts seen in the date columns: the driver's own time format, plus
// plain text written by other tools.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// SQLiteRepository is the storage gateway for expense records. It holds one
// long-lived connection to the database file.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// InitializeSchema creates the expense table if it is absent. It reports
// whether the table was created by this call; an existing table is not an
// error.
func (r *SQLiteRepository) InitializeSchema(ctx context.Context) (bool, error) {
	existed, err := r.tableExists(ctx)
	if err != nil {
		return false, err
	}

	err = RunMigrations(r.path)
	switch {
	case err == nil:
	case errors.Is(err, ErrSchemaAlreadyExists), isTableExists(err):
		slog.DebugContext(ctx, "Schema already exists", "table", tableName)
		return false, nil
	default:
		return false, storageError("initialize schema", err)
	}

	if existed {
		slog.DebugContext(ctx, "Schema bookkeeping added to existing table", "table", tableName)
		return false, nil
	}

	slog.InfoContext(ctx, "Expense table created", "table", tableName, "path", r.path)
	return true, nil
}

func (r *SQLiteRepository) tableExists(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, tableExistsQuery, tableName).Scan(&n); err != nil {
		return false, storageError("check table", err)
	}
	return n > 0, nil
}

// ListAll returns every record in storage order.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectAllQuery)
	if err != nil {
		return nil, storageError("list expenses", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e           core.Expense
			category    sql.NullString
			description sql.NullString
			amount      any
			expenseDate any
			updatedAt   any
		)
		if err := rows.Scan(&e.TransactionID, &category, &description, &amount, &expenseDate, &updatedAt); err != nil {
			return nil, storageError("scan expense", err)
		}
		e.Category = category.String
		e.Description = description.String
		if e.Amount, e.AmountText, err = toAmount(amount); err != nil {
			return nil, storageError("scan amount", err)
		}
		if e.ExpenseDate, err = toTime(expenseDate); err != nil {
			return nil, storageError("scan expense_date", err)
		}
		if e.UpdatedAt, err = toTime(updatedAt); err != nil {
			return nil, storageError("scan updated_at", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list expenses", err)
	}

	return expenses, nil
}

// MaxTransactionID returns the greatest transaction_id; ok is false when the
// table is empty.
func (r *SQLiteRepository) MaxTransactionID(ctx context.Context) (int64, bool, error) {
	var id sql.NullInt64
	if err := r.db.QueryRowContext(ctx, maxIDQuery).Scan(&id); err != nil {
		return 0, false, storageError("max transaction id", err)
	}
	return id.Int64, id.Valid, nil
}

// Insert writes one record. A reused transaction_id fails with
// ErrConstraintViolation. A text amount is bound as text and the column
// affinity decides how it is stored.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx, insertQuery,
		e.TransactionID,
		e.Category,
		e.Description,
		amountArg(e),
		e.ExpenseDate,
		e.UpdatedAt,
	)
	if err != nil {
		return storageError(fmt.Sprintf("insert expense %d", e.TransactionID), err)
	}
	return nil
}

// DeleteByID removes the record with the given id. A missing id is not an
// error.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return storageError(fmt.Sprintf("delete expense %d", id), err)
	}

	n, _ := res.RowsAffected()
	slog.DebugContext(ctx, "Expense delete executed", "transaction_id", id, "rows_affected", n)
	return nil
}

// TotalAmount returns the sum of all amounts; ok is false when the table is
// empty.
func (r *SQLiteRepository) TotalAmount(ctx context.Context) (decimal.Decimal, bool, error) {
	var sum sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, sumQuery).Scan(&sum); err != nil {
		return decimal.Zero, false, storageError("total amount", err)
	}
	if !sum.Valid {
		return decimal.Zero, false, nil
	}
	return decimal.NewFromFloat(sum.Float64), true, nil
}

func amountArg(e core.Expense) any {
	if e.AmountText != nil {
		return *e.AmountText
	}
	return e.Amount.InexactFloat64()
}

// toAmount converts a stored amount. REAL values and numeric text become
// decimals; other text is returned verbatim.
func toAmount(v any) (decimal.Decimal, *string, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, nil, nil
	case float64:
		return decimal.NewFromFloat(val), nil, nil
	case int64:
		return decimal.NewFromInt(val), nil, nil
	case []byte:
		return toAmount(string(val))
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(val)); err == nil {
			return d, nil, nil
		}
		return decimal.Zero, &val, nil
	default:
		return decimal.Zero, nil, fmt.Errorf("unsupported amount value %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return val, nil
	case string:
		return parseTime(val)
	case []byte:
		return parseTime(string(val))
	case int64:
		return time.Unix(val, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
