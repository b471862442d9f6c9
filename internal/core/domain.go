package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the DD/MM/YYYY layout accepted for expense dates. Day and
// month take one or two digits.
const DateLayout = "2/1/2006"

// Column names of the expense_records table, in storage order.
const (
	ColumnTransactionID = "transaction_id"
	ColumnCategory      = "category"
	ColumnDescription   = "description"
	ColumnAmount        = "amount"
	ColumnExpenseDate   = "expense_date"
	ColumnUpdatedAt     = "updated_at"
)

type (
	// Expense is one recorded transaction, identified by TransactionID.
	Expense struct {
		TransactionID int64
		Category      string
		Description   string
		Amount        decimal.Decimal
		// AmountText is set instead of Amount when the amount is not a
		// number. It is stored verbatim as TEXT.
		AmountText    *string
		ExpenseDate   time.Time
		UpdatedAt     time.Time
	}

	// Field is a single column name and its value.
	Field struct {
		Name  string
		Value any
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
)

// ParseError reports user input that could not be coerced to the field's type.
type ParseError struct {
	Field string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseExpenseDate parses s strictly as DD/MM/YYYY; 1/1/2024 is accepted.
func ParseExpenseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ParseError{Field: ColumnExpenseDate, Input: s, Err: errors.Join(ErrInvalidDate, err)}
	}
	return t, nil
}

// Fields returns the record as name/value pairs in column order.
func (e Expense) Fields() []Field {
	return []Field{
		{Name: ColumnTransactionID, Value: e.TransactionID},
		{Name: ColumnCategory, Value: e.Category},
		{Name: ColumnDescription, Value: e.Description},
		{Name: ColumnAmount, Value: e.AmountValue()},
		{Name: ColumnExpenseDate, Value: e.ExpenseDate},
		{Name: ColumnUpdatedAt, Value: e.UpdatedAt},
	}
}

// AmountValue returns the amount as stored: a decimal, or the verbatim text
// when the input was not numeric.
func (e Expense) AmountValue() any {
	if e.AmountText != nil {
		return *e.AmountText
	}
	return e.Amount
}

// AmountString renders the amount for logs and messages.
func (e Expense) AmountString() string {
	if e.AmountText != nil {
		return *e.AmountText
	}
	return e.Amount.String()
}

// String renders the record on a single line.
func (e Expense) String() string {
	parts := make([]string, 0, 6)
	for _, f := range e.Fields() {
		parts = append(parts, f.Name+"="+formatValue(f.Value))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case decimal.Decimal:
		return val.String()
	case time.Time:
		if val.IsZero() {
			return "-"
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}
