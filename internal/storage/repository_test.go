package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishnu5898/expense-manager/internal/core"
)

func createTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "expenses.db")

	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = repo.InitializeSchema(context.Background())
	require.NoError(t, err)
	return repo
}

func testExpense(id int64, amount string) core.Expense {
	return core.Expense{
		TransactionID: id,
		Category:      "Food",
		Description:   "lunch",
		Amount:        decimal.RequireFromString(amount),
		ExpenseDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC),
	}
}

func ids(expenses []core.Expense) []int64 {
	out := make([]int64, len(expenses))
	for i, e := range expenses {
		out[i] = e.TransactionID
	}
	return out
}

func TestInitializeSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "expenses.db")

	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	created, err := repo.InitializeSchema(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.InitializeSchema(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	var n int
	require.NoError(t, repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'expense_records'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestInitializeSchema_ExistingTable(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	// A table created outside the migration bookkeeping.
	legacy, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE expense_records (
		transaction_id INTEGER, category TEXT, description TEXT, amount REAL,
		expense_date DATE, updated_at TIMESTAMP,
		CONSTRAINT unique_columns UNIQUE(transaction_id))`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO expense_records VALUES (1, 'Food', 'old', 5.5, '2024-01-01 00:00:00', '2024-01-01 12:00:00.123456')`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	created, err := repo.InitializeSchema(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "old", all[0].Description)
	assert.Equal(t, 2024, all[0].ExpenseDate.Year())
	assert.False(t, all[0].UpdatedAt.IsZero())
}

func TestListAll_ReturnsInsertedSet(t *testing.T) {
	ctx := context.Background()
	repo := createTestRepository(t)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	for _, id := range []int64{4, 1, 9} {
		require.NoError(t, repo.Insert(ctx, testExpense(id, "1")))
	}
	require.NoError(t, repo.DeleteByID(ctx, 1))

	all, err = repo.ListAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{4, 9}, ids(all))
}

func TestInsert_DuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := createTestRepository(t)

	require.NoError(t, repo.Insert(ctx, testExpense(1, "10")))

	dup := testExpense(1, "99")
	dup.Category = "Other"
	err := repo.Insert(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.NotErrorIs(t, err, ErrStorage)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Food", all[0].Category)
	assert.True(t, decimal.NewFromInt(10).Equal(all[0].Amount))
}

func TestMaxTransactionID(t *testing.T) {
	ctx := context.Background()
	repo := createTestRepository(t)

	_, ok, err := repo.MaxTransactionID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, id := range []int64{1, 3, 2} {
		require.NoError(t, repo.Insert(ctx, testExpense(id, "1")))
	}

	maxID, ok, err := repo.MaxTransactionID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), maxID)
}

func TestTotalAmount(t *testing.T) {
	ctx := context.Background()
	repo := createTestRepository(t)

	_, ok, err := repo.TotalAmount(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Insert(ctx, testExpense(1, "10.5")))
	require.NoError(t, repo.Insert(ctx, testExpense(2, "20.25")))

	total, ok, err := repo.TotalAmount(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "30.75", total.String())
}

func TestTextAmounts(t *testing.T) {
	ctx := context.Background()
	repo := createTestRepository(t)

	for i, raw := range []string{"100 Rs", ""} {
		e := testExpense(int64(i+1), "0")
		e.AmountText = &raw
		require.NoError(t, repo.Insert(ctx, e))
	}
	require.NoError(t, repo.Insert(ctx, testExpense(3, "5")))

	var storedTypes []string
	rows, err := repo.db.QueryContext(ctx, `SELECT typeof(amount) FROM expense_records ORDER BY transaction_id`)
	require.NoError(t, err)
	for rows.Next() {
		var typ string
		require.NoError(t, rows.Scan(&typ))
		storedTypes = append(storedTypes, typ)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"text", "text", "real"}, storedTypes)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	byID := make(map[int64]core.Expense, len(all))
	for _, e := range all {
		byID[e.TransactionID] = e
	}
	require.NotNil(t, byID[1].AmountText)
	assert.Equal(t, "100 Rs", *byID[1].AmountText)
	require.NotNil(t, byID[2].AmountText)
	assert.Equal(t, "", *byID[2].AmountText)
	assert.Nil(t, byID[3].AmountText)
	assert.Equal(t, "5", byID[3].Amount.String())

	total, ok, err := repo.TotalAmount(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "105", total.String())
}

func TestListAll_LegacyTextAmount(t *testing.T) {
	ctx := context.Background()
	repo := createTestRepository(t)

	_, err := repo.db.ExecContext(ctx, `INSERT INTO expense_records VALUES (1, 'Food', 'x', '100 Rs', '2024-01-01 00:00:00', NULL)`)
	require.NoError(t, err)
	_, err = repo.db.ExecContext(ctx, `INSERT INTO expense_records VALUES (2, 'Food', 'y', ' 7 ', '2024-01-01 00:00:00', NULL)`)
	require.NoError(t, err)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, e := range all {
		switch e.TransactionID {
		case 1:
			require.NotNil(t, e.AmountText)
			assert.Equal(t, "100 Rs", *e.AmountText)
		case 2:
			assert.Nil(t, e.AmountText)
			assert.Equal(t, "7", e.Amount.String())
		}
	}
}

func TestToAmount(t *testing.T) {
	cases := []struct {
		in   any
		want string
		text *string
	}{
		{nil, "0", nil},
		{12.5, "12.5", nil},
		{int64(3), "3", nil},
		{"4.25", "4.25", nil},
		{[]byte("8"), "8", nil},
	}
	for _, tc := range cases {
		d, text, err := toAmount(tc.in)
		require.NoError(t, err, "%v", tc.in)
		assert.Nil(t, text, "%v", tc.in)
		assert.Equal(t, tc.want, d.String(), "%v", tc.in)
	}

	_, text, err := toAmount("ten")
	require.NoError(t, err)
	require.NotNil(t, text)
	assert.Equal(t, "ten", *text)

	_, _, err = toAmount(true)
	assert.Error(t, err)
}

func TestDeleteByID_Missing(t *testing.T) {
	ctx := context.Background()
	repo := createTestRepository(t)

	require.NoError(t, repo.Insert(ctx, testExpense(1, "5")))
	before, err := repo.ListAll(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByID(ctx, 42))

	after, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids(before), ids(after))
}

func TestRepository_EndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := createTestRepository(t)

	date, err := core.ParseExpenseDate("01/01/2024")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, core.Expense{
		TransactionID: 1,
		Category:      "Food",
		Description:   "groceries",
		Amount:        decimal.NewFromFloat(100.0),
		ExpenseDate:   date,
		UpdatedAt:     time.Now(),
	}))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, int64(1), got.TransactionID)
	assert.Equal(t, "Food", got.Category)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Amount))
	assert.True(t, got.ExpenseDate.Equal(date), "expense_date %v", got.ExpenseDate)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, repo.DeleteByID(ctx, 1))

	all, err = repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, ok, err := repo.TotalAmount(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClosedRepository_StorageError(t *testing.T) {
	repo := createTestRepository(t)
	require.NoError(t, repo.Close())

	_, err := repo.ListAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list expenses", se.Op)
}

func TestToTime(t *testing.T) {
	cases := []struct {
		in   any
		want time.Time
		ok   bool
	}{
		{nil, time.Time{}, true},
		{"2024-01-01 00:00:00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{[]byte("2024-03-05T10:00:00Z"), time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-05 10:00:00+00:00", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{3.5, time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := toTime(tc.in)
		if tc.ok {
			require.NoError(t, err, "%v", tc.in)
			assert.True(t, got.Equal(tc.want), "%v: got %v", tc.in, got)
		} else {
			assert.Error(t, err, "%v", tc.in)
		}
	}
}
