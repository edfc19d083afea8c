package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
	"github.com/fairyhunter13/voucher-ledger-system/internal/service"
)

// mockRow implements pgx.Row for testing single-row reads.
type mockRow struct {
	scanFn func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.scanFn != nil {
		return m.scanFn(dest...)
	}
	return nil
}

// mockPool implements PoolInterface for testing. It also satisfies
// database.TxQuerier, so the same mock serves locked reads and updates.
type mockPool struct {
	execFn     func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if m.execFn != nil {
		return m.execFn(ctx, sql, arguments...)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}
	return &mockRow{}
}

func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}
	return nil, errors.New("no query configured")
}

func testVoucher() *model.Voucher {
	return &model.Voucher{
		ID:         uuid.New(),
		Number:     "VCH-REPO00000001",
		TemplateID: uuid.New(),
		Type:       model.TypeMulti,
		Status:     model.StatusActive,
		FaceValue:  decimal.RequireFromString("50.00"),
		ProductTax: decimal.RequireFromString("4.38"),
		Currency:   "USD",
		UnitPrice:  decimal.RequireFromString("50.00"),
		Version:    3,
	}
}

func TestVoucherRepository_Insert_Success(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			capturedArgs = arguments
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	repo := NewVoucherRepositoryWithPool(mock)
	v := testVoucher()
	err := repo.Insert(context.Background(), v)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "INSERT INTO vouchers")
	assert.Equal(t, v.ID, capturedArgs[0])
	assert.Equal(t, "VCH-REPO00000001", capturedArgs[1])
	// Decimals cross the wire as strings to avoid float rounding. String()
	// trims trailing zeros, so "50.00" is written as "50".
	assert.Equal(t, "50", capturedArgs[5])
	assert.Equal(t, "4.38", capturedArgs[6])
	// An empty ledger is stored as an empty jsonb array, never null.
	assert.Equal(t, []byte("[]"), capturedArgs[15])
	assert.Equal(t, []byte("[]"), capturedArgs[16])
	assert.Equal(t, int64(1), v.Version)
}

func TestVoucherRepository_Insert_DuplicateNumber(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
		},
	}

	repo := NewVoucherRepositoryWithPool(mock)
	err := repo.Insert(context.Background(), testVoucher())
	assert.ErrorIs(t, err, service.ErrVoucherExists)
}

func TestVoucherRepository_GetByID_NotFound(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := NewVoucherRepositoryWithPool(mock)
	v, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err, "not found is not a repository error")
	assert.Nil(t, v)
}

func TestVoucherRepository_GetForUpdate_NotFound(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := NewVoucherRepositoryWithPool(mock)
	_, err := repo.GetForUpdate(context.Background(), mock, uuid.New())
	assert.ErrorIs(t, err, service.ErrVoucherNotFound)
}

func TestVoucherRepository_GetForUpdate_LocksRow(t *testing.T) {
	var capturedSQL string
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := NewVoucherRepositoryWithPool(mock)
	_, _ = repo.GetForUpdate(context.Background(), mock, uuid.New())
	assert.Contains(t, capturedSQL, "FOR UPDATE")
}

func TestVoucherRepository_Update_Success(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			capturedArgs = arguments
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	repo := NewVoucherRepositoryWithPool(mock)
	v := testVoucher()
	err := repo.Update(context.Background(), mock, v)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "version = version + 1")
	assert.Contains(t, capturedSQL, "AND version = $11")
	assert.Equal(t, int64(3), capturedArgs[10], "compares against the version that was read")
	assert.Equal(t, int64(4), v.Version, "in-memory version follows the row")
}

func TestVoucherRepository_Update_VersionConflict(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}

	repo := NewVoucherRepositoryWithPool(mock)
	v := testVoucher()
	err := repo.Update(context.Background(), mock, v)

	assert.ErrorIs(t, err, service.ErrVersionConflict)
	assert.Equal(t, int64(3), v.Version, "a failed update leaves the version alone")
}

func TestVoucherRepository_ListByOrderID_QueryShape(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	queryErr := errors.New("stop here")
	mock := &mockPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			capturedSQL = sql
			capturedArgs = args
			return nil, queryErr
		},
	}

	repo := NewVoucherRepositoryWithPool(mock)
	_, err := repo.ListByOrderID(context.Background(), "order_77")

	assert.ErrorIs(t, err, queryErr)
	assert.Contains(t, capturedSQL, "WHERE order_id = $1")
	require.Len(t, capturedArgs, 1)
	assert.Equal(t, "order_77", capturedArgs[0])
}

func TestVoucherRepository_ListExpirable_QueryShape(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	queryErr := errors.New("stop here")
	mock := &mockPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			capturedSQL = sql
			capturedArgs = args
			return nil, queryErr
		},
	}

	repo := NewVoucherRepositoryWithPool(mock)
	now := time.Now()
	_, err := repo.ListExpirable(context.Background(), now)

	assert.ErrorIs(t, err, queryErr)
	assert.Contains(t, capturedSQL, "status IN ('active', 'voided')")
	assert.Contains(t, capturedSQL, "expiration_date <= $1")
	require.Len(t, capturedArgs, 1)
	assert.Equal(t, now, capturedArgs[0])
}
