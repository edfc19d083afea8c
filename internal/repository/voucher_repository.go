package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
	"github.com/fairyhunter13/voucher-ledger-system/internal/service"
	"github.com/fairyhunter13/voucher-ledger-system/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// VoucherRepository stores each voucher as a single row. The ledger and the
// status log live in jsonb columns on that row, which is what makes the
// whole-ledger replace-and-revalidate mutation pattern a single UPDATE.
type VoucherRepository struct {
	pool PoolInterface
}

// NewVoucherRepository creates a new VoucherRepository with the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// NewVoucherRepositoryWithPool creates a new VoucherRepository with a custom
// pool interface. This is primarily used for testing.
func NewVoucherRepositoryWithPool(pool PoolInterface) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

const voucherColumns = `id, number, template_id, type, status,
	face_value::text, product_tax::text, currency, product_id, unit_price::text, product_quantity,
	customer_id, order_id, order_item_id, expiration_date,
	redemptions, status_log, void_reason, voided_by, voided_date,
	artifact_generated, version, created_at, updated_at`

// Insert inserts a new voucher.
// Returns service.ErrVoucherExists if the voucher number already exists.
func (r *VoucherRepository) Insert(ctx context.Context, v *model.Voucher) error {
	redemptions, statusLog, err := marshalLedger(v)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO vouchers (
			id, number, template_id, type, status,
			face_value, product_tax, currency, product_id, unit_price, product_quantity,
			customer_id, order_id, order_item_id, expiration_date,
			redemptions, status_log, void_reason, voided_by, voided_date,
			artifact_generated, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,1)`,
		v.ID, v.Number, v.TemplateID, string(v.Type), string(v.Status),
		v.FaceValue.String(), v.ProductTax.String(), v.Currency, v.ProductID, v.UnitPrice.String(), v.ProductQuantity,
		v.CustomerID, v.OrderID, v.OrderItemID, v.ExpirationDate,
		redemptions, statusLog, v.VoidReason, v.VoidedBy, v.VoidedDate,
		v.ArtifactGenerated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrVoucherExists
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	v.Version = 1
	return nil
}

// GetByID retrieves a voucher by id.
// Returns nil, nil if the voucher is not found (service layer handles this).
func (r *VoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id)
	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher %s: %w", id, err)
	}
	return v, nil
}

// GetByNumber retrieves a voucher by its human-facing number (coupon code).
// Returns nil, nil if the voucher is not found.
func (r *VoucherRepository) GetByNumber(ctx context.Context, number string) (*model.Voucher, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE number = $1`, number)
	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher by number %s: %w", number, err)
	}
	return v, nil
}

// GetForUpdate retrieves a voucher with a row lock (SELECT FOR UPDATE).
// The lock is held until the transaction completes, which serialises
// concurrent mutations against the same voucher.
// Returns service.ErrVoucherNotFound if the voucher doesn't exist.
func (r *VoucherRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Voucher, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = $1 FOR UPDATE`, id)
	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("get voucher for update %s: %w", id, err)
	}
	return v, nil
}

// Update writes back the full voucher state with a compare-and-swap on the
// version column. Returns service.ErrVersionConflict when the row changed
// under us; the row lock makes that unreachable inside a FOR UPDATE
// transaction, but the check also protects any caller that skips the lock.
func (r *VoucherRepository) Update(ctx context.Context, tx database.TxQuerier, v *model.Voucher) error {
	redemptions, statusLog, err := marshalLedger(v)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE vouchers SET
			status = $2, product_tax = $3, expiration_date = $4,
			redemptions = $5, status_log = $6,
			void_reason = $7, voided_by = $8, voided_date = $9,
			artifact_generated = $10,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $11`,
		v.ID, string(v.Status), v.ProductTax.String(), v.ExpirationDate,
		redemptions, statusLog,
		v.VoidReason, v.VoidedBy, v.VoidedDate,
		v.ArtifactGenerated, v.Version)
	if err != nil {
		return fmt.Errorf("update voucher %s: %w", v.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrVersionConflict
	}
	v.Version++
	return nil
}

// ListByOrderID returns ids of vouchers issued against the given order.
// The order status webhook uses it to drive the lifecycle of provenance
// vouchers alongside the coupon redemptions.
func (r *VoucherRepository) ListByOrderID(ctx context.Context, orderID string) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM vouchers WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list vouchers for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan voucher id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher rows: %w", err)
	}
	return ids, nil
}

// ListExpirable returns ids of Active and Voided vouchers whose expiration
// date has passed. Used by the expiry sweep only.
func (r *VoucherRepository) ListExpirable(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM vouchers
		WHERE status IN ('active', 'voided')
		  AND expiration_date IS NOT NULL
		  AND expiration_date <= $1
		ORDER BY expiration_date`, now)
	if err != nil {
		return nil, fmt.Errorf("list expirable vouchers: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan voucher id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher rows: %w", err)
	}
	return ids, nil
}

func marshalLedger(v *model.Voucher) ([]byte, []byte, error) {
	entries := v.Redemptions
	if entries == nil {
		entries = []model.Redemption{}
	}
	redemptions, err := json.Marshal(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal redemptions: %w", err)
	}

	notes := v.StatusLog
	if notes == nil {
		notes = []model.StatusNote{}
	}
	statusLog, err := json.Marshal(notes)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal status log: %w", err)
	}
	return redemptions, statusLog, nil
}

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	var (
		v                     model.Voucher
		voucherType, status   string
		faceValue, productTax string
		unitPrice             string
		redemptions           []byte
		statusLog             []byte
	)
	err := row.Scan(
		&v.ID, &v.Number, &v.TemplateID, &voucherType, &status,
		&faceValue, &productTax, &v.Currency, &v.ProductID, &unitPrice, &v.ProductQuantity,
		&v.CustomerID, &v.OrderID, &v.OrderItemID, &v.ExpirationDate,
		&redemptions, &statusLog, &v.VoidReason, &v.VoidedBy, &v.VoidedDate,
		&v.ArtifactGenerated, &v.Version, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Type = model.VoucherType(voucherType)
	v.Status = model.Status(status)

	if v.FaceValue, err = decimal.NewFromString(faceValue); err != nil {
		return nil, fmt.Errorf("parse face value: %w", err)
	}
	if v.ProductTax, err = decimal.NewFromString(productTax); err != nil {
		return nil, fmt.Errorf("parse product tax: %w", err)
	}
	if v.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("parse unit price: %w", err)
	}
	if err := json.Unmarshal(redemptions, &v.Redemptions); err != nil {
		return nil, fmt.Errorf("unmarshal redemptions: %w", err)
	}
	if err := json.Unmarshal(statusLog, &v.StatusLog); err != nil {
		return nil, fmt.Errorf("unmarshal status log: %w", err)
	}
	return &v, nil
}
