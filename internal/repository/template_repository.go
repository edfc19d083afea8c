package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
	"github.com/fairyhunter13/voucher-ledger-system/internal/service"
)

// TemplateRepository provides data access for voucher templates.
type TemplateRepository struct {
	pool PoolInterface
}

// NewTemplateRepository creates a new TemplateRepository with the given pool.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// NewTemplateRepositoryWithPool creates a new TemplateRepository with a
// custom pool interface. This is primarily used for testing.
func NewTemplateRepositoryWithPool(pool PoolInterface) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// Insert inserts a new template.
// Returns service.ErrTemplateExists if a template with the same name exists.
func (r *TemplateRepository) Insert(ctx context.Context, t *model.Template) error {
	productIDs := t.RedeemableProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}
	ids, err := json.Marshal(productIDs)
	if err != nil {
		return fmt.Errorf("marshal redeemable product ids: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO templates (id, name, type, expiry_days, redeemable_online, redeemable_product_ids)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, string(t.Type), t.ExpiryDays, t.RedeemableOnline, ids)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrTemplateExists
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// GetByID retrieves a template by id.
// Returns nil, nil if the template is not found (service layer handles this).
func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Template, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, type, expiry_days, redeemable_online, redeemable_product_ids, created_at, updated_at
		FROM templates WHERE id = $1`, id)

	var (
		t            model.Template
		templateType string
		productIDs   []byte
	)
	err := row.Scan(&t.ID, &t.Name, &templateType, &t.ExpiryDays, &t.RedeemableOnline, &productIDs, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}

	t.Type = model.VoucherType(templateType)
	if err := json.Unmarshal(productIDs, &t.RedeemableProductIDs); err != nil {
		return nil, fmt.Errorf("unmarshal redeemable product ids: %w", err)
	}
	return &t, nil
}
