package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
	"github.com/fairyhunter13/voucher-ledger-system/pkg/database"
)

// VoucherRepositoryInterface defines the data access needed for vouchers.
type VoucherRepositoryInterface interface {
	Insert(ctx context.Context, v *model.Voucher) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error)
	GetByNumber(ctx context.Context, number string) (*model.Voucher, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Voucher, error)
	Update(ctx context.Context, tx database.TxQuerier, v *model.Voucher) error
	ListByOrderID(ctx context.Context, orderID string) ([]uuid.UUID, error)
	ListExpirable(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// TemplateRepositoryInterface defines the data access needed for templates.
type TemplateRepositoryInterface interface {
	Insert(ctx context.Context, t *model.Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Template, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RedemptionObserver is notified after every successfully committed voucher
// mutation. Observers are registered at construction; there is no global
// event bus. Observer failures never affect the mutation itself.
type RedemptionObserver interface {
	AfterMutation(ctx context.Context, v *model.Voucher)
}

// SnapshotCacheInterface is the optional read-through cache for snapshots.
type SnapshotCacheInterface interface {
	Get(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error)
	Set(ctx context.Context, snap *model.VoucherSnapshot) error
}

// StoreSettings carries store-level fallbacks captured at issuance.
type StoreSettings struct {
	Currency     string
	Jurisdiction Jurisdiction
}

// VoucherService orchestrates voucher lifecycle operations. Every mutation
// runs in a single transaction: read the voucher under a row lock, apply the
// domain rules against the freshly read ledger, write back the full result
// with a compare-and-swap on the version column.
type VoucherService struct {
	pool      TxBeginner
	vouchers  VoucherRepositoryInterface
	templates TemplateRepositoryInterface
	catalog   ProductCatalog
	tax       TaxEngine
	orders    OrderSystem
	customers CustomerDirectory
	store     StoreSettings
	cache     SnapshotCacheInterface
	observers []RedemptionObserver
}

// NewVoucherService creates a VoucherService. Observers are fixed at
// construction time. cache may be nil.
func NewVoucherService(
	pool *pgxpool.Pool,
	vouchers VoucherRepositoryInterface,
	templates TemplateRepositoryInterface,
	catalog ProductCatalog,
	tax TaxEngine,
	orders OrderSystem,
	customers CustomerDirectory,
	store StoreSettings,
	cache SnapshotCacheInterface,
	observers ...RedemptionObserver,
) *VoucherService {
	return &VoucherService{
		pool:      pool,
		vouchers:  vouchers,
		templates: templates,
		catalog:   catalog,
		tax:       tax,
		orders:    orders,
		customers: customers,
		store:     store,
		cache:     cache,
		observers: observers,
	}
}

// NewVoucherServiceWithTxBeginner creates a VoucherService with a custom
// TxBeginner. Primarily used for testing.
func NewVoucherServiceWithTxBeginner(
	pool TxBeginner,
	vouchers VoucherRepositoryInterface,
	templates TemplateRepositoryInterface,
	catalog ProductCatalog,
	tax TaxEngine,
	orders OrderSystem,
	customers CustomerDirectory,
	store StoreSettings,
	cache SnapshotCacheInterface,
	observers ...RedemptionObserver,
) *VoucherService {
	return &VoucherService{
		pool:      pool,
		vouchers:  vouchers,
		templates: templates,
		catalog:   catalog,
		tax:       tax,
		orders:    orders,
		customers: customers,
		store:     store,
		cache:     cache,
		observers: observers,
	}
}

// CreateTemplate creates a voucher template.
func (s *VoucherService) CreateTemplate(ctx context.Context, req *model.CreateTemplateRequest) (*model.Template, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	t := &model.Template{
		ID:                   uuid.New(),
		Name:                 req.Name,
		Type:                 model.VoucherType(req.Type),
		ExpiryDays:           req.ExpiryDays,
		RedeemableOnline:     req.RedeemableOnline,
		RedeemableProductIDs: req.RedeemableProductIDs,
	}
	if !t.Type.IsValid() {
		return nil, ErrInvalidRequest
	}
	if err := s.templates.Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTemplate retrieves a template by id.
func (s *VoucherService) GetTemplate(ctx context.Context, id uuid.UUID) (*model.Template, error) {
	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if t == nil {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

// Issue creates a voucher from a template, capturing face value, tax and
// currency at issuance time. The voucher starts in Pending; it becomes
// Active when the owning order is paid, or through admin activation.
//
// A tax engine failure degrades issuance (tax recorded as zero) rather than
// aborting it: tax is not on the critical path of voucher validity.
func (s *VoucherService) Issue(ctx context.Context, req *model.IssueVoucherRequest) (*model.Voucher, error) {
	if req == nil || req.Quantity == nil {
		return nil, ErrInvalidRequest
	}

	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		return nil, ErrInvalidRequest
	}
	template, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.Product(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: product lookup: %s", ErrDependencyUnavailable, err)
	}

	quantity := *req.Quantity
	faceValue := product.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	currency := req.Currency
	if currency == "" {
		currency = s.store.Currency
	}

	now := time.Now()
	v := &model.Voucher{
		ID:              uuid.New(),
		Number:          newVoucherNumber(),
		TemplateID:      template.ID,
		Type:            template.Type,
		Status:          model.StatusPending,
		FaceValue:       faceValue,
		Currency:        currency,
		ProductID:       product.ID,
		UnitPrice:       product.UnitPrice,
		ProductQuantity: quantity,
		CustomerID:      req.CustomerID,
		OrderID:         req.OrderID,
		OrderItemID:     req.OrderItemID,
		Redemptions:     []model.Redemption{},
	}
	v.AppendAuditNote("Voucher issued.", now)

	tax, err := s.computeTax(ctx, v, product)
	if err != nil {
		log.Warn().Err(err).Str("voucher_number", v.Number).
			Msg("tax lookup failed at issuance, recording zero tax")
		tax = decimal.Zero
	}
	v.ProductTax = tax

	if err := s.vouchers.Insert(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get returns the externally visible snapshot for a voucher, read through
// the cache when one is configured. Expiry is never applied here: a voucher
// past its expiration date still reads Active until the sweep runs.
func (s *VoucherService) Get(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error) {
	if s.cache != nil {
		snap, err := s.cache.Get(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("voucher_id", id.String()).Msg("snapshot cache read failed")
		} else if snap != nil {
			return snap, nil
		}
	}

	v, err := s.vouchers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}

	snap := v.Snapshot()
	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			log.Warn().Err(err).Str("voucher_id", id.String()).Msg("snapshot cache write failed")
		}
	}
	return snap, nil
}

// GetVoucher returns the full voucher record.
func (s *VoucherService) GetVoucher(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	v, err := s.vouchers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}
	return v, nil
}

// Redeem validates and records a redemption through the strategy for the
// voucher's type.
func (s *VoucherService) Redeem(ctx context.Context, id uuid.UUID, req *model.RedeemVoucherRequest, rc RenderContext) (*model.RedemptionResponse, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	var resp *model.RedemptionResponse
	_, err := s.Mutate(ctx, id, func(v *model.Voucher) error {
		strategy := StrategyFor(v.Type)
		r, err := strategy.Redeem(v, req, rc)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SetRedemptions atomically replaces the whole ledger.
func (s *VoucherService) SetRedemptions(ctx context.Context, id uuid.UUID, req *model.SetRedemptionsRequest) (*model.VoucherSnapshot, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	entries := make([]model.Redemption, 0, len(req.Redemptions))
	for _, in := range req.Redemptions {
		entries = append(entries, model.Redemption{
			Amount:   in.Amount,
			Quantity: in.Quantity,
			Date:     in.Date,
			Notes:    in.Notes,
			OrderID:  in.OrderID,
			UserID:   in.UserID,
		})
	}
	v, err := s.Mutate(ctx, id, func(v *model.Voucher) error {
		return v.SetRedemptions(entries)
	})
	if err != nil {
		return nil, err
	}
	return v.Snapshot(), nil
}

// Void places an administrative hold on the voucher.
func (s *VoucherService) Void(ctx context.Context, id uuid.UUID, reason, userID string) (*model.VoucherSnapshot, error) {
	v, err := s.Mutate(ctx, id, func(v *model.Voucher) error {
		return v.Void(reason, userID, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return v.Snapshot(), nil
}

// Restore lifts a void without restoring consumed value.
func (s *VoucherService) Restore(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error) {
	v, err := s.Mutate(ctx, id, func(v *model.Voucher) error {
		return v.Restore(time.Now())
	})
	if err != nil {
		return nil, err
	}
	return v.Snapshot(), nil
}

// Activate moves a voucher to Active and computes its expiration date once.
func (s *VoucherService) Activate(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error) {
	v, err := s.Mutate(ctx, id, func(v *model.Voucher) error {
		template, err := s.GetTemplate(ctx, v.TemplateID)
		if err != nil {
			return err
		}
		return v.Activate(template, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return v.Snapshot(), nil
}

// RecalculateTax refreshes the captured tax from the live product record.
// It is an explicit operation only, and is refused once any redemption
// exists so that consumed-value accounting is never changed retroactively.
func (s *VoucherService) RecalculateTax(ctx context.Context, id uuid.UUID) (*model.VoucherSnapshot, error) {
	v, err := s.Mutate(ctx, id, func(v *model.Voucher) error {
		if len(v.Redemptions) > 0 {
			return model.ErrNotEditable
		}
		product, err := s.catalog.Product(ctx, v.ProductID)
		if err != nil {
			return fmt.Errorf("%w: product lookup: %s", ErrDependencyUnavailable, err)
		}
		tax, err := s.computeTax(ctx, v, product)
		if err != nil {
			return fmt.Errorf("%w: tax lookup: %s", ErrDependencyUnavailable, err)
		}
		v.ProductTax = tax
		v.AppendAuditNote(fmt.Sprintf("Voucher tax recalculated to %s.", tax.StringFixed(2)), time.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v.Snapshot(), nil
}

// AppendAuditNote records a note against the voucher without a status change.
func (s *VoucherService) AppendAuditNote(ctx context.Context, id uuid.UUID, note string) error {
	_, err := s.Mutate(ctx, id, func(v *model.Voucher) error {
		v.AppendAuditNote(note, time.Now())
		return nil
	})
	return err
}

// MarkArtifactGenerated records that the printable artifact exists.
func (s *VoucherService) MarkArtifactGenerated(ctx context.Context, id uuid.UUID) error {
	_, err := s.Mutate(ctx, id, func(v *model.Voucher) error {
		v.ArtifactGenerated = true
		return nil
	})
	return err
}

// Mutate runs fn against a freshly read voucher under a row lock and writes
// back the whole record with a version check. Domain failures roll the
// transaction back, leaving the ledger entirely unchanged. Observers run
// after commit only.
func (s *VoucherService) Mutate(ctx context.Context, id uuid.UUID, fn func(v *model.Voucher) error) (*model.Voucher, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	v, err := s.vouchers.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(v); err != nil {
		return nil, err
	}

	if err := s.vouchers.Update(ctx, tx, v); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.notify(ctx, v)
	return v, nil
}

func (s *VoucherService) notify(ctx context.Context, v *model.Voucher) {
	for _, o := range s.observers {
		o.AfterMutation(ctx, v)
	}
}

// computeTax resolves the tax jurisdiction in priority order
// customer -> order -> store, then asks the tax engine.
func (s *VoucherService) computeTax(ctx context.Context, v *model.Voucher, product *ProductInfo) (decimal.Decimal, error) {
	if !product.Taxable {
		return decimal.Zero, nil
	}
	jur := s.resolveJurisdiction(ctx, v)
	return s.tax.Tax(ctx, jur, product.TaxClass, v.FaceValue)
}

func (s *VoucherService) resolveJurisdiction(ctx context.Context, v *model.Voucher) Jurisdiction {
	if v.CustomerID != "" && s.customers != nil {
		if jur, err := s.customers.Jurisdiction(ctx, v.CustomerID); err == nil && jur != nil {
			return *jur
		}
	}
	if v.OrderID != "" && s.orders != nil {
		if order, err := s.orders.Order(ctx, v.OrderID); err == nil && order != nil && order.Jurisdiction != nil {
			return *order.Jurisdiction
		}
	}
	return s.store.Jurisdiction
}

// newVoucherNumber generates the human-facing voucher code used as the
// checkout coupon code.
func newVoucherNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "VCH-" + raw[:12]
}
