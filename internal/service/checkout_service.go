package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
)

// finalizedStatuses are the order states on which an applied voucher coupon
// becomes a real redemption.
var finalizedStatuses = map[string]bool{
	"paid":       true,
	"completed":  true,
	"processing": true,
	"on-hold":    true,
}

// reversalStatuses are the order states that undo a voucher redemption.
// Partial refunds keep the redemption: only a full reversal of the order
// returns value to the voucher.
var reversalStatuses = map[string]bool{
	"failed":    true,
	"cancelled": true,
	"refunded":  true,
}

// CheckoutService bridges the ledger to the external coupon/checkout system,
// which has no native concept of remaining voucher value.
type CheckoutService struct {
	pool      TxBeginner
	vouchers  VoucherRepositoryInterface
	templates TemplateRepositoryInterface
	fields    *model.FieldSet
	observers []RedemptionObserver
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(pool *pgxpool.Pool, vouchers VoucherRepositoryInterface, templates TemplateRepositoryInterface, observers ...RedemptionObserver) *CheckoutService {
	return &CheckoutService{
		pool:      pool,
		vouchers:  vouchers,
		templates: templates,
		fields:    model.NewFieldSet(),
		observers: observers,
	}
}

// NewCheckoutServiceWithTxBeginner creates a CheckoutService with a custom
// TxBeginner. Primarily used for testing.
func NewCheckoutServiceWithTxBeginner(pool TxBeginner, vouchers VoucherRepositoryInterface, templates TemplateRepositoryInterface, observers ...RedemptionObserver) *CheckoutService {
	return &CheckoutService{
		pool:      pool,
		vouchers:  vouchers,
		templates: templates,
		fields:    model.NewFieldSet(),
		observers: observers,
	}
}

// CouponForCode projects a voucher as checkout coupon data. A multi-purpose
// voucher becomes a fixed deduction of min(remaining, order total), applied
// after tax like store credit and displayed as its own line item. A
// single-purpose voucher becomes a 100%-off discount scoped to its
// template's redeemable products, limited to the remaining quantity.
func (s *CheckoutService) CouponForCode(ctx context.Context, code, orderCurrency string, orderTotal decimal.Decimal) (*model.CouponProjection, error) {
	v, err := s.vouchers.GetByNumber(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get voucher by number: %w", err)
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}

	if v.Status != model.StatusActive {
		return nil, model.ErrNotRedeemable
	}

	template, err := s.templates.GetByID(ctx, v.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}
	if !template.CanRedeemOnline() {
		return nil, model.ErrNotRedeemable
	}

	number, _ := s.fields.Value(v, model.FieldVoucherNumber)
	remainingDisplay, _ := s.fields.Value(v, model.FieldRemainingValue)
	description := fmt.Sprintf("Voucher %s, %s remaining", number, remainingDisplay)

	if v.Type == model.TypeMulti {
		// The fixed-amount projection is currency-bound, so the caller must
		// state the order currency. An omitted currency is not a match.
		if orderCurrency == "" {
			return nil, ErrInvalidRequest
		}
		if orderCurrency != v.Currency {
			return nil, model.ErrCurrencyMismatch
		}
		amount := v.RemainingValue(false)
		if orderTotal.IsPositive() && orderTotal.LessThan(amount) {
			amount = orderTotal
		}
		return &model.CouponProjection{
			Code:            v.Number,
			DiscountType:    "cart_fixed",
			Amount:          amount,
			Currency:        v.Currency,
			AppliedAfterTax: true,
			Description:     description,
		}, nil
	}

	return &model.CouponProjection{
		Code:         v.Number,
		DiscountType: "product_percent",
		Amount:       decimal.NewFromInt(100),
		ProductIDs:   template.RedeemableProductIDs,
		UsageLimit:   v.RemainingQuantity(),
		Currency:     v.Currency,
		Description:  description,
	}, nil
}

// OnOrderStatusChanged reacts to an order status event. Finalized orders
// activate the vouchers issued against the order and turn each applied
// voucher coupon into a ledger redemption exactly once; failed, cancelled or
// fully refunded orders reverse those redemptions and void the issued
// vouchers. Other statuses are ignored.
func (s *CheckoutService) OnOrderStatusChanged(ctx context.Context, orderID string, req *model.OrderStatusRequest) error {
	if req == nil {
		return ErrInvalidRequest
	}
	switch {
	case finalizedStatuses[req.Status]:
		if err := s.activateIssued(ctx, orderID); err != nil {
			return err
		}
		return s.finalize(ctx, orderID, req.Lines)
	case reversalStatuses[req.Status]:
		if err := s.reverse(ctx, orderID, req.Lines); err != nil {
			return err
		}
		return s.voidIssued(ctx, orderID, req.Status)
	default:
		return nil
	}
}

// activateIssued moves every pending voucher issued against the order to
// Active. Activation computes the expiration date and, through the observer
// chain, requests the printable artifact. Vouchers already past Pending are
// left alone, which keeps a repeated event a no-op.
func (s *CheckoutService) activateIssued(ctx context.Context, orderID string) error {
	ids, err := s.vouchers.ListByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.activateIssuedVoucher(ctx, id); err != nil {
			return fmt.Errorf("activate voucher %s for order %s: %w", id, orderID, err)
		}
	}
	return nil
}

func (s *CheckoutService) activateIssuedVoucher(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	v, err := s.vouchers.GetForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if v.Status != model.StatusPending {
		return nil
	}

	template, err := s.templates.GetByID(ctx, v.TemplateID)
	if err != nil {
		return fmt.Errorf("get template: %w", err)
	}
	if template == nil {
		return ErrTemplateNotFound
	}
	if err := v.Activate(template, time.Now()); err != nil {
		return err
	}

	if err := s.vouchers.Update(ctx, tx, v); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.notify(ctx, v)
	return nil
}

// voidIssued places a hold on the order's vouchers when the order itself
// falls through. Consumed and expired vouchers are left alone; a restore
// lifts the hold if the order situation is resolved by hand.
func (s *CheckoutService) voidIssued(ctx context.Context, orderID, status string) error {
	ids, err := s.vouchers.ListByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	reason := fmt.Sprintf("Owning order %s %s.", orderID, status)
	for _, id := range ids {
		if err := s.voidIssuedVoucher(ctx, id, reason); err != nil {
			return fmt.Errorf("void voucher %s for order %s: %w", id, orderID, err)
		}
	}
	return nil
}

func (s *CheckoutService) voidIssuedVoucher(ctx context.Context, id uuid.UUID, reason string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	v, err := s.vouchers.GetForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if v.Status != model.StatusPending && v.Status != model.StatusActive {
		return nil
	}
	if err := v.Void(reason, "", time.Now()); err != nil {
		return err
	}

	if err := s.vouchers.Update(ctx, tx, v); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.notify(ctx, v)
	return nil
}

// finalize records the discount actually granted on the order against each
// voucher's ledger. A ledger entry carrying the order id is the idempotency
// marker: a repeated event for the same order is a no-op.
func (s *CheckoutService) finalize(ctx context.Context, orderID string, lines []model.OrderCouponLine) error {
	for _, line := range lines {
		if err := s.finalizeLine(ctx, orderID, line); err != nil {
			return fmt.Errorf("finalize coupon %s on order %s: %w", line.Code, orderID, err)
		}
	}
	return nil
}

func (s *CheckoutService) finalizeLine(ctx context.Context, orderID string, line model.OrderCouponLine) error {
	v, err := s.vouchers.GetByNumber(ctx, line.Code)
	if err != nil {
		return fmt.Errorf("get voucher by number: %w", err)
	}
	if v == nil {
		return ErrVoucherNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	v, err = s.vouchers.GetForUpdate(ctx, tx, v.ID)
	if err != nil {
		return err
	}

	for _, e := range v.Redemptions {
		if e.OrderID == orderID {
			log.Info().
				Str("voucher_number", v.Number).
				Str("order_id", orderID).
				Msg("order already redeemed against voucher, skipping")
			return nil
		}
	}

	amount := line.DiscountAmount
	req := model.RedeemRequest{
		Amount:  &amount,
		Notes:   fmt.Sprintf("Voucher redeemed on order %s.", orderID),
		OrderID: orderID,
		Date:    time.Now(),
	}
	if v.Type == model.TypeSingle && line.Quantity > 0 {
		req.Quantity = line.Quantity
	}
	if _, err := v.Redeem(req); err != nil {
		return err
	}

	if err := s.vouchers.Update(ctx, tx, v); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.notify(ctx, v)
	return nil
}

// reverse removes every ledger entry attached to the order and replays the
// whole-ledger validation. Running it twice for the same order finds nothing
// left to remove the second time.
func (s *CheckoutService) reverse(ctx context.Context, orderID string, lines []model.OrderCouponLine) error {
	for _, line := range lines {
		if err := s.reverseLine(ctx, orderID, line.Code); err != nil {
			return fmt.Errorf("reverse coupon %s on order %s: %w", line.Code, orderID, err)
		}
	}
	return nil
}

func (s *CheckoutService) reverseLine(ctx context.Context, orderID, code string) error {
	v, err := s.vouchers.GetByNumber(ctx, code)
	if err != nil {
		return fmt.Errorf("get voucher by number: %w", err)
	}
	if v == nil {
		return ErrVoucherNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	v, err = s.vouchers.GetForUpdate(ctx, tx, v.ID)
	if err != nil {
		return err
	}

	kept := make([]model.Redemption, 0, len(v.Redemptions))
	for _, e := range v.Redemptions {
		if e.OrderID != orderID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(v.Redemptions) {
		log.Info().
			Str("voucher_number", v.Number).
			Str("order_id", orderID).
			Msg("no redemptions to reverse for order")
		return nil
	}

	if err := v.SetRedemptions(kept); err != nil {
		return err
	}
	v.AppendAuditNote(fmt.Sprintf("Voucher redemption reversed for order %s.", orderID), time.Now())

	if err := s.vouchers.Update(ctx, tx, v); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.notify(ctx, v)
	return nil
}

func (s *CheckoutService) notify(ctx context.Context, v *model.Voucher) {
	for _, o := range s.observers {
		o.AfterMutation(ctx, v)
	}
}
