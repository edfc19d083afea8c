package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Voucher is one issued instance of a template. It owns the redemption
// ledger, which is the sole source of truth for its remaining balance.
// Face value, tax and currency are captured at issuance and never
// recomputed from live product data.
type Voucher struct {
	ID         uuid.UUID   `json:"id"`
	Number     string      `json:"number"`
	TemplateID uuid.UUID   `json:"template_id"`
	Type       VoucherType `json:"type"`
	Status     Status      `json:"status"`

	FaceValue       decimal.Decimal `json:"face_value"`
	ProductTax      decimal.Decimal `json:"product_tax"`
	Currency        string          `json:"currency"`
	ProductID       string          `json:"product_id"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ProductQuantity int             `json:"product_quantity"`

	CustomerID  string `json:"customer_id,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	OrderItemID string `json:"order_item_id,omitempty"`

	ExpirationDate *time.Time `json:"expiration_date,omitempty"`

	Redemptions []Redemption `json:"redemptions"`
	StatusLog   []StatusNote `json:"status_log"`

	VoidReason string     `json:"void_reason,omitempty"`
	VoidedBy   string     `json:"voided_by,omitempty"`
	VoidedDate *time.Time `json:"voided_date,omitempty"`

	ArtifactGenerated bool `json:"artifact_generated"`

	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// RedeemRequest carries a resolved redemption against the ledger. Exactly one
// of Amount or Quantity may be supplied; when only Quantity is given the
// amount is resolved from the captured unit price.
type RedeemRequest struct {
	Amount   *decimal.Decimal
	Quantity int
	Notes    string
	OrderID  string
	UserID   string
	Date     time.Time
}

// VoucherSnapshot is the read model exposed to external collaborators.
type VoucherSnapshot struct {
	ID                uuid.UUID       `json:"id"`
	Number            string          `json:"number"`
	Status            Status          `json:"status"`
	RemainingValue    decimal.Decimal `json:"remaining_value"`
	RemainingQuantity int             `json:"remaining_quantity"`
	Currency          string          `json:"currency"`
	ExpirationDate    *time.Time      `json:"expiration_date,omitempty"`
}

// TotalRedeemed returns the sum of all ledger entry amounts.
func (v *Voucher) TotalRedeemed() decimal.Decimal {
	return SumRedemptions(v.Redemptions)
}

// RemainingValue returns the balance left on the voucher, derived from the
// ledger and nothing else. A voided voucher reports zero unless the caller
// asks to see through the hold: voiding blocks the remaining balance but
// does not roll back consumed value.
func (v *Voucher) RemainingValue(includeVoided bool) decimal.Decimal {
	if v.Status == StatusVoided && !includeVoided {
		return decimal.Zero
	}
	remaining := v.FaceValue.Sub(v.TotalRedeemed())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// RemainingQuantity returns the units left on a single-purpose voucher.
// Multi-purpose vouchers track currency only and always report zero.
func (v *Voucher) RemainingQuantity() int {
	if v.Type != TypeSingle {
		return 0
	}
	remaining := v.ProductQuantity - SumQuantities(v.Redemptions)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Redeem validates a redemption against the current ledger state and appends
// it. The balance invariant (sum of amounts never exceeds face value) is
// enforced here, before the append, regardless of entry point. On exhaustion
// the voucher transitions to Redeemed.
func (v *Voucher) Redeem(req RedeemRequest) (*Redemption, error) {
	if !v.Status.IsRedeemable() {
		return nil, ErrNotRedeemable
	}

	remaining := v.RemainingValue(false)
	if remaining.IsZero() {
		return nil, ErrNoRemainingValue
	}

	amount, quantity, err := v.resolveRedemption(req)
	if err != nil {
		return nil, err
	}

	if v.Type == TypeSingle && req.Quantity > 0 && req.Quantity > v.RemainingQuantity() {
		return nil, ErrQuantityExceedsRemaining
	}
	if amount.GreaterThan(remaining) {
		return nil, ErrAmountExceedsRemaining
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}
	entry := Redemption{
		ID:       uuid.New(),
		Amount:   amount,
		Quantity: quantity,
		Date:     date,
		Notes:    req.Notes,
		OrderID:  req.OrderID,
		UserID:   req.UserID,
	}
	v.Redemptions = append(v.Redemptions, entry)

	if v.RemainingValue(false).IsZero() {
		if err := v.transition(StatusRedeemed, "", date); err != nil {
			// Append already validated the ledger; an illegal transition here
			// means the status and ledger disagree. Undo the append.
			v.Redemptions = v.Redemptions[:len(v.Redemptions)-1]
			return nil, err
		}
	}
	return &v.Redemptions[len(v.Redemptions)-1], nil
}

// resolveRedemption turns the request into a concrete (amount, quantity)
// pair and applies the per-entry type rules.
func (v *Voucher) resolveRedemption(req RedeemRequest) (decimal.Decimal, int, error) {
	var amount decimal.Decimal
	switch {
	case req.Amount != nil:
		amount = *req.Amount
	case req.Quantity > 0:
		amount = v.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
	default:
		return decimal.Zero, 0, ErrInvalidAmount
	}
	if !amount.IsPositive() {
		return decimal.Zero, 0, ErrInvalidAmount
	}

	quantity := 0
	if v.Type == TypeSingle {
		// Core tender-control rule for single-purpose vouchers: whole-unit
		// increments only.
		if !v.UnitPrice.IsPositive() || !amount.Mod(v.UnitPrice).IsZero() {
			return decimal.Zero, 0, ErrAmountNotMultipleOfUnitPrice
		}
		quantity = int(amount.Div(v.UnitPrice).IntPart())
	}
	return amount, quantity, nil
}

// SetRedemptions atomically replaces the entire ledger, re-validating every
// entry and the running total against the face value. The whole-ledger
// replace exists because removing an entry can change which status the
// voucher should be in; recomputation must be atomic and order-independent.
// On failure the ledger is left untouched.
func (v *Voucher) SetRedemptions(entries []Redemption) error {
	replacement := make([]Redemption, 0, len(entries))
	total := decimal.Zero
	for _, e := range entries {
		if !e.Amount.IsPositive() {
			return ErrInvalidAmount
		}
		if v.Type == TypeSingle {
			if !v.UnitPrice.IsPositive() || !e.Amount.Mod(v.UnitPrice).IsZero() {
				return ErrAmountNotMultipleOfUnitPrice
			}
			if e.Quantity == 0 {
				e.Quantity = int(e.Amount.Div(v.UnitPrice).IntPart())
			}
		}
		total = total.Add(e.Amount)
		if total.GreaterThan(v.FaceValue) {
			return ErrAmountExceedsRemaining
		}
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.Date.IsZero() {
			e.Date = time.Now()
		}
		replacement = append(replacement, e)
	}

	// Corrections may always return value to the ledger, which is what order
	// reversal on a voided voucher relies on. Net-new consumption needs a
	// redemption-capable status, the same rule Redeem enforces per entry.
	if total.GreaterThan(v.TotalRedeemed()) && !v.Status.IsRedeemable() {
		return ErrNotRedeemable
	}

	v.Redemptions = replacement

	remaining := v.FaceValue.Sub(total)
	now := time.Now()
	if remaining.IsZero() && v.Status == StatusActive {
		return v.transition(StatusRedeemed, "", now)
	}
	if remaining.IsPositive() && v.Status == StatusRedeemed {
		return v.transition(StatusActive, "", now)
	}
	return nil
}

// Void places an administrative hold on the voucher. The ledger is untouched.
func (v *Voucher) Void(reason, userID string, now time.Time) error {
	if v.Status != StatusPending && v.Status != StatusActive {
		return ErrNotEditable
	}
	if err := v.transition(StatusVoided, reason, now); err != nil {
		return err
	}
	v.VoidReason = reason
	v.VoidedBy = userID
	voidedAt := now
	v.VoidedDate = &voidedAt
	return nil
}

// Restore lifts a void. Consumed value is not restored: the remaining
// balance picks up exactly where it was held.
func (v *Voucher) Restore(now time.Time) error {
	if v.Status != StatusVoided {
		return ErrNotEditable
	}
	if err := v.transition(StatusActive, "", now); err != nil {
		return err
	}
	v.VoidReason = ""
	v.VoidedBy = ""
	v.VoidedDate = nil
	return nil
}

// Activate moves the voucher to Active and computes the expiration date
// exactly once from the template's expiry policy.
func (v *Voucher) Activate(t *Template, now time.Time) error {
	if v.Status != StatusPending && v.Status != StatusVoided {
		return ErrNotEditable
	}
	if err := v.transition(StatusActive, "", now); err != nil {
		return err
	}
	if v.ExpirationDate == nil {
		v.ExpirationDate = t.ExpirationFrom(now)
	}
	return nil
}

// ExpireIfDue transitions the voucher to Expired when its expiration date has
// passed. Only the periodic sweep calls this; expiry is never applied eagerly
// on read. Returns true if the status changed.
func (v *Voucher) ExpireIfDue(now time.Time) (bool, error) {
	if v.Status != StatusActive && v.Status != StatusVoided {
		return false, nil
	}
	if v.ExpirationDate == nil || now.Before(*v.ExpirationDate) {
		return false, nil
	}
	if err := v.transition(StatusExpired, "", now); err != nil {
		return false, err
	}
	return true, nil
}

// AppendAuditNote records a free-form note in the status log without a
// status change. Permitted in any status.
func (v *Voucher) AppendAuditNote(note string, now time.Time) {
	v.StatusLog = append(v.StatusLog, StatusNote{Date: now, Note: note})
}

// transition applies a status change through the transition table and
// records the audit note as a side effect of the change itself.
func (v *Voucher) transition(to Status, reason string, now time.Time) error {
	if !v.Status.CanTransition(to) {
		return ErrInvalidTransition
	}
	note := TransitionNote(v.Status, to, reason)
	v.Status = to
	v.StatusLog = append(v.StatusLog, StatusNote{Date: now, Note: note})
	return nil
}

// Snapshot builds the externally visible read model.
func (v *Voucher) Snapshot() *VoucherSnapshot {
	return &VoucherSnapshot{
		ID:                v.ID,
		Number:            v.Number,
		Status:            v.Status,
		RemainingValue:    v.RemainingValue(false),
		RemainingQuantity: v.RemainingQuantity(),
		Currency:          v.Currency,
		ExpirationDate:    v.ExpirationDate,
	}
}
