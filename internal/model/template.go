package model

import (
	"time"

	"github.com/google/uuid"
)

// VoucherType distinguishes single-purpose (product grant) from
// multi-purpose (store credit) vouchers.
type VoucherType string

const (
	TypeSingle VoucherType = "single"
	TypeMulti  VoucherType = "multi"
)

// IsValid returns true if the type is a known voucher type.
func (t VoucherType) IsValid() bool {
	return t == TypeSingle || t == TypeMulti
}

// Template is the immutable-per-version blueprint a voucher is issued from.
type Template struct {
	ID                   uuid.UUID   `json:"id"`
	Name                 string      `json:"name"`
	Type                 VoucherType `json:"type"`
	ExpiryDays           int         `json:"expiry_days"` // 0 = never expires
	RedeemableOnline     bool        `json:"redeemable_online"`
	RedeemableProductIDs []string    `json:"redeemable_product_ids"`
	CreatedAt            time.Time   `json:"-"`
	UpdatedAt            time.Time   `json:"-"`
}

// CanRedeemOnline reports whether vouchers issued from this template may be
// applied as checkout coupons. A single-purpose template with no redeemable
// products is never valid online: an empty scope would otherwise behave as
// "redeem against anything".
func (t *Template) CanRedeemOnline() bool {
	if !t.RedeemableOnline {
		return false
	}
	if t.Type == TypeSingle && len(t.RedeemableProductIDs) == 0 {
		return false
	}
	return true
}

// ExpirationFrom computes the absolute expiry timestamp for a voucher
// activated at the given time. Returns nil for never-expiring templates.
func (t *Template) ExpirationFrom(activated time.Time) *time.Time {
	if t.ExpiryDays <= 0 {
		return nil
	}
	exp := activated.AddDate(0, 0, t.ExpiryDays)
	return &exp
}
