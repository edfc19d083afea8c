package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTemplateRequest is the DTO for creating a voucher template.
type CreateTemplateRequest struct {
	Name                 string   `json:"name" validate:"required,notblank,max=255"`
	Type                 string   `json:"type" validate:"required,oneof=single multi"`
	ExpiryDays           int      `json:"expiry_days" validate:"gte=0"`
	RedeemableOnline     bool     `json:"redeemable_online"`
	RedeemableProductIDs []string `json:"redeemable_product_ids" validate:"dive,notblank,max=255"`
}

// IssueVoucherRequest is the DTO for issuing a voucher from a template.
// Price and tax are captured from the product catalog at issuance time.
type IssueVoucherRequest struct {
	TemplateID  string `json:"template_id" validate:"required,uuid4"`
	ProductID   string `json:"product_id" validate:"required,notblank,max=255"`
	Quantity    *int   `json:"quantity" validate:"required,gte=1"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	CustomerID  string `json:"customer_id" validate:"omitempty,max=255"`
	OrderID     string `json:"order_id" validate:"omitempty,max=255"`
	OrderItemID string `json:"order_item_id" validate:"omitempty,max=255"`
}

// RedeemVoucherRequest is the DTO for manual and barcode redemptions.
// Amount and quantity are both optional; the strategy for the voucher type
// decides how to resolve them.
type RedeemVoucherRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Quantity int              `json:"quantity" validate:"gte=0"`
	Notes    string           `json:"notes" validate:"omitempty,max=500"`
	UserID   string           `json:"user_id" validate:"omitempty,max=255"`
	OrderID  string           `json:"order_id" validate:"omitempty,max=255"`
}

// RedemptionResponse reports the outcome of a redemption back to the caller.
// Single-purpose vouchers report remaining quantity; multi-purpose report
// remaining value.
type RedemptionResponse struct {
	Message           string          `json:"message"`
	RemainingValue    decimal.Decimal `json:"remaining_value"`
	RemainingQuantity int             `json:"remaining_quantity"`
}

// VoidVoucherRequest is the DTO for voiding a voucher.
type VoidVoucherRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
	UserID string `json:"user_id" validate:"required,notblank,max=255"`
}

// RedemptionInput is one ledger entry in a whole-ledger replacement.
type RedemptionInput struct {
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity" validate:"gte=0"`
	Date     time.Time       `json:"date"`
	Notes    string          `json:"notes" validate:"omitempty,max=500"`
	OrderID  string          `json:"order_id" validate:"omitempty,max=255"`
	UserID   string          `json:"user_id" validate:"omitempty,max=255"`
}

// SetRedemptionsRequest atomically replaces the whole ledger. Removing one
// entry is done by resubmitting the list without it.
type SetRedemptionsRequest struct {
	Redemptions []RedemptionInput `json:"redemptions" validate:"required,dive"`
}

// OrderCouponLine describes one voucher coupon applied to an order, with the
// discount the checkout actually granted on that line.
type OrderCouponLine struct {
	Code           string          `json:"code" validate:"required,notblank,max=255"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Quantity       int             `json:"quantity" validate:"gte=0"`
}

// OrderStatusRequest is the order-status webhook payload.
type OrderStatusRequest struct {
	Status string            `json:"status" validate:"required,oneof=paid completed processing on-hold failed cancelled refunded partially-refunded"`
	Lines  []OrderCouponLine `json:"lines" validate:"dive"`
}

// CouponProjection exposes a voucher to the checkout system, which has no
// native concept of remaining voucher value.
type CouponProjection struct {
	Code            string          `json:"code"`
	DiscountType    string          `json:"discount_type"`
	Amount          decimal.Decimal `json:"amount"`
	ProductIDs      []string        `json:"product_ids,omitempty"`
	UsageLimit      int             `json:"usage_limit,omitempty"`
	Currency        string          `json:"currency"`
	AppliedAfterTax bool            `json:"applied_after_tax"`
	Description     string          `json:"description"`
}
