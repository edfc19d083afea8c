package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
)

// RenderContext tells message formatting where the response will be shown.
// It is passed explicitly; there is no process-wide "currently rendering"
// state.
type RenderContext struct {
	IsEmail bool
}

// RedemptionStrategy shapes request validation and response formatting per
// voucher type. The ledger invariants themselves live on the voucher and
// hold regardless of entry point.
type RedemptionStrategy interface {
	Redeem(v *model.Voucher, req *model.RedeemVoucherRequest, rc RenderContext) (*model.RedemptionResponse, error)
}

// StrategyFor returns the strategy for the given voucher type.
func StrategyFor(t model.VoucherType) RedemptionStrategy {
	if t == model.TypeSingle {
		return SingleStrategy{}
	}
	return MultiStrategy{}
}

// SingleStrategy redeems product grants in whole units at the captured unit
// price and reports remaining quantity back to the caller.
type SingleStrategy struct{}

// Redeem consumes units. With neither amount nor quantity supplied, one unit
// is redeemed: the barcode-scan default.
func (SingleStrategy) Redeem(v *model.Voucher, req *model.RedeemVoucherRequest, rc RenderContext) (*model.RedemptionResponse, error) {
	quantity := req.Quantity
	if req.Amount == nil && quantity == 0 {
		quantity = 1
	}

	_, err := v.Redeem(model.RedeemRequest{
		Amount:   req.Amount,
		Quantity: quantity,
		Notes:    req.Notes,
		OrderID:  req.OrderID,
		UserID:   req.UserID,
	})
	if err != nil {
		return nil, err
	}

	remaining := v.RemainingQuantity()
	return &model.RedemptionResponse{
		Message:           singleMessage(rc, remaining),
		RemainingValue:    v.RemainingValue(false),
		RemainingQuantity: remaining,
	}, nil
}

// MultiStrategy redeems arbitrary currency amounts up to the remaining value
// and reports remaining value back to the caller.
type MultiStrategy struct{}

// Redeem consumes a caller-supplied amount. There is no implicit default: a
// multi-purpose redemption without an amount is invalid.
func (MultiStrategy) Redeem(v *model.Voucher, req *model.RedeemVoucherRequest, rc RenderContext) (*model.RedemptionResponse, error) {
	if req.Amount == nil {
		return nil, model.ErrInvalidAmount
	}

	_, err := v.Redeem(model.RedeemRequest{
		Amount:  req.Amount,
		Notes:   req.Notes,
		OrderID: req.OrderID,
		UserID:  req.UserID,
	})
	if err != nil {
		return nil, err
	}

	remaining := v.RemainingValue(false)
	return &model.RedemptionResponse{
		Message:        multiMessage(rc, remaining, v.Currency),
		RemainingValue: remaining,
	}, nil
}

func singleMessage(rc RenderContext, remaining int) string {
	unit := "products"
	if remaining == 1 {
		unit = "product"
	}
	figure := fmt.Sprintf("%d %s", remaining, unit)
	return fmt.Sprintf("Voucher redeemed. %s remaining.", emphasize(rc, figure))
}

func multiMessage(rc RenderContext, remaining decimal.Decimal, currency string) string {
	figure := fmt.Sprintf("%s %s", remaining.StringFixed(2), currency)
	return fmt.Sprintf("Voucher redeemed. %s remaining.", emphasize(rc, figure))
}

// emphasize wraps the remaining figure for on-screen display. Email bodies
// are rendered as plain text.
func emphasize(rc RenderContext, figure string) string {
	if rc.IsEmail {
		return figure
	}
	return "<strong>" + figure + "</strong>"
}
