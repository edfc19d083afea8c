package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func singleVoucher() *model.Voucher {
	return &model.Voucher{
		Type:            model.TypeSingle,
		Status:          model.StatusActive,
		FaceValue:       dec("75.00"),
		Currency:        "USD",
		UnitPrice:       dec("25.00"),
		ProductQuantity: 3,
	}
}

func multiVoucher() *model.Voucher {
	return &model.Voucher{
		Type:      model.TypeMulti,
		Status:    model.StatusActive,
		FaceValue: dec("50.00"),
		Currency:  "USD",
	}
}

func TestStrategyFor(t *testing.T) {
	assert.IsType(t, SingleStrategy{}, StrategyFor(model.TypeSingle))
	assert.IsType(t, MultiStrategy{}, StrategyFor(model.TypeMulti))
}

func TestSingleStrategy_DefaultsToOneUnit(t *testing.T) {
	// A barcode scan sends an empty body: one unit is consumed.
	v := singleVoucher()
	resp, err := SingleStrategy{}.Redeem(v, &model.RedeemVoucherRequest{}, RenderContext{})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.RemainingQuantity)
	assert.True(t, resp.RemainingValue.Equal(dec("50.00")))
	assert.Equal(t, "Voucher redeemed. <strong>2 products</strong> remaining.", resp.Message)
}

func TestSingleStrategy_PluralizesUnits(t *testing.T) {
	v := singleVoucher()
	resp, err := SingleStrategy{}.Redeem(v, &model.RedeemVoucherRequest{Quantity: 2}, RenderContext{})
	require.NoError(t, err)
	assert.Equal(t, "Voucher redeemed. <strong>1 product</strong> remaining.", resp.Message)

	resp, err = SingleStrategy{}.Redeem(v, &model.RedeemVoucherRequest{Quantity: 1}, RenderContext{})
	require.NoError(t, err)
	assert.Equal(t, "Voucher redeemed. <strong>0 products</strong> remaining.", resp.Message)
}

func TestSingleStrategy_EmailRendersPlainText(t *testing.T) {
	v := singleVoucher()
	resp, err := SingleStrategy{}.Redeem(v, &model.RedeemVoucherRequest{}, RenderContext{IsEmail: true})
	require.NoError(t, err)
	assert.Equal(t, "Voucher redeemed. 2 products remaining.", resp.Message)
}

func TestSingleStrategy_AmountMustBeWholeUnits(t *testing.T) {
	v := singleVoucher()
	_, err := SingleStrategy{}.Redeem(v, &model.RedeemVoucherRequest{Amount: decPtr("30.00")}, RenderContext{})
	assert.ErrorIs(t, err, model.ErrAmountNotMultipleOfUnitPrice)
}

func TestMultiStrategy_RequiresAmount(t *testing.T) {
	v := multiVoucher()
	_, err := MultiStrategy{}.Redeem(v, &model.RedeemVoucherRequest{}, RenderContext{})
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestMultiStrategy_ReportsRemainingValue(t *testing.T) {
	v := multiVoucher()
	resp, err := MultiStrategy{}.Redeem(v, &model.RedeemVoucherRequest{Amount: decPtr("12.50")}, RenderContext{})
	require.NoError(t, err)

	assert.True(t, resp.RemainingValue.Equal(dec("37.50")))
	assert.Equal(t, 0, resp.RemainingQuantity)
	assert.Equal(t, "Voucher redeemed. <strong>37.50 USD</strong> remaining.", resp.Message)
}

func TestMultiStrategy_EmailRendersPlainText(t *testing.T) {
	v := multiVoucher()
	resp, err := MultiStrategy{}.Redeem(v, &model.RedeemVoucherRequest{Amount: decPtr("50.00")}, RenderContext{IsEmail: true})
	require.NoError(t, err)
	assert.Equal(t, "Voucher redeemed. 0.00 USD remaining.", resp.Message)
	assert.Equal(t, model.StatusRedeemed, v.Status)
}
