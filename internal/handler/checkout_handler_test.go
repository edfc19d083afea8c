package handler

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/voucher-ledger-system/internal/model"
	"github.com/fairyhunter13/voucher-ledger-system/internal/service"
	"github.com/fairyhunter13/voucher-ledger-system/internal/validator"
)

// mockCheckoutService is a mock implementation of CheckoutServiceInterface.
type mockCheckoutService struct {
	couponForCodeFn        func(ctx context.Context, code, orderCurrency string, orderTotal decimal.Decimal) (*model.CouponProjection, error)
	onOrderStatusChangedFn func(ctx context.Context, orderID string, req *model.OrderStatusRequest) error
}

func (m *mockCheckoutService) CouponForCode(ctx context.Context, code, orderCurrency string, orderTotal decimal.Decimal) (*model.CouponProjection, error) {
	if m.couponForCodeFn != nil {
		return m.couponForCodeFn(ctx, code, orderCurrency, orderTotal)
	}
	return nil, nil
}

func (m *mockCheckoutService) OnOrderStatusChanged(ctx context.Context, orderID string, req *model.OrderStatusRequest) error {
	if m.onOrderStatusChangedFn != nil {
		return m.onOrderStatusChangedFn(ctx, orderID, req)
	}
	return nil
}

func newCheckoutApp(svc CheckoutServiceInterface) *fiber.App {
	app := fiber.New()
	h := NewCheckoutHandler(svc, validator.New())
	app.Get("/api/checkout/coupons/:code", h.GetCoupon)
	app.Post("/api/orders/:id/status", h.OrderStatus)
	return app
}

func TestCheckoutHandler_GetCoupon_Success(t *testing.T) {
	svc := &mockCheckoutService{
		couponForCodeFn: func(ctx context.Context, code, orderCurrency string, orderTotal decimal.Decimal) (*model.CouponProjection, error) {
			assert.Equal(t, "VCH-ABC123456789", code)
			assert.Equal(t, "USD", orderCurrency)
			assert.True(t, orderTotal.Equal(decimal.RequireFromString("80.00")))
			return &model.CouponProjection{
				Code:            code,
				DiscountType:    "cart_fixed",
				Amount:          decimal.RequireFromString("40.00"),
				Currency:        "USD",
				AppliedAfterTax: true,
			}, nil
		},
	}
	app := newCheckoutApp(svc)

	req := httptest.NewRequest("GET", "/api/checkout/coupons/VCH-ABC123456789?currency=USD&total=80.00", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := readBody(t, resp.Body)
	assert.Contains(t, body, `"discount_type":"cart_fixed"`)
	assert.Contains(t, body, `"applied_after_tax":true`)
}

func TestCheckoutHandler_GetCoupon_InvalidTotal(t *testing.T) {
	app := newCheckoutApp(&mockCheckoutService{})

	req := httptest.NewRequest("GET", "/api/checkout/coupons/VCH-ABC123456789?total=eighty", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCheckoutHandler_GetCoupon_NotRedeemable(t *testing.T) {
	svc := &mockCheckoutService{
		couponForCodeFn: func(ctx context.Context, code, orderCurrency string, orderTotal decimal.Decimal) (*model.CouponProjection, error) {
			return nil, model.ErrNotRedeemable
		},
	}
	app := newCheckoutApp(svc)

	req := httptest.NewRequest("GET", "/api/checkout/coupons/VCH-ABC123456789", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp.Body), model.ErrNotRedeemable.Error())
}

func TestCheckoutHandler_OrderStatus_Success(t *testing.T) {
	var gotOrderID string
	var gotReq *model.OrderStatusRequest
	svc := &mockCheckoutService{
		onOrderStatusChangedFn: func(ctx context.Context, orderID string, req *model.OrderStatusRequest) error {
			gotOrderID = orderID
			gotReq = req
			return nil
		},
	}
	app := newCheckoutApp(svc)

	req := httptest.NewRequest("POST", "/api/orders/order_77/status", jsonBody(t, fiber.Map{
		"status": "completed",
		"lines":  []fiber.Map{{"code": "VCH-ABC123456789", "discount_amount": "20.00"}},
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "order_77", gotOrderID)
	require.NotNil(t, gotReq)
	require.Len(t, gotReq.Lines, 1)
	assert.True(t, gotReq.Lines[0].DiscountAmount.Equal(decimal.RequireFromString("20.00")))
}

func TestCheckoutHandler_OrderStatus_UnknownStatus(t *testing.T) {
	app := newCheckoutApp(&mockCheckoutService{})

	req := httptest.NewRequest("POST", "/api/orders/order_77/status", jsonBody(t, fiber.Map{
		"status": "shipped",
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp.Body), "Status has an unsupported value")
}

func TestCheckoutHandler_OrderStatus_VoucherNotFound(t *testing.T) {
	svc := &mockCheckoutService{
		onOrderStatusChangedFn: func(ctx context.Context, orderID string, req *model.OrderStatusRequest) error {
			return service.ErrVoucherNotFound
		},
	}
	app := newCheckoutApp(svc)

	req := httptest.NewRequest("POST", "/api/orders/order_77/status", jsonBody(t, fiber.Map{
		"status": "paid",
		"lines":  []fiber.Map{{"code": "VCH-GONE00000001"}},
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
