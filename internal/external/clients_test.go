package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/voucher-ledger-system/internal/service"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 2*time.Second)
}

func TestCatalogClient_Product(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/prod_42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "prod_42",
			"name":       "Coffee Beans",
			"unit_price": "25.00",
			"tax_class":  "standard",
			"taxable":    true,
		})
	})

	product, err := NewCatalogClient(client).Product(context.Background(), "prod_42")
	require.NoError(t, err)
	assert.Equal(t, "prod_42", product.ID)
	assert.Equal(t, "Coffee Beans", product.Name)
	assert.True(t, product.UnitPrice.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, "standard", product.TaxClass)
	assert.True(t, product.Taxable)
}

func TestCatalogClient_Product_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := NewCatalogClient(client).Product(context.Background(), "prod_42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestTaxClient_Tax(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tax", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "US", req["country"])
		assert.Equal(t, "standard", req["tax_class"])

		_ = json.NewEncoder(w).Encode(map[string]any{"tax": "4.38"})
	})

	tax, err := NewTaxClient(client).Tax(context.Background(),
		service.Jurisdiction{Country: "US", State: "CA"}, "standard", decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	assert.True(t, tax.Equal(decimal.RequireFromString("4.38")))
}

func TestOrderClient_Order(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/order_77", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_77",
			"status":   "completed",
			"currency": "USD",
			"total":    "120.00",
			"jurisdiction": map[string]any{
				"country": "US",
				"state":   "NY",
			},
		})
	})

	order, err := NewOrderClient(client).Order(context.Background(), "order_77")
	require.NoError(t, err)
	assert.Equal(t, "completed", order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("120.00")))
	require.NotNil(t, order.Jurisdiction)
	assert.Equal(t, "NY", order.Jurisdiction.State)
}

func TestOrderClient_Order_NoJurisdiction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "order_77",
			"status": "paid",
		})
	})

	order, err := NewOrderClient(client).Order(context.Background(), "order_77")
	require.NoError(t, err)
	assert.Nil(t, order.Jurisdiction)
}

func TestCustomerClient_Jurisdiction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/cust_9/jurisdiction", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"country":  "DE",
			"postcode": "10115",
			"city":     "Berlin",
		})
	})

	jur, err := NewCustomerClient(client).Jurisdiction(context.Background(), "cust_9")
	require.NoError(t, err)
	assert.Equal(t, "DE", jur.Country)
	assert.Equal(t, "Berlin", jur.City)
}

func TestRendererClient_Render(t *testing.T) {
	id := uuid.New()
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/render/"+id.String(), r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, NewRendererClient(client).Render(context.Background(), id))
	assert.True(t, called)
}

func TestClient_ContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCatalogClient(client).Product(ctx, "prod_42")
	assert.Error(t, err)
}
