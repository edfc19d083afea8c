// Package external holds HTTP adapters for the engine's collaborators:
// product catalog, tax engine, order system, customer directory and the
// artifact renderer. The engine treats all of them as black boxes.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/voucher-ledger-system/internal/service"
)

// Client is a thin JSON-over-HTTP client shared by the adapters.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("call %s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// CatalogClient implements service.ProductCatalog.
type CatalogClient struct {
	client *Client
}

// NewCatalogClient creates a CatalogClient.
func NewCatalogClient(client *Client) *CatalogClient {
	return &CatalogClient{client: client}
}

// Product looks up a product snapshot by id.
func (c *CatalogClient) Product(ctx context.Context, id string) (*service.ProductInfo, error) {
	var payload struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		UnitPrice decimal.Decimal `json:"unit_price"`
		TaxClass  string          `json:"tax_class"`
		Taxable   bool            `json:"taxable"`
	}
	if err := c.client.getJSON(ctx, "/products/"+id, &payload); err != nil {
		return nil, err
	}
	return &service.ProductInfo{
		ID:        payload.ID,
		Name:      payload.Name,
		UnitPrice: payload.UnitPrice,
		TaxClass:  payload.TaxClass,
		Taxable:   payload.Taxable,
	}, nil
}

// TaxClient implements service.TaxEngine.
type TaxClient struct {
	client *Client
}

// NewTaxClient creates a TaxClient.
func NewTaxClient(client *Client) *TaxClient {
	return &TaxClient{client: client}
}

// Tax asks the external tax engine for the tax amount on a price.
func (c *TaxClient) Tax(ctx context.Context, jur service.Jurisdiction, taxClass string, price decimal.Decimal) (decimal.Decimal, error) {
	request := struct {
		Country  string          `json:"country"`
		State    string          `json:"state"`
		Postcode string          `json:"postcode"`
		City     string          `json:"city"`
		TaxClass string          `json:"tax_class"`
		Price    decimal.Decimal `json:"price"`
	}{jur.Country, jur.State, jur.Postcode, jur.City, taxClass, price}

	var payload struct {
		Tax decimal.Decimal `json:"tax"`
	}
	if err := c.client.postJSON(ctx, "/tax", request, &payload); err != nil {
		return decimal.Zero, err
	}
	return payload.Tax, nil
}

// OrderClient implements service.OrderSystem.
type OrderClient struct {
	client *Client
}

// NewOrderClient creates an OrderClient.
func NewOrderClient(client *Client) *OrderClient {
	return &OrderClient{client: client}
}

// Order reads an order snapshot from the order system.
func (c *OrderClient) Order(ctx context.Context, id string) (*service.OrderInfo, error) {
	var payload struct {
		ID           string          `json:"id"`
		Status       string          `json:"status"`
		Currency     string          `json:"currency"`
		Total        decimal.Decimal `json:"total"`
		Jurisdiction *struct {
			Country  string `json:"country"`
			State    string `json:"state"`
			Postcode string `json:"postcode"`
			City     string `json:"city"`
		} `json:"jurisdiction"`
	}
	if err := c.client.getJSON(ctx, "/orders/"+id, &payload); err != nil {
		return nil, err
	}

	info := &service.OrderInfo{
		ID:       payload.ID,
		Status:   payload.Status,
		Currency: payload.Currency,
		Total:    payload.Total,
	}
	if payload.Jurisdiction != nil {
		info.Jurisdiction = &service.Jurisdiction{
			Country:  payload.Jurisdiction.Country,
			State:    payload.Jurisdiction.State,
			Postcode: payload.Jurisdiction.Postcode,
			City:     payload.Jurisdiction.City,
		}
	}
	return info, nil
}

// CustomerClient implements service.CustomerDirectory.
type CustomerClient struct {
	client *Client
}

// NewCustomerClient creates a CustomerClient.
func NewCustomerClient(client *Client) *CustomerClient {
	return &CustomerClient{client: client}
}

// Jurisdiction resolves a customer's tax jurisdiction.
func (c *CustomerClient) Jurisdiction(ctx context.Context, customerID string) (*service.Jurisdiction, error) {
	var payload struct {
		Country  string `json:"country"`
		State    string `json:"state"`
		Postcode string `json:"postcode"`
		City     string `json:"city"`
	}
	if err := c.client.getJSON(ctx, "/customers/"+customerID+"/jurisdiction", &payload); err != nil {
		return nil, err
	}
	return &service.Jurisdiction{
		Country:  payload.Country,
		State:    payload.State,
		Postcode: payload.Postcode,
		City:     payload.City,
	}, nil
}

// RendererClient implements service.ArtifactRenderer.
type RendererClient struct {
	client *Client
}

// NewRendererClient creates a RendererClient.
func NewRendererClient(client *Client) *RendererClient {
	return &RendererClient{client: client}
}

// Render asks the external renderer to produce the voucher document.
func (c *RendererClient) Render(ctx context.Context, voucherID uuid.UUID) error {
	return c.client.postJSON(ctx, "/render/"+voucherID.String(), struct{}{}, nil)
}
