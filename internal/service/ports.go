package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Jurisdiction identifies a tax jurisdiction for rate lookup.
type Jurisdiction struct {
	Country  string
	State    string
	Postcode string
	City     string
}

// ProductInfo is the read-only product snapshot queried at issuance and
// at explicit tax-recalculation time only.
type ProductInfo struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	TaxClass  string
	Taxable   bool
}

// ProductCatalog looks up product data by id.
type ProductCatalog interface {
	Product(ctx context.Context, id string) (*ProductInfo, error)
}

// TaxEngine computes the tax amount for a price in a jurisdiction.
type TaxEngine interface {
	Tax(ctx context.Context, jur Jurisdiction, taxClass string, price decimal.Decimal) (decimal.Decimal, error)
}

// OrderInfo is the order snapshot consumed from the order system.
type OrderInfo struct {
	ID           string
	Status       string
	Currency     string
	Total        decimal.Decimal
	Jurisdiction *Jurisdiction
}

// OrderSystem reads order data; the engine never writes to it.
type OrderSystem interface {
	Order(ctx context.Context, id string) (*OrderInfo, error)
}

// CustomerDirectory resolves a customer's tax jurisdiction.
type CustomerDirectory interface {
	Jurisdiction(ctx context.Context, customerID string) (*Jurisdiction, error)
}

// ArtifactRenderer produces the printable voucher document. It is invoked by
// the artifact trigger, never awaited by ledger operations.
type ArtifactRenderer interface {
	Render(ctx context.Context, voucherID uuid.UUID) error
}
