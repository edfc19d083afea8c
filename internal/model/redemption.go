package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Redemption is one immutable entry in a voucher's ledger. Entries are only
// ever appended or replaced wholesale; they are never mutated in place.
type Redemption struct {
	ID       uuid.UUID       `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity,omitempty"` // units consumed, single-purpose only
	Date     time.Time       `json:"date"`
	Notes    string          `json:"notes,omitempty"`
	OrderID  string          `json:"order_id,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
}

// SumRedemptions returns the total redeemed amount across the given entries.
// Insertion order is irrelevant here: the balance is a pure sum.
func SumRedemptions(entries []Redemption) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// SumQuantities returns the total units consumed across the given entries.
func SumQuantities(entries []Redemption) int {
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}
