package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the aggregate created by a successful placement. It owns its lines
// by value and is never mutated once stored.
type Order struct {
	ID         string          `db:"id" json:"id"`
	UserID     int64           `db:"user_id" json:"user_id"`
	Lines      []OrderLine     `json:"lines"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// OrderLine is one (item, quantity) entry of an order. ItemName and UnitPrice
// are the catalog values at placement time.
type OrderLine struct {
	OrderID   string          `db:"order_id" json:"order_id"`
	Position  int             `db:"position" json:"position"`
	ItemID    int64           `db:"item_id" json:"item_id"`
	ItemName  string          `db:"item_name" json:"item_name"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// Subtotal is quantity × unit price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SumLines returns Σ(quantity × unit price) over the order's lines.
func (o *Order) SumLines() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// TimestampLayout is the fixed-width UTC text form used to store timestamps,
// so that lexical order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}
