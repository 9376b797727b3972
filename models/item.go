package models

import "github.com/shopspring/decimal"

// Item is a catalog entry. Quantity is the stock on hand and never goes negative.
type Item struct {
	ID       int64           `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Quantity int             `db:"quantity" json:"quantity"`
	Price    decimal.Decimal `db:"price" json:"price"`
}
