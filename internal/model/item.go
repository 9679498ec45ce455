package model

import "time"

// Item mirrors the 'items' table. Prices are integer cents; quantities
// are plain integers. Floating point never touches money or stock.
type Item struct {
	ID             uint64
	Name           string
	UnitPriceCents int64
	StockQty       int64
	IsActive       bool
	UpdatedAt      time.Time
}
