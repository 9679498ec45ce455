package model

// Payment methods accepted on a sale.
const (
	PaymentCash = "CASH"
	PaymentCard = "CARD"
)

// CartLine is one item position in a cart. Quantity must be positive,
// unit price non-negative.
type CartLine struct {
	ItemID         uint64
	Quantity       int64
	UnitPriceCents int64
}

// LineTotalCents is the extended price of the line.
func (l CartLine) LineTotalCents() int64 {
	return l.Quantity * l.UnitPriceCents
}

// SalePayload is the transient cart handed to the commit engine. It is
// constructed by the caller, consumed once and never persisted as-is;
// the durable result is the ledger header plus its line and payment rows.
type SalePayload struct {
	Lines         []CartLine
	CustomerID    *uint64
	TaxCents      int64
	TotalCents    int64
	PaymentMethod string
	TenderCents   int64
	ChangeCents   int64
}

// SubtotalCents sums the extended line prices.
func (p SalePayload) SubtotalCents() int64 {
	var sum int64
	for _, l := range p.Lines {
		sum += l.LineTotalCents()
	}
	return sum
}
