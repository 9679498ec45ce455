package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// SaleRepo writes the durable result of a committed sale: one ledger
// header row, one line row per cart line and one payment row, all inside
// a caller-owned transaction.
type SaleRepo struct{ DB *sql.DB }

func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{DB: db} }

// SaleRecord mirrors the 'sales' ledger header.
type SaleRecord struct {
	ID            uint64
	ReceiptRef    string // UUID returned to the caller as the receipt reference
	CustomerID    *uint64
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	PaymentMethod string
	CreatedBy     uint64
	CreatedAt     time.Time
}

// SaleLineRecord mirrors the 'sale_lines' table.
type SaleLineRecord struct {
	SaleID         uint64
	ItemID         uint64
	Quantity       int64
	UnitPriceCents int64
	LineTotalCents int64
}

// CreateHeaderTx inserts the ledger header and populates the generated
// ID on the record. The caller owns commit/rollback.
func (r *SaleRepo) CreateHeaderTx(ctx context.Context, tx *sql.Tx, rec *SaleRecord) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO sales (receipt_ref, customer_id, subtotal_cents, tax_cents, total_cents, payment_method, created_by)
		 VALUES (?,?,?,?,?,?,?)`,
		rec.ReceiptRef, rec.CustomerID, rec.SubtotalCents, rec.TaxCents, rec.TotalCents,
		rec.PaymentMethod, rec.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// CreateLinesBulkTx inserts all line rows in a single statement. An
// empty slice is a no-op.
func (r *SaleRepo) CreateLinesBulkTx(ctx context.Context, tx *sql.Tx, lines []SaleLineRecord) error {
	if len(lines) == 0 {
		return nil
	}
	query := "INSERT INTO sale_lines (sale_id, item_id, quantity, unit_price_cents, line_total_cents) VALUES "
	args := make([]any, 0, len(lines)*5)
	values := make([]string, len(lines))
	for i, l := range lines {
		values[i] = "(?,?,?,?,?)"
		args = append(args, l.SaleID, l.ItemID, l.Quantity, l.UnitPriceCents, l.LineTotalCents)
	}
	_, err := tx.ExecContext(ctx, query+strings.Join(values, ","), args...)
	return err
}

// CreatePaymentTx inserts the tender row for a sale.
func (r *SaleRepo) CreatePaymentTx(ctx context.Context, tx *sql.Tx, saleID uint64, method string, tenderCents, changeCents int64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO sale_payments (sale_id, method, tender_cents, change_cents) VALUES (?,?,?,?)",
		saleID, method, tenderCents, changeCents)
	return err
}

// GetByReceiptRef loads a ledger header by its receipt reference.
func (r *SaleRepo) GetByReceiptRef(ctx context.Context, ref string) (SaleRecord, error) {
	var rec SaleRecord
	var customerID sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, receipt_ref, customer_id, subtotal_cents, tax_cents, total_cents, payment_method, created_by, created_at
		 FROM sales WHERE receipt_ref=? LIMIT 1`, ref).
		Scan(&rec.ID, &rec.ReceiptRef, &customerID, &rec.SubtotalCents, &rec.TaxCents,
			&rec.TotalCents, &rec.PaymentMethod, &rec.CreatedBy, &rec.CreatedAt)
	if err != nil {
		return SaleRecord{}, err
	}
	if customerID.Valid {
		v := uint64(customerID.Int64)
		rec.CustomerID = &v
	}
	return rec, nil
}
