package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/retail-pos-core/internal/database"
	"github.com/iliyamo/retail-pos-core/internal/fault"
	"github.com/iliyamo/retail-pos-core/internal/model"
	"github.com/iliyamo/retail-pos-core/internal/repository"
)

// SaleEngine converts a cart into a durable, all-or-nothing set of
// writes: ledger header, line items, stock decrements and the payment
// row.
type SaleEngine struct {
	pool   *database.Pool
	logger *zap.Logger
}

// NewSaleEngine builds a sale engine over the given pool.
func NewSaleEngine(pool *database.Pool, logger *zap.Logger) *SaleEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleEngine{pool: pool, logger: logger}
}

// Commit runs the two-phase sale algorithm.
//
// Phase 1, pre-flight: read current stock outside any transaction and
// reject the whole sale if any line exceeds on-hand stock. The check is
// advisory, not a reservation: two concurrent sales can both pass it for
// the same item and then both decrement inside their own transactions.
// InnoDB row locks serialize the decrements so no update is lost, but
// stock can go negative in the business sense. Known, accepted race.
//
// Phase 2, atomic commit: one transaction inserts the header, the line
// rows plus stock decrements, and the payment row. Any failure rolls the
// whole transaction back; no partial state survives. The commit is never
// retried internally: retrying a financial write without idempotency keys
// risks double-charging.
//
// On success the receipt reference is returned as the durable receipt id.
func (e *SaleEngine) Commit(ctx context.Context, payload model.SalePayload, cashierID uint64) (string, error) {
	if err := validatePayload(payload); err != nil {
		return "", err
	}

	db, err := e.pool.Acquire()
	if err != nil {
		return "", err
	}
	items := repository.NewItemRepo(db)
	sales := repository.NewSaleRepo(db)

	// Pre-flight stock check, no transaction open.
	ids := make([]uint64, len(payload.Lines))
	for i, l := range payload.Lines {
		ids[i] = l.ItemID
	}
	stock, err := items.StockByIDs(ctx, ids)
	if err != nil {
		return "", fault.Wrap(fault.KindPersistence, "reading stock", err)
	}
	for _, l := range payload.Lines {
		onHand, ok := stock[l.ItemID]
		if !ok {
			return "", fault.Wrap(fault.KindValidation,
				fmt.Sprintf("item %d does not exist or is inactive", l.ItemID),
				repository.ErrItemNotFound)
		}
		if l.Quantity > onHand {
			return "", fault.Wrap(fault.KindValidation,
				fmt.Sprintf("item %d: requested %d, on hand %d", l.ItemID, l.Quantity, onHand),
				ErrInsufficientStock)
		}
	}

	receiptRef, err := e.commitTx(ctx, db, sales, items, payload, cashierID)

	desc := fmt.Sprintf("sale of %d line(s), total %d cents", len(payload.Lines), payload.TotalCents)
	entry := model.AuditEntry{
		ActorID:     &cashierID,
		Action:      model.AuditSaleCommit,
		EntityType:  strPtr("sale"),
		Description: desc,
		Success:     err == nil,
	}
	if err != nil {
		entry.ErrorMessage = strPtr(err.Error())
	} else {
		entry.EntityID = strPtr(receiptRef)
	}
	appendAudit(ctx, db, e.logger, entry)

	return receiptRef, err
}

// commitTx is the atomic write phase. It is kept separate so the audit
// record in Commit covers both outcomes.
func (e *SaleEngine) commitTx(ctx context.Context, db *sql.DB, sales *repository.SaleRepo, items *repository.ItemRepo, payload model.SalePayload, cashierID uint64) (string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fault.Wrap(fault.KindPersistence, "beginning sale transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	header := repository.SaleRecord{
		ReceiptRef:    uuid.NewString(),
		CustomerID:    payload.CustomerID,
		SubtotalCents: payload.SubtotalCents(),
		TaxCents:      payload.TaxCents,
		TotalCents:    payload.TotalCents,
		PaymentMethod: payload.PaymentMethod,
		CreatedBy:     cashierID,
	}
	if err := sales.CreateHeaderTx(ctx, tx, &header); err != nil {
		return "", fault.Wrap(fault.KindPersistence, "inserting ledger header", err)
	}

	lines := make([]repository.SaleLineRecord, len(payload.Lines))
	for i, l := range payload.Lines {
		lines[i] = repository.SaleLineRecord{
			SaleID:         header.ID,
			ItemID:         l.ItemID,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			LineTotalCents: l.LineTotalCents(),
		}
	}
	if err := sales.CreateLinesBulkTx(ctx, tx, lines); err != nil {
		return "", fault.Wrap(fault.KindPersistence, "inserting sale lines", err)
	}
	for _, l := range payload.Lines {
		if err := items.DecrementStockTx(ctx, tx, l.ItemID, l.Quantity); err != nil {
			return "", fault.Wrap(fault.KindPersistence,
				fmt.Sprintf("decrementing stock for item %d", l.ItemID), err)
		}
	}
	if err := sales.CreatePaymentTx(ctx, tx, header.ID, payload.PaymentMethod, payload.TenderCents, payload.ChangeCents); err != nil {
		return "", fault.Wrap(fault.KindPersistence, "inserting payment row", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fault.Wrap(fault.KindPersistence, "committing sale", err)
	}
	committed = true
	e.logger.Info("sale committed",
		zap.String("receipt_ref", header.ReceiptRef),
		zap.Int("lines", len(payload.Lines)),
		zap.Int64("total_cents", payload.TotalCents))
	return header.ReceiptRef, nil
}

// Receipt loads the ledger header for a committed sale by its receipt
// reference.
func (e *SaleEngine) Receipt(ctx context.Context, receiptRef string) (repository.SaleRecord, error) {
	db, err := e.pool.Acquire()
	if err != nil {
		return repository.SaleRecord{}, err
	}
	rec, err := repository.NewSaleRepo(db).GetByReceiptRef(ctx, receiptRef)
	if err == sql.ErrNoRows {
		return repository.SaleRecord{}, fault.New(fault.KindValidation, "unknown receipt reference")
	}
	if err != nil {
		return repository.SaleRecord{}, fault.Wrap(fault.KindPersistence, "loading receipt", err)
	}
	return rec, nil
}

// ItemStock returns the current item row, used by the read-only stock
// endpoint.
func (e *SaleEngine) ItemStock(ctx context.Context, itemID uint64) (model.Item, error) {
	db, err := e.pool.Acquire()
	if err != nil {
		return model.Item{}, err
	}
	it, err := repository.NewItemRepo(db).GetByID(ctx, itemID)
	if err == repository.ErrItemNotFound {
		return model.Item{}, fault.Wrap(fault.KindValidation, "unknown item", err)
	}
	if err != nil {
		return model.Item{}, fault.Wrap(fault.KindPersistence, "loading item", err)
	}
	return it, nil
}

func validatePayload(p model.SalePayload) error {
	if len(p.Lines) == 0 {
		return fault.New(fault.KindValidation, "cart is empty")
	}
	for _, l := range p.Lines {
		if l.Quantity <= 0 {
			return fault.Newf(fault.KindValidation, "item %d: quantity must be positive", l.ItemID)
		}
		if l.UnitPriceCents < 0 {
			return fault.Newf(fault.KindValidation, "item %d: unit price must not be negative", l.ItemID)
		}
	}
	if p.TotalCents <= 0 {
		return fault.New(fault.KindValidation, "total must be positive")
	}
	if p.PaymentMethod != model.PaymentCash && p.PaymentMethod != model.PaymentCard {
		return fault.Newf(fault.KindValidation, "unknown payment method %q", p.PaymentMethod)
	}
	if p.TenderCents < p.TotalCents {
		return fault.New(fault.KindValidation, "tender amount is less than the total")
	}
	return nil
}
