package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/retail-pos-core/internal/model"
)

// ItemRepo provides access to the 'items' table.
type ItemRepo struct{ DB *sql.DB }

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{DB: db} }

// GetByID fetches a single active item.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (model.Item, error) {
	var it model.Item
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, unit_price_cents, stock_qty, is_active, updated_at FROM items WHERE id=? LIMIT 1",
		id).Scan(&it.ID, &it.Name, &it.UnitPriceCents, &it.StockQty, &it.IsActive, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Item{}, ErrItemNotFound
	}
	return it, err
}

// StockByIDs returns current stock for the given item IDs in one query.
// IDs missing from the result do not exist.
func (r *ItemRepo) StockByIDs(ctx context.Context, ids []uint64) (map[uint64]int64, error) {
	stock := make(map[uint64]int64, len(ids))
	if len(ids) == 0 {
		return stock, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := "SELECT id, stock_qty FROM items WHERE is_active=1 AND id IN (" +
		strings.Join(placeholders, ",") + ")"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var qty int64
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		stock[id] = qty
	}
	return stock, rows.Err()
}

// DecrementStockTx reduces an item's stock inside an existing
// transaction. The plain decrement is deliberate: the pre-flight check is
// advisory, and InnoDB row locking serializes concurrent decrements (see
// the sale engine for the documented race).
func (r *ItemRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, itemID uint64, qty int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE items SET stock_qty = stock_qty - ?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		qty, itemID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}
