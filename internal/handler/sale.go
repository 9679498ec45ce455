package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/retail-pos-core/internal/engine"
	"github.com/iliyamo/retail-pos-core/internal/middleware"
	"github.com/iliyamo/retail-pos-core/internal/model"
)

// SaleHandler exposes the sale commit engine and the read-only stock and
// receipt lookups.
type SaleHandler struct {
	Engine *engine.SaleEngine
}

func NewSaleHandler(e *engine.SaleEngine) *SaleHandler { return &SaleHandler{Engine: e} }

// ----- DTOs -----
// All money travels as integer cents; floating point never enters the
// payload.

type saleLineReq struct {
	ItemID         uint64 `json:"item_id"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}
type saleReq struct {
	Lines         []saleLineReq `json:"lines"`
	CustomerID    *uint64       `json:"customer_id,omitempty"`
	TaxCents      int64         `json:"tax_cents"`
	TotalCents    int64         `json:"total_cents"`
	PaymentMethod string        `json:"payment_method"`
	TenderCents   int64         `json:"tender_cents"`
	ChangeCents   int64         `json:"change_cents"`
}

// Create commits a sale and returns the receipt reference.
func (h *SaleHandler) Create(c echo.Context) error {
	p, ok := middleware.ProfileFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req saleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Lines) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
	}
	if req.TotalCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total must be positive"})
	}

	payload := model.SalePayload{
		CustomerID:    req.CustomerID,
		TaxCents:      req.TaxCents,
		TotalCents:    req.TotalCents,
		PaymentMethod: req.PaymentMethod,
		TenderCents:   req.TenderCents,
		ChangeCents:   req.ChangeCents,
	}
	for _, l := range req.Lines {
		payload.Lines = append(payload.Lines, model.CartLine{
			ItemID:         l.ItemID,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	receiptRef, err := h.Engine.Commit(ctx, payload, p.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"receipt_ref": receiptRef})
}

// Receipt returns the ledger header for a committed sale.
func (h *SaleHandler) Receipt(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Engine.Receipt(ctx, c.Param("ref"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"receipt_ref":    rec.ReceiptRef,
		"subtotal_cents": rec.SubtotalCents,
		"tax_cents":      rec.TaxCents,
		"total_cents":    rec.TotalCents,
		"payment_method": rec.PaymentMethod,
		"created_at":     rec.CreatedAt,
	})
}

// ItemStock returns the current stock of one item.
func (h *SaleHandler) ItemStock(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it, err := h.Engine.ItemStock(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item_id":          it.ID,
		"name":             it.Name,
		"unit_price_cents": it.UnitPriceCents,
		"stock_qty":        it.StockQty,
	})
}
