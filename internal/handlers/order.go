package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vr-theatre-marketplace/internal/services"
)

// Receipts is the part of services.OrderService the handlers use
type Receipts interface {
	GetGroupReceipt(ctx context.Context, id string) (*services.GroupReceipt, error)
	GetOrderReceipt(ctx context.Context, id string) (*services.OrderReceipt, error)
}

// OrderHandler serves order receipts
type OrderHandler struct {
	receipts Receipts
	logger   *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(receipts Receipts, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{receipts: receipts, logger: logger.With("component", "order_handler")}
}

// GroupReceipt handles GET /order-group/{id}
func (h *OrderHandler) GroupReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.receipts.GetGroupReceipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// OrderReceipt handles GET /orders/{id}
func (h *OrderHandler) OrderReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.receipts.GetOrderReceipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
