package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vr-theatre-marketplace/internal/middleware"
	"vr-theatre-marketplace/internal/models"
	"vr-theatre-marketplace/internal/services"
)

// Checkout is the part of services.CheckoutService the handlers use
type Checkout interface {
	QuoteCart(ctx context.Context, lines []models.CartLine) (*services.CartQuote, error)
	CheckoutCart(ctx context.Context, req services.CartCheckoutRequest) (*services.CheckoutResult, error)
	Purchase(ctx context.Context, req services.PurchaseRequest) (*services.CheckoutResult, error)
	PayGroup(ctx context.Context, groupID string, method services.PaymentMethod) (*services.CheckoutResult, error)
	PayOrder(ctx context.Context, orderID string, method services.PaymentMethod) (*services.CheckoutResult, error)
}

// CheckoutHandler handles purchases and cart checkouts
type CheckoutHandler struct {
	checkout Checkout
	logger   *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout Checkout, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logger: logger.With("component", "checkout_handler")}
}

// Purchase handles POST /purchase
func (h *CheckoutHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var body purchaseDTO
	if err := decodeBody(r.Body, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.checkout.Purchase(r.Context(), services.PurchaseRequest{
		Line:       body.lineDTO.toModel(),
		BuyerEmail: body.email(),
		Method:     body.method(),
		Identity:   middleware.IdentityFromContext(r.Context()),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// CheckoutCart handles POST /purchase/cart
func (h *CheckoutHandler) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	var body cartDTO
	if err := decodeBody(r.Body, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.checkout.CheckoutCart(r.Context(), services.CartCheckoutRequest{
		Lines:      body.lines(),
		BuyerEmail: body.email(),
		Method:     body.method(),
		Identity:   middleware.IdentityFromContext(r.Context()),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// QuoteCart handles POST /purchase/cart/quote. Nothing is persisted.
func (h *CheckoutHandler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	var body cartDTO
	if err := decodeBody(r.Body, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	quote, err := h.checkout.QuoteCart(r.Context(), body.lines())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// PayGroup handles POST /order-group/{id}/pay
func (h *CheckoutHandler) PayGroup(w http.ResponseWriter, r *http.Request) {
	var body payDTO
	if err := decodeBody(r.Body, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.checkout.PayGroup(r.Context(), chi.URLParam(r, "id"), body.method())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// PayOrder handles POST /orders/{id}/pay
func (h *CheckoutHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	var body payDTO
	if err := decodeBody(r.Body, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.checkout.PayOrder(r.Context(), chi.URLParam(r, "id"), body.method())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
