package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vr-theatre-marketplace/internal/middleware"
	"vr-theatre-marketplace/internal/models"
)

// Redeemer consumes tickets at the gate
type Redeemer interface {
	Redeem(ctx context.Context, code, contentID string, redeemer *string) (*models.Ticket, error)
}

// QRSource renders ticket QR images
type QRSource interface {
	QRCode(ctx context.Context, code string) ([]byte, error)
}

// TicketHandler handles ticket redemption and QR images
type TicketHandler struct {
	redeemer Redeemer
	qr       QRSource
	logger   *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(redeemer Redeemer, qr QRSource, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{redeemer: redeemer, qr: qr, logger: logger.With("component", "ticket_handler")}
}

// Redeem handles POST /redeem
func (h *TicketHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var body redeemDTO
	if err := decodeBody(r.Body, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	redeemer := middleware.IdentityFromContext(r.Context()).IDPtr()
	ticket, err := h.redeemer.Redeem(r.Context(), body.code(), body.contentID(), redeemer)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"admitted": true,
		"ticket":   ticket,
	})
}

// QRCode handles GET /tickets/{code}/qr
func (h *TicketHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	data, err := h.qr.QRCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
