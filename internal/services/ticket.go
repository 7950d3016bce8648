package services

import (
	"context"

	"vr-theatre-marketplace/internal/models"
)

// TicketService serves issued tickets to their holders
type TicketService struct {
	tickets TicketStore
	qr      *QRGenerator
}

// NewTicketService creates a new ticket service
func NewTicketService(tickets TicketStore, qr *QRGenerator) *TicketService {
	return &TicketService{tickets: tickets, qr: qr}
}

// QRCode renders the QR image of an existing ticket
func (s *TicketService) QRCode(ctx context.Context, code string) ([]byte, error) {
	code = models.NormalizeTicketCode(code)
	if code == "" {
		return nil, models.NewValidationError("code", "ticket code is required")
	}

	t, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.qr.PNG(t.Code)
}
