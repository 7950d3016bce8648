package services

import (
	"context"
	"log/slog"
	"strings"

	"vr-theatre-marketplace/internal/models"
)

// RedemptionService admits ticket holders at the gate
type RedemptionService struct {
	tickets TicketStore
	logger  *slog.Logger
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(tickets TicketStore, logger *slog.Logger) *RedemptionService {
	return &RedemptionService{tickets: tickets, logger: logger.With("component", "redemption")}
}

// Redeem marks a ticket used for contentID. A ticket is admitted at most once;
// concurrent attempts on the same code see exactly one success.
func (s *RedemptionService) Redeem(ctx context.Context, code, contentID string, redeemer *string) (*models.Ticket, error) {
	code = models.NormalizeTicketCode(code)
	contentID = strings.ToLower(strings.TrimSpace(contentID))
	if code == "" {
		return nil, models.NewValidationError("code", "ticket code is required")
	}
	if contentID == "" {
		return nil, models.NewValidationError("content_id", "content id is required")
	}

	t, err := s.tickets.Redeem(ctx, code, contentID, redeemer)
	if err != nil {
		s.logger.InfoContext(ctx, "ticket rejected", "code", code, "content_id", contentID, "reason", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "ticket redeemed", "ticket_id", t.ID, "content_id", contentID)
	return t, nil
}
