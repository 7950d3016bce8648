package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vr-theatre-marketplace/internal/messaging"
	"vr-theatre-marketplace/internal/models"
	"vr-theatre-marketplace/internal/repositories"
)

// FulfillMode decides what happens when inventory cannot cover a paid order
type FulfillMode int

const (
	// FulfillStrict fails and rolls back. Used before money is captured.
	FulfillStrict FulfillMode = iota
	// FulfillLenient clamps inventory at zero and reports an oversell.
	// Used once the processor has captured the payment.
	FulfillLenient
)

func (m FulfillMode) String() string {
	if m == FulfillLenient {
		return "lenient"
	}
	return "strict"
}

// Fulfiller turns paid orders into tickets
type Fulfiller interface {
	FulfillGroup(ctx context.Context, groupID string, mode FulfillMode) ([]*models.Ticket, error)
	FulfillOrder(ctx context.Context, orderID string, mode FulfillMode) ([]*models.Ticket, error)
}

// FulfillmentConfig wires the fulfillment service. Mail, Publisher and
// Archive are optional.
type FulfillmentConfig struct {
	Store     FulfillmentStore
	Contents  ContentStore
	Mail      MailQueue
	QR        *QRGenerator
	Publisher EventPublisher
	Archive   *QRArchive
	Logger    *slog.Logger
}

// FulfillmentService marks orders paid and issues their tickets, then
// delivers them in the background
type FulfillmentService struct {
	store     FulfillmentStore
	contents  ContentStore
	mail      MailQueue
	qr        *QRGenerator
	publisher EventPublisher
	archive   *QRArchive
	logger    *slog.Logger

	// runAsync runs post-commit work
	runAsync func(func())
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(cfg FulfillmentConfig) *FulfillmentService {
	return &FulfillmentService{
		store:     cfg.Store,
		contents:  cfg.Contents,
		mail:      cfg.Mail,
		qr:        cfg.QR,
		publisher: cfg.Publisher,
		archive:   cfg.Archive,
		logger:    cfg.Logger.With("component", "fulfillment"),
		runAsync:  func(f func()) { go f() },
	}
}

// FulfillGroup pays a group with all its orders and returns the issued tickets
func (s *FulfillmentService) FulfillGroup(ctx context.Context, groupID string, mode FulfillMode) ([]*models.Ticket, error) {
	res, err := s.store.FulfillGroup(ctx, groupID, repositories.FulfillOptions{Strict: mode == FulfillStrict})
	if err != nil {
		return nil, s.classify(ctx, err, "order_group_id", groupID, mode)
	}

	s.logger.InfoContext(ctx, "order group fulfilled",
		"order_group_id", groupID,
		"orders", len(res.Orders),
		"tickets", len(res.Tickets),
		"mode", mode.String())

	s.afterCommit(ctx, res)
	return res.Tickets, nil
}

// FulfillOrder pays a standalone order and returns the issued tickets
func (s *FulfillmentService) FulfillOrder(ctx context.Context, orderID string, mode FulfillMode) ([]*models.Ticket, error) {
	res, err := s.store.FulfillOrder(ctx, orderID, repositories.FulfillOptions{Strict: mode == FulfillStrict})
	if err != nil {
		return nil, s.classify(ctx, err, "order_id", orderID, mode)
	}

	s.logger.InfoContext(ctx, "order fulfilled",
		"order_id", orderID,
		"tickets", len(res.Tickets),
		"mode", mode.String())

	s.afterCommit(ctx, res)
	return res.Tickets, nil
}

// classify keeps domain errors intact and folds everything else into
// models.ErrFulfillmentFailed
func (s *FulfillmentService) classify(ctx context.Context, err error, key, id string, mode FulfillMode) error {
	switch {
	case errors.Is(err, models.ErrAlreadyFulfilled),
		errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrInsufficientInventory):
		return err
	case errors.Is(err, models.ErrFulfillmentFailed):
		s.logger.ErrorContext(ctx, "fulfillment failed", key, id, "mode", mode.String(), "error", err)
		return err
	default:
		s.logger.ErrorContext(ctx, "fulfillment failed", key, id, "mode", mode.String(), "error", err)
		return fmt.Errorf("%w: %v", models.ErrFulfillmentFailed, err)
	}
}

// afterCommit reports oversells and hands delivery work to the background.
// The work outlives the request, so it runs on a detached context.
func (s *FulfillmentService) afterCommit(ctx context.Context, res *repositories.FulfillmentResult) {
	for _, o := range res.Oversold {
		s.logger.ErrorContext(ctx, "inventory oversold, refund required",
			"content_id", o.ContentID,
			"title", o.Title,
			"requested", o.Requested,
			"available_before", o.AvailableBefore)
	}

	bg := context.WithoutCancel(ctx)
	s.runAsync(func() {
		s.publishEvents(bg, res)
		s.sendTickets(bg, res)
		if s.archive != nil {
			s.archive.Store(bg, res.Tickets)
		}
	})
}

func (s *FulfillmentService) publishEvents(ctx context.Context, res *repositories.FulfillmentResult) {
	if s.publisher == nil {
		return
	}

	correlationID, paid := paidPayload(res)
	s.publish(ctx, messaging.EventOrderPaid, correlationID, paid)

	byOrder := ticketsByOrder(res.Tickets)
	for _, o := range res.Orders {
		codes := make([]string, 0, len(byOrder[o.ID]))
		for _, t := range byOrder[o.ID] {
			codes = append(codes, t.Code)
		}
		s.publish(ctx, messaging.EventTicketsIssued, o.ID, messaging.TicketsIssuedPayload{
			OrderID:   o.ID,
			ContentID: o.ContentID,
			Codes:     codes,
		})
	}

	for _, o := range res.Oversold {
		s.publish(ctx, messaging.EventInventoryOversold, correlationID, messaging.InventoryOversoldPayload{
			ContentID:       o.ContentID,
			Title:           o.Title,
			Requested:       o.Requested,
			AvailableBefore: o.AvailableBefore,
			CorrelationID:   correlationID,
		})
	}
}

func (s *FulfillmentService) publish(ctx context.Context, eventType, correlationID string, payload any) {
	env, err := messaging.NewEnvelope(eventType, correlationID, payload)
	if err == nil {
		err = s.publisher.Publish(ctx, env)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", eventType,
			"correlation_id", correlationID,
			"error", err)
	}
}

func paidPayload(res *repositories.FulfillmentResult) (string, messaging.OrderPaidPayload) {
	p := messaging.OrderPaidPayload{}
	for _, o := range res.Orders {
		p.OrderIDs = append(p.OrderIDs, o.ID)
	}

	if res.Group != nil {
		p.OrderGroupID = res.Group.ID
		p.BuyerEmail = res.Group.BuyerEmail
		p.TotalCents = res.Group.TotalAmount
		p.Currency = res.Group.Currency
		return res.Group.ID, p
	}

	var correlationID string
	for _, o := range res.Orders {
		p.TotalCents += o.TotalAmount
		p.BuyerEmail = o.BuyerEmail
		p.Currency = o.Currency
		correlationID = o.ID
	}
	return correlationID, p
}

func ticketsByOrder(tickets []*models.Ticket) map[string][]*models.Ticket {
	byOrder := make(map[string][]*models.Ticket)
	for _, t := range tickets {
		byOrder[t.OrderID] = append(byOrder[t.OrderID], t)
	}
	return byOrder
}

// sendTickets queues the delivery email. Failures are logged only.
func (s *FulfillmentService) sendTickets(ctx context.Context, res *repositories.FulfillmentResult) {
	if s.mail == nil || len(res.Tickets) == 0 {
		return
	}

	reference, paid := paidPayload(res)
	titles := s.titles(ctx, res.Tickets)

	data := TicketEmailData{
		Reference: reference,
		Total:     FormatAmount(paid.TotalCents, paid.Currency),
	}
	for _, t := range res.Tickets {
		data.Tickets = append(data.Tickets, TicketEmailLine{
			Code:       t.Code,
			Title:      titles[t.ContentID],
			TicketType: string(t.TicketType),
		})
	}

	msg, err := RenderTicketEmail(paid.BuyerEmail, data)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render ticket email", "reference", reference, "error", err)
		return
	}

	if s.qr != nil {
		for _, t := range res.Tickets {
			png, err := s.qr.PNG(t.Code)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to render QR attachment", "ticket_id", t.ID, "error", err)
				continue
			}
			msg.Attachments = append(msg.Attachments, Attachment{
				Filename:    fmt.Sprintf("ticket-%s.png", t.Code),
				ContentType: "image/png",
				Data:        png,
			})
		}
	}

	if !s.mail.Enqueue(msg) {
		s.logger.WarnContext(ctx, "ticket email not queued", "reference", reference, "to", paid.BuyerEmail)
	}
}

func (s *FulfillmentService) titles(ctx context.Context, tickets []*models.Ticket) map[string]string {
	titles := make(map[string]string)
	if s.contents == nil {
		return titles
	}

	seen := make(map[string]bool)
	var ids []string
	for _, t := range tickets {
		if !seen[t.ContentID] {
			seen[t.ContentID] = true
			ids = append(ids, t.ContentID)
		}
	}

	avail, err := s.contents.ListAvailability(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load content titles for email", "error", err)
		return titles
	}
	for id, a := range avail {
		titles[id] = a.Title
	}
	return titles
}
