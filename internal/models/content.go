package models

import (
	"strings"
	"time"
)

// TicketType is the tier a ticket is sold at.
type TicketType string

const (
	TicketStandard TicketType = "standard"
	TicketVIP      TicketType = "vip"
	TicketPremium  TicketType = "premium"
)

// ParseTicketType normalises a tier name. Matching is case-insensitive.
func ParseTicketType(s string) (TicketType, error) {
	switch TicketType(strings.ToLower(strings.TrimSpace(s))) {
	case TicketStandard:
		return TicketStandard, nil
	case TicketVIP:
		return TicketVIP, nil
	case TicketPremium:
		return TicketPremium, nil
	}
	return "", ErrInvalidTier
}

// UnitPrices holds the per-tier prices of a content in cents.
type UnitPrices struct {
	Standard int64 `json:"standard"`
	VIP      int64 `json:"vip"`
	Premium  int64 `json:"premium"`
}

// For returns the unit price of the given tier.
func (p UnitPrices) For(tier TicketType) (int64, error) {
	switch tier {
	case TicketStandard:
		return p.Standard, nil
	case TicketVIP:
		return p.VIP, nil
	case TicketPremium:
		return p.Premium, nil
	}
	return 0, ErrInvalidTier
}

// Content represents a purchasable VR performance
type Content struct {
	ID               string     `json:"id" db:"id"`
	SellerID         string     `json:"seller_id" db:"seller_id"`
	Title            string     `json:"title" db:"title"`
	Prices           UnitPrices `json:"prices"`
	TotalTickets     int        `json:"total_tickets" db:"total_tickets"`
	UnlimitedTickets bool       `json:"unlimited_tickets" db:"unlimited_tickets"`
	AvailableTickets int        `json:"available_tickets" db:"available_tickets"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Availability is the ledger view of a content used during checkout
type Availability struct {
	ContentID  string
	Title      string
	UnitPrices UnitPrices
	Unlimited  bool
	Available  int
	Total      int
}

// CanCover reports whether qty tickets can be admitted. Unlimited content
// never consults Available.
func (a Availability) CanCover(qty int) bool {
	return a.Unlimited || a.Available >= qty
}

// Availability returns the ledger view of the content
func (c *Content) Availability() Availability {
	return Availability{
		ContentID:  c.ID,
		Title:      c.Title,
		UnitPrices: c.Prices,
		Unlimited:  c.UnlimitedTickets,
		Available:  c.AvailableTickets,
		Total:      c.TotalTickets,
	}
}
