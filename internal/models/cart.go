package models

// CartLine is one requested line of a checkout, as submitted by the buyer
type CartLine struct {
	ContentID  string `json:"content_id"`
	TicketType string `json:"ticket_type"`
	Quantity   int    `json:"quantity"`
}

// PricedLine is a cart line resolved against the inventory ledger
type PricedLine struct {
	ContentID      string     `json:"content_id"`
	Title          string     `json:"title"`
	TicketType     TicketType `json:"ticket_type"`
	UnitPriceCents int64      `json:"unit_price"` // in cents
	Quantity       int        `json:"quantity"`
}

// Subtotal returns the line total in cents
func (l PricedLine) Subtotal() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// DemandByContent sums quantities per content. Capacity is shared by all
// tiers of a content, so admission must look at the combined demand.
func DemandByContent(lines []PricedLine) map[string]int {
	demand := make(map[string]int, len(lines))
	for _, l := range lines {
		demand[l.ContentID] += l.Quantity
	}
	return demand
}
