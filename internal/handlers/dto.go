package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"vr-theatre-marketplace/internal/models"
	"vr-theatre-marketplace/internal/services"
)

// Clients send both camelCase and snake_case bodies. Everything in this file
// maps them onto the canonical request types; nothing past the handlers sees
// an alias.

const maxBodyBytes = 1 << 20

// firstNonEmpty returns the first value that is not blank
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstSet(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// lineDTO is one cart line in any accepted spelling
type lineDTO struct {
	ContentID      string `json:"content_id"`
	ContentIDCamel string `json:"contentId"`
	TicketType     string `json:"ticket_type"`
	TicketTypeAlt  string `json:"ticketType"`
	Tier           string `json:"tier"`
	Quantity       *int   `json:"quantity"`
	Qty            *int   `json:"qty"`
}

func (d lineDTO) toModel() models.CartLine {
	return models.CartLine{
		ContentID:  firstNonEmpty(d.ContentID, d.ContentIDCamel),
		TicketType: firstNonEmpty(d.TicketType, d.TicketTypeAlt, d.Tier),
		Quantity:   firstSet(d.Quantity, d.Qty),
	}
}

// buyerDTO carries the fields shared by purchase and cart bodies
type buyerDTO struct {
	BuyerEmail         string `json:"buyer_email"`
	BuyerEmailCamel    string `json:"buyerEmail"`
	Email              string `json:"email"`
	Method             string `json:"method"`
	PaymentMethod      string `json:"payment_method"`
	PaymentMethodCamel string `json:"paymentMethod"`
}

func (d buyerDTO) email() string {
	return strings.TrimSpace(firstNonEmpty(d.BuyerEmail, d.BuyerEmailCamel, d.Email))
}

func (d buyerDTO) method() services.PaymentMethod {
	return services.ParsePaymentMethod(firstNonEmpty(d.Method, d.PaymentMethod, d.PaymentMethodCamel))
}

// purchaseDTO is the body of POST /purchase
type purchaseDTO struct {
	lineDTO
	buyerDTO
}

// cartDTO is the body of POST /purchase/cart and its quote
type cartDTO struct {
	Items     []lineDTO `json:"items"`
	Lines     []lineDTO `json:"lines"`
	CartItems []lineDTO `json:"cart_items"`
	buyerDTO
}

func (d cartDTO) lines() []models.CartLine {
	src := d.Items
	if len(src) == 0 {
		src = d.Lines
	}
	if len(src) == 0 {
		src = d.CartItems
	}

	lines := make([]models.CartLine, 0, len(src))
	for _, l := range src {
		lines = append(lines, l.toModel())
	}
	return lines
}

// payDTO is the body of POST /order-group/{id}/pay
type payDTO struct {
	buyerDTO
}

// redeemDTO is the body of POST /redeem
type redeemDTO struct {
	Code           string `json:"code"`
	TicketCode     string `json:"ticket_code"`
	TicketCodeAlt  string `json:"ticketCode"`
	ContentID      string `json:"content_id"`
	ContentIDCamel string `json:"contentId"`
}

func (d redeemDTO) code() string {
	return firstNonEmpty(d.Code, d.TicketCode, d.TicketCodeAlt)
}

func (d redeemDTO) contentID() string {
	return firstNonEmpty(d.ContentID, d.ContentIDCamel)
}

// decodeBody reads a JSON body into dst. An empty body leaves dst zeroed.
func decodeBody(body io.Reader, dst interface{}) error {
	if body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return models.NewValidationError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}
