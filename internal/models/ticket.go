package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Ticket is a single-use admission credential
type Ticket struct {
	ID            string     `json:"id" db:"id"`
	OrderID       string     `json:"order_id" db:"order_id"`
	ContentID     string     `json:"content_id" db:"content_id"`
	TicketType    TicketType `json:"ticket_type" db:"ticket_type"`
	Code          string     `json:"code" db:"code"`
	IssuedToEmail string     `json:"issued_to_email" db:"issued_to_email"`
	UsedAt        *time.Time `json:"used_at,omitempty" db:"used_at"`
	UsedBy        *string    `json:"used_by,omitempty" db:"used_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// IsUsed checks if the ticket has been redeemed
func (t *Ticket) IsUsed() bool {
	return t.UsedAt != nil
}

const (
	ticketCodeAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	ticketCodeSegmentLen = 4
)

// GenerateTicketCode returns a code such as "K7QF-9XWB". Uniqueness is
// enforced by the tickets.code constraint, not here.
func GenerateTicketCode() (string, error) {
	first, err := randomSegment(ticketCodeSegmentLen)
	if err != nil {
		return "", err
	}
	second, err := randomSegment(ticketCodeSegmentLen)
	if err != nil {
		return "", err
	}
	return first + "-" + second, nil
}

func randomSegment(n int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(ticketCodeAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate ticket code: %w", err)
		}
		sb.WriteByte(ticketCodeAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}

// NormalizeTicketCode makes codes typed by gate staff comparable to stored ones.
func NormalizeTicketCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
