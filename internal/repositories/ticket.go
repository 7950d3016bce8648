package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"vr-theatre-marketplace/internal/models"
)

// TicketRepository handles issued ticket data operations
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, order_id, content_id, ticket_type, code, issued_to_email, used_at, used_by, created_at`

// ticketCodeConstraint is the unique constraint guarding ticket codes
const ticketCodeConstraint = "tickets_code_key"

func scanTicket(row rowScanner) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := row.Scan(
		&t.ID,
		&t.OrderID,
		&t.ContentID,
		&t.TicketType,
		&t.Code,
		&t.IssuedToEmail,
		&t.UsedAt,
		&t.UsedBy,
		&t.CreatedAt,
	)
	return t, err
}

func scanTickets(rows *sql.Rows) ([]*models.Ticket, error) {
	defer rows.Close()
	var tickets []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}
	return tickets, nil
}

// GetByCode retrieves a ticket by its code
func (r *TicketRepository) GetByCode(ctx context.Context, code string) (*models.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code = $1`, code))
	if err != nil {
		if nf := notFound(err, models.ErrTicketNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

// ListByOrders returns the tickets issued for the given orders
func (r *TicketRepository) ListByOrders(ctx context.Context, orderIDs []string) ([]*models.Ticket, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE order_id::text = ANY($1) ORDER BY created_at, code`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return scanTickets(rows)
}

// Redeem marks a ticket used in a single conditional update so two
// concurrent scans of one code cannot both succeed. When nothing is updated
// the ticket is re-read to report why.
func (r *TicketRepository) Redeem(ctx context.Context, code, contentID string, usedBy *string) (*models.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `
		UPDATE tickets SET used_at = NOW(), used_by = $3
		WHERE code = $1 AND content_id::text = $2 AND used_at IS NULL
		RETURNING `+ticketColumns, code, contentID, usedBy))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to redeem ticket: %w", err)
	}

	existing, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing.ContentID != contentID {
		return nil, models.ErrContentMismatch
	}
	if existing.IsUsed() {
		return existing, models.ErrAlreadyUsed
	}
	// used_at was cleared between the two statements; tickets never un-redeem
	return nil, fmt.Errorf("failed to redeem ticket %s: inconsistent state", code)
}

// insertTicket stores one ticket inside a fulfillment transaction, retrying
// with a fresh code when the generated one collides. Each attempt runs under
// a savepoint so a collision does not abort the surrounding transaction.
func insertTicket(ctx context.Context, tx *sql.Tx, t *models.Ticket, generate func() (string, error), maxAttempts int) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, err := generate()
		if err != nil {
			return err
		}
		t.Code = code

		if _, err := tx.ExecContext(ctx, `SAVEPOINT ticket_code`); err != nil {
			return fmt.Errorf("failed to create savepoint: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO tickets (id, order_id, content_id, ticket_type, code, issued_to_email, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			RETURNING created_at`,
			t.ID, t.OrderID, t.ContentID, t.TicketType, t.Code, t.IssuedToEmail).Scan(&t.CreatedAt)
		if err == nil {
			if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT ticket_code`); err != nil {
				return fmt.Errorf("failed to release savepoint: %w", err)
			}
			return nil
		}
		if !isUniqueViolation(err, ticketCodeConstraint) {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT ticket_code`); err != nil {
			return fmt.Errorf("failed to roll back savepoint: %w", err)
		}
	}
	return fmt.Errorf("%w: no unique ticket code after %d attempts", models.ErrFulfillmentFailed, maxAttempts)
}
