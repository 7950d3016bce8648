package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vr-theatre-marketplace/internal/models"
)

// DefaultCodeAttempts bounds ticket code regeneration after collisions
const DefaultCodeAttempts = 5

// FulfillOptions tunes a fulfillment run
type FulfillOptions struct {
	// Strict fails the run when inventory cannot cover an order. Used when no
	// money has been captured yet.
	Strict       bool
	CodeAttempts int
	GenerateCode func() (string, error)
}

func (o FulfillOptions) withDefaults() FulfillOptions {
	if o.CodeAttempts <= 0 {
		o.CodeAttempts = DefaultCodeAttempts
	}
	if o.GenerateCode == nil {
		o.GenerateCode = models.GenerateTicketCode
	}
	return o
}

// FulfillmentResult is everything a successful run changed
type FulfillmentResult struct {
	Group    *models.OrderGroup
	Orders   []*models.Order
	Tickets  []*models.Ticket
	Oversold []DecrementResult
}

// FulfillmentRepository marks orders paid, issues tickets and decrements
// inventory as one transaction
type FulfillmentRepository struct {
	db *sql.DB
}

// NewFulfillmentRepository creates a new fulfillment repository
func NewFulfillmentRepository(db *sql.DB) *FulfillmentRepository {
	return &FulfillmentRepository{db: db}
}

// FulfillGroup pays a group and all its child orders. A group that is already
// paid yields models.ErrAlreadyFulfilled and issues nothing.
func (r *FulfillmentRepository) FulfillGroup(ctx context.Context, groupID string, opts FulfillOptions) (*FulfillmentResult, error) {
	opts = opts.withDefaults()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := scanGroup(tx.QueryRowContext(ctx, `
		UPDATE order_groups SET status = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> $2
		RETURNING `+groupColumns, groupID, models.OrderPaid))
	if err != nil {
		return nil, explainNoUpdate(ctx, tx, err, "order_groups", groupID, models.ErrOrderGroupNotFound)
	}

	rows, err := tx.QueryContext(ctx, `
		UPDATE orders SET status = $2, paid_at = NOW(), updated_at = NOW()
		WHERE order_group_id = $1 AND status <> $2
		RETURNING `+orderColumns, groupID, models.OrderPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to mark group orders paid: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	group.Orders = orders

	result := &FulfillmentResult{Group: group, Orders: orders}
	if err := issueAndDecrement(ctx, tx, result, opts); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit fulfillment: %w", err)
	}
	return result, nil
}

// FulfillOrder pays a single order. An order that is already paid yields
// models.ErrAlreadyFulfilled and issues nothing.
func (r *FulfillmentRepository) FulfillOrder(ctx context.Context, orderID string, opts FulfillOptions) (*FulfillmentResult, error) {
	opts = opts.withDefaults()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := scanOrder(tx.QueryRowContext(ctx, `
		UPDATE orders SET status = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> $2
		RETURNING `+orderColumns, orderID, models.OrderPaid))
	if err != nil {
		return nil, explainNoUpdate(ctx, tx, err, "orders", orderID, models.ErrOrderNotFound)
	}

	result := &FulfillmentResult{Orders: []*models.Order{order}}
	if err := issueAndDecrement(ctx, tx, result, opts); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit fulfillment: %w", err)
	}
	return result, nil
}

// explainNoUpdate turns a conditional update that matched nothing into
// not-found or already-fulfilled.
func explainNoUpdate(ctx context.Context, tx *sql.Tx, err error, table, id string, missing error) error {
	if isInvalidID(err) {
		return missing
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to mark %s paid: %w", table, err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check %s: %w", table, err)
	}
	if !exists {
		return missing
	}
	return models.ErrAlreadyFulfilled
}

func issueAndDecrement(ctx context.Context, tx *sql.Tx, result *FulfillmentResult, opts FulfillOptions) error {
	for _, order := range result.Orders {
		for i := 0; i < order.Quantity; i++ {
			ticket := &models.Ticket{
				ID:            uuid.NewString(),
				OrderID:       order.ID,
				ContentID:     order.ContentID,
				TicketType:    order.TicketType,
				IssuedToEmail: order.BuyerEmail,
			}
			if err := insertTicket(ctx, tx, ticket, opts.GenerateCode, opts.CodeAttempts); err != nil {
				return fmt.Errorf("order %s: %w", order.ID, err)
			}
			result.Tickets = append(result.Tickets, ticket)
		}

		dec, err := decrementAvailability(ctx, tx, order.ContentID, order.Quantity, opts.Strict)
		if err != nil {
			return err
		}
		if dec.Oversold {
			result.Oversold = append(result.Oversold, dec)
		}
	}
	return nil
}
