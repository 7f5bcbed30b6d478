package dispatch

import (
	"context"
	"errors"
	"fmt"

	"courier-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the storage operations behind the dispatcher.
type RepositoryInterface interface {
	// Queue management
	PushNotification(ctx context.Context, agentID string, n models.OrderNotification) error
	PeekNotification(ctx context.Context, agentID string) (*models.OrderNotification, error)
	RemoveNotification(ctx context.Context, agentID, orderID string) error
	CountCandidates(ctx context.Context, orderID string) (int, error)

	// Claiming
	ClaimOrder(ctx context.Context, orderID, agentID string) error
	MarkUnassigned(ctx context.Context, orderID string) error

	// Fan-out support
	NotificationPayload(ctx context.Context, orderID string) (*models.OrderNotification, error)
	ListOnlineAgents(ctx context.Context) ([]string, error)
}

// Repository implements RepositoryInterface on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// PushNotification appends an offer to the agent's queue. A duplicate
// (agent, order) pair maps to ErrConflict so callers can treat re-delivery of
// the same event as a no-op.
func (r *Repository) PushNotification(ctx context.Context, agentID string, n models.OrderNotification) error {
	const query = `
		INSERT INTO assignment_queue (agent_id, order_id, offered_at)
		VALUES ($1, $2, NOW())`
	if _, err := r.db.Exec(ctx, query, agentID, n.OrderID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrConflict
		}
		return fmt.Errorf("repository.PushNotification: %w", err)
	}
	return nil
}

// PeekNotification returns the oldest offer in the agent's queue without
// removing it, or ErrNotFound when the queue is empty.
func (r *Repository) PeekNotification(ctx context.Context, agentID string) (*models.OrderNotification, error) {
	const query = `
		SELECT o.id, o.order_number, o.customer_name, o.customer_phone,
		       o.street_address, o.city, COALESCE(o.state, ''), o.pincode,
		       o.total_amount, q.offered_at
		FROM assignment_queue q
		JOIN orders o ON o.id = q.order_id
		WHERE q.agent_id = $1
		ORDER BY q.offered_at ASC
		LIMIT 1`
	var n models.OrderNotification
	err := r.db.QueryRow(ctx, query, agentID).Scan(
		&n.OrderID, &n.OrderNumber, &n.CustomerName, &n.CustomerPhone,
		&n.DeliveryAddress.Street, &n.DeliveryAddress.City, &n.DeliveryAddress.State, &n.DeliveryAddress.Pincode,
		&n.Total, &n.OfferedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.PeekNotification: %w", err)
	}
	return &n, nil
}

func (r *Repository) RemoveNotification(ctx context.Context, agentID, orderID string) error {
	const query = `DELETE FROM assignment_queue WHERE agent_id = $1 AND order_id = $2`
	cmdTag, err := r.db.Exec(ctx, query, agentID, orderID)
	if err != nil {
		return fmt.Errorf("repository.RemoveNotification: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) CountCandidates(ctx context.Context, orderID string) (int, error) {
	const query = `SELECT COUNT(*) FROM assignment_queue WHERE order_id = $1`
	var count int
	if err := r.db.QueryRow(ctx, query, orderID).Scan(&count); err != nil {
		return 0, fmt.Errorf("repository.CountCandidates: %w", err)
	}
	return count, nil
}

// ClaimOrder atomically assigns the order to the agent and empties every
// rival queue entry for it. The claim and the queue sweep run in one
// transaction; a second accept finds the order already claimed and gets
// ErrConflict.
func (r *Repository) ClaimOrder(ctx context.Context, orderID, agentID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository.ClaimOrder: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx, `
		UPDATE orders
		SET agent_id = $1, updated_at = NOW()
		WHERE id = $2 AND agent_id IS NULL`, agentID, orderID)
	if err != nil {
		return fmt.Errorf("repository.ClaimOrder: claim: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either the order does not exist or someone else won the race.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return fmt.Errorf("repository.ClaimOrder: %w", err)
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM assignment_queue WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("repository.ClaimOrder: sweep: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.ClaimOrder: commit: %w", err)
	}
	return nil
}

// MarkUnassigned returns a fully rejected order to the unassigned pool so the
// dispatcher can offer it again later.
func (r *Repository) MarkUnassigned(ctx context.Context, orderID string) error {
	const query = `UPDATE orders SET agent_id = NULL, updated_at = NOW() WHERE id = $1 AND agent_id IS NULL`
	if _, err := r.db.Exec(ctx, query, orderID); err != nil {
		return fmt.Errorf("repository.MarkUnassigned: %w", err)
	}
	return nil
}

func (r *Repository) NotificationPayload(ctx context.Context, orderID string) (*models.OrderNotification, error) {
	const query = `
		SELECT id, order_number, customer_name, customer_phone,
		       street_address, city, COALESCE(state, ''), pincode, total_amount
		FROM orders
		WHERE id = $1`
	var n models.OrderNotification
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&n.OrderID, &n.OrderNumber, &n.CustomerName, &n.CustomerPhone,
		&n.DeliveryAddress.Street, &n.DeliveryAddress.City, &n.DeliveryAddress.State, &n.DeliveryAddress.Pincode,
		&n.Total,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.NotificationPayload: %w", err)
	}
	return &n, nil
}

func (r *Repository) ListOnlineAgents(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM agents WHERE is_online = TRUE`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository.ListOnlineAgents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository.ListOnlineAgents.Scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
