package agents

import (
	"context"
	"errors"
	"fmt"

	"courier-dispatch/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the database operations the agents module needs.
type RepositoryInterface interface {
	FindByID(ctx context.Context, agentID string) (*models.Agent, error)
	SetAvailability(ctx context.Context, agentID string, online bool) error
	HasActiveTrip(ctx context.Context, agentID string) (bool, error)
	OrderAgentID(ctx context.Context, orderID string) (string, error)
	InsertTrackingEvent(ctx context.Context, ev *models.TrackingEvent) error
	UpsertCurrentLocation(ctx context.Context, agentID string, report models.LocationReport) error
	ListTrackingEvents(ctx context.Context, orderID string) ([]*models.TrackingEvent, error)
}

// Repository implements RepositoryInterface on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, agentID string) (*models.Agent, error) {
	const query = `
		SELECT id, name, phone, email, is_online, created_at, updated_at
		FROM agents
		WHERE id = $1`
	var a models.Agent
	err := r.db.QueryRow(ctx, query, agentID).Scan(
		&a.ID, &a.Name, &a.Phone, &a.Email, &a.IsOnline, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return &a, nil
}

func (r *Repository) SetAvailability(ctx context.Context, agentID string, online bool) error {
	const query = `UPDATE agents SET is_online = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, query, online, agentID)
	if err != nil {
		return fmt.Errorf("repository.SetAvailability: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// HasActiveTrip reports whether the agent currently holds a picked-up,
// undelivered order.
func (r *Repository) HasActiveTrip(ctx context.Context, agentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM orders WHERE agent_id = $1 AND status = $2)`
	var active bool
	if err := r.db.QueryRow(ctx, query, agentID, models.StatusPickedUp).Scan(&active); err != nil {
		return false, fmt.Errorf("repository.HasActiveTrip: %w", err)
	}
	return active, nil
}

// OrderAgentID returns the agent currently assigned to the order, or
// models.ErrNotFound if the order does not exist or is unassigned.
func (r *Repository) OrderAgentID(ctx context.Context, orderID string) (string, error) {
	const query = `SELECT agent_id FROM orders WHERE id = $1`
	var agentID *string
	if err := r.db.QueryRow(ctx, query, orderID).Scan(&agentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrNotFound
		}
		return "", fmt.Errorf("repository.OrderAgentID: %w", err)
	}
	if agentID == nil {
		return "", models.ErrNotFound
	}
	return *agentID, nil
}

func (r *Repository) InsertTrackingEvent(ctx context.Context, ev *models.TrackingEvent) error {
	ev.ID = uuid.NewString()
	const query = `
		INSERT INTO tracking_events (id, order_id, agent_id, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := r.db.QueryRow(ctx, query, ev.ID, ev.OrderID, ev.AgentID, ev.Latitude, ev.Longitude).
		Scan(&ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.InsertTrackingEvent: %w", err)
	}
	return nil
}

// UpsertCurrentLocation keeps one row per agent with their latest position.
func (r *Repository) UpsertCurrentLocation(ctx context.Context, agentID string, report models.LocationReport) error {
	const query = `
		INSERT INTO agent_locations (agent_id, latitude, longitude, heading, accuracy, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (agent_id) DO UPDATE
		SET latitude = EXCLUDED.latitude,
		    longitude = EXCLUDED.longitude,
		    heading = EXCLUDED.heading,
		    accuracy = EXCLUDED.accuracy,
		    updated_at = NOW()`
	if _, err := r.db.Exec(ctx, query, agentID, report.Latitude, report.Longitude, report.Heading, report.Accuracy); err != nil {
		return fmt.Errorf("repository.UpsertCurrentLocation: %w", err)
	}
	return nil
}

func (r *Repository) ListTrackingEvents(ctx context.Context, orderID string) ([]*models.TrackingEvent, error) {
	const query = `
		SELECT id, order_id, agent_id, latitude, longitude, created_at
		FROM tracking_events
		WHERE order_id = $1
		ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListTrackingEvents: %w", err)
	}
	defer rows.Close()

	var events []*models.TrackingEvent
	for rows.Next() {
		var ev models.TrackingEvent
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.AgentID, &ev.Latitude, &ev.Longitude, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListTrackingEvents.Scan: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
