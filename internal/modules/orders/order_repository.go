package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courier-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the database operations for the orders module.
type RepositoryInterface interface {
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error)
	ListSellerLocations(ctx context.Context, orderID string) ([]models.SellerLocation, error)
	SaveOTP(ctx context.Context, orderID, hash string, expiresAt time.Time) error
	GetOTP(ctx context.Context, orderID string) (hash string, expiresAt time.Time, attempts int, err error)
	RecordOTPAttempt(ctx context.Context, orderID string) error
	InvalidateOTP(ctx context.Context, orderID string) error
}

// Repository implements RepositoryInterface on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const orderColumns = `
	id, order_number, agent_id, status,
	customer_name, customer_phone, customer_email,
	street_address, city, state, pincode,
	dropoff_lat, dropoff_lng,
	items, total_amount, created_at, updated_at`

// scanOrder scans a full order row, including the JSONB items column and the
// optional drop-off coordinates.
func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o         models.Order
		state     *string
		lat, lng  *float64
		itemsJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.AgentID, &o.Status,
		&o.CustomerName, &o.CustomerPhone, &o.CustomerEmail,
		&o.Address.Street, &o.Address.City, &state, &o.Address.Pincode,
		&lat, &lng,
		&itemsJSON, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	if state != nil {
		o.Address.State = *state
	}
	if lat != nil && lng != nil {
		o.DropoffLocation = &models.GeoPoint{Latitude: *lat, Longitude: *lng}
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}
	return &o, nil
}

func (r *Repository) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return order, nil
}

// UpdateStatus sets the order's status and returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING` + orderColumns
	order, err := scanOrder(r.db.QueryRow(ctx, query, status, orderID))
	if err != nil {
		return nil, fmt.Errorf("repository.UpdateStatus: %w", err)
	}
	return order, nil
}

func (r *Repository) ListSellerLocations(ctx context.Context, orderID string) ([]models.SellerLocation, error) {
	const query = `
		SELECT s.store_name, s.address, s.city, s.latitude, s.longitude
		FROM sellers s
		JOIN order_sellers os ON os.seller_id = s.id
		WHERE os.order_id = $1
		ORDER BY os.position ASC`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListSellerLocations: %w", err)
	}
	defer rows.Close()

	var locations []models.SellerLocation
	for rows.Next() {
		var loc models.SellerLocation
		if err := rows.Scan(&loc.StoreName, &loc.Address, &loc.City, &loc.Latitude, &loc.Longitude); err != nil {
			return nil, fmt.Errorf("repository.ListSellerLocations.Scan: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// SaveOTP stores a fresh delivery code hash, replacing any previous one.
func (r *Repository) SaveOTP(ctx context.Context, orderID, hash string, expiresAt time.Time) error {
	const query = `
		INSERT INTO delivery_otps (order_id, code_hash, expires_at, attempts)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (order_id) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at, attempts = 0`
	if _, err := r.db.Exec(ctx, query, orderID, hash, expiresAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// foreign key violation: the order does not exist
			return models.ErrNotFound
		}
		return fmt.Errorf("repository.SaveOTP: %w", err)
	}
	return nil
}

func (r *Repository) GetOTP(ctx context.Context, orderID string) (string, time.Time, int, error) {
	const query = `SELECT code_hash, expires_at, attempts FROM delivery_otps WHERE order_id = $1`
	var (
		hash      string
		expiresAt time.Time
		attempts  int
	)
	err := r.db.QueryRow(ctx, query, orderID).Scan(&hash, &expiresAt, &attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, 0, models.ErrOTPExpired
		}
		return "", time.Time{}, 0, fmt.Errorf("repository.GetOTP: %w", err)
	}
	return hash, expiresAt, attempts, nil
}

func (r *Repository) RecordOTPAttempt(ctx context.Context, orderID string) error {
	const query = `UPDATE delivery_otps SET attempts = attempts + 1 WHERE order_id = $1`
	if _, err := r.db.Exec(ctx, query, orderID); err != nil {
		return fmt.Errorf("repository.RecordOTPAttempt: %w", err)
	}
	return nil
}

func (r *Repository) InvalidateOTP(ctx context.Context, orderID string) error {
	const query = `DELETE FROM delivery_otps WHERE order_id = $1`
	if _, err := r.db.Exec(ctx, query, orderID); err != nil {
		return fmt.Errorf("repository.InvalidateOTP: %w", err)
	}
	return nil
}
