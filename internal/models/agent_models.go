package models

import "time"

// Agent represents a delivery agent (rider).
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	IsOnline  bool      `json:"is_online"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvailabilityRequest toggles an agent's online flag.
type AvailabilityRequest struct {
	IsOnline *bool `json:"is_online" validate:"required"`
}

// LocationReport is a single GPS sample pushed by the agent's device while a
// delivery is in progress.
type LocationReport struct {
	Latitude  float64  `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude float64  `json:"longitude" validate:"required,gte=-180,lte=180"`
	Heading   *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
}

// TrackingEvent is a persisted location sample on an order's trace.
type TrackingEvent struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	AgentID   string    `json:"agent_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse is the uniform JSON error envelope.
type ErrorResponse struct {
	Message string `json:"message"`
}
