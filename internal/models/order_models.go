package models

import (
	"time"
)

// Order statuses. The first four form the happy path, in delivery order.
// Cancelled and Returned are side branches reachable from any non-terminal
// status.
const (
	StatusPending        = "Pending"
	StatusReadyForPickup = "Ready for pickup"
	StatusPickedUp       = "Picked up"
	StatusDelivered      = "Delivered"
	StatusCancelled      = "Cancelled"
	StatusReturned       = "Returned"
)

// HappyPath is the ordered set of statuses an order moves through when
// nothing goes wrong. Transitions are only ever to the immediate successor.
var HappyPath = []string{StatusPending, StatusReadyForPickup, StatusPickedUp, StatusDelivered}

// StageIndex returns the 0-based position of status on the happy path,
// or -1 for Cancelled/Returned and anything unknown.
func StageIndex(status string) int {
	for i, s := range HappyPath {
		if s == status {
			return i
		}
	}
	return -1
}

// NextStatus returns the immediate successor of status on the happy path.
// The second return is false at the end of the path or off it.
func NextStatus(status string) (string, bool) {
	i := StageIndex(status)
	if i < 0 || i >= len(HappyPath)-1 {
		return "", false
	}
	return HappyPath[i+1], true
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(status string) bool {
	return status == StatusDelivered || status == StatusCancelled || status == StatusReturned
}

// Order represents a delivery order as seen by the assigned agent.
type Order struct {
	ID              string      `json:"id"`
	OrderNumber     string      `json:"order_number"`
	AgentID         *string     `json:"agent_id,omitempty"`
	Status          string      `json:"status"`
	CustomerName    string      `json:"customer_name"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerEmail   string      `json:"customer_email,omitempty"`
	Address         Address     `json:"address"`
	DropoffLocation *GeoPoint   `json:"dropoff_location,omitempty"`
	Items           []OrderItem `json:"items"`
	TotalAmount     float64     `json:"total_amount"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem is a single line item on an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Address is a postal delivery address.
type Address struct {
	Street  string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode"`
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SellerLocation is a pickup point for one or more items on an order.
// Read-only for the delivery module.
type SellerLocation struct {
	StoreName string  `json:"store_name"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StatusUpdateRequest is the body of the agent-facing status transition call.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderEnvelope wraps an order in the response shape the mobile client expects.
type OrderEnvelope struct {
	Data *Order `json:"data"`
}

// OTPVerifyRequest carries the delivery confirmation code typed by the agent.
type OTPVerifyRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}
