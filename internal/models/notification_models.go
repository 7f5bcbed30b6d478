package models

import "time"

// OrderNotification is one entry in an agent's assignment queue. Only the
// head of the queue is ever presented to the agent.
type OrderNotification struct {
	OrderID         string    `json:"order_id"`
	OrderNumber     string    `json:"order_number"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	DeliveryAddress Address   `json:"delivery_address"`
	Total           float64   `json:"total"`
	OfferedAt       time.Time `json:"offered_at"`
}

// ActionResult is the outcome of an accept or reject call.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// AllRejected is set on reject responses when every candidate agent has
	// now turned the order down and it returns to the unassigned pool.
	AllRejected bool `json:"all_rejected,omitempty"`
}

// OrderAssignedEvent is the message published when the dispatcher assigns an
// order to a set of candidate agents.
type OrderAssignedEvent struct {
	OrderID    string   `json:"order_id"`
	AgentIDs   []string `json:"agent_ids"`
	AssignedAt string   `json:"assigned_at"`
}

// OrderClaimedEvent is published once an agent wins the accept race.
type OrderClaimedEvent struct {
	OrderID   string `json:"order_id"`
	AgentID   string `json:"agent_id"`
	ClaimedAt string `json:"claimed_at"`
}
