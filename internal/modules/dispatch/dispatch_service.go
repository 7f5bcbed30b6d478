package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"courier-dispatch/internal/models"
	"courier-dispatch/internal/platform/messaging"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher publishes dispatch lifecycle events. Implemented by
// messaging.Client.
type EventPublisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// ServiceInterface defines the dispatcher's operations.
type ServiceInterface interface {
	NextNotification(ctx context.Context, agentID string) (*models.OrderNotification, error)
	Accept(ctx context.Context, agentID, orderID string) (models.ActionResult, error)
	Reject(ctx context.Context, agentID, orderID string) (models.ActionResult, error)
	HandleAssigned(ctx context.Context, ev models.OrderAssignedEvent) error
}

type service struct {
	repo      RepositoryInterface
	publisher EventPublisher
}

func NewService(repo RepositoryInterface, publisher EventPublisher) ServiceInterface {
	return &service{repo: repo, publisher: publisher}
}

// NextNotification returns the head of the agent's queue, or nil when the
// queue is empty. Only ever the head: the agent sees one offer at a time.
func (s *service) NextNotification(ctx context.Context, agentID string) (*models.OrderNotification, error) {
	n, err := s.repo.PeekNotification(ctx, agentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service.NextNotification: %w", err)
	}
	return n, nil
}

// Accept claims the order for the agent. The repository claim is
// transactional: it assigns the order and removes it from every other
// agent's queue, so a concurrent accept by a rival agent loses cleanly.
func (s *service) Accept(ctx context.Context, agentID, orderID string) (models.ActionResult, error) {
	if err := s.repo.ClaimOrder(ctx, orderID, agentID); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return models.ActionResult{Success: false, Message: "Order was already taken by another agent"}, err
		}
		if errors.Is(err, models.ErrNotFound) {
			return models.ActionResult{Success: false, Message: "Order no longer exists"}, err
		}
		return models.ActionResult{}, fmt.Errorf("service.Accept: %w", err)
	}

	ev := models.OrderClaimedEvent{
		OrderID:   orderID,
		AgentID:   agentID,
		ClaimedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if body, err := json.Marshal(ev); err == nil {
		// Claim already committed; losing the event is tolerable.
		if err := s.publisher.Publish(ctx, messaging.KeyOrderClaimed, body); err != nil {
			log.Printf("dispatch: publish order.claimed failed: %v", err)
		}
	}

	return models.ActionResult{Success: true, Message: "Order assigned to you"}, nil
}

// Reject drops the offer from the agent's queue. When the last candidate
// rejects, the order returns to the unassigned pool and AllRejected is set.
func (s *service) Reject(ctx context.Context, agentID, orderID string) (models.ActionResult, error) {
	if err := s.repo.RemoveNotification(ctx, agentID, orderID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ActionResult{Success: false, Message: "No such offer in your queue"}, err
		}
		return models.ActionResult{}, fmt.Errorf("service.Reject: %w", err)
	}

	remaining, err := s.repo.CountCandidates(ctx, orderID)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("service.Reject: %w", err)
	}
	allRejected := remaining == 0
	if allRejected {
		if err := s.repo.MarkUnassigned(ctx, orderID); err != nil {
			return models.ActionResult{}, fmt.Errorf("service.Reject: %w", err)
		}
	}

	return models.ActionResult{Success: true, Message: "Order rejected", AllRejected: allRejected}, nil
}

// HandleAssigned fans an assignment event out to the queues of the eligible
// online agents. An empty AgentIDs list means "every online agent".
func (s *service) HandleAssigned(ctx context.Context, ev models.OrderAssignedEvent) error {
	payload, err := s.repo.NotificationPayload(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("service.HandleAssigned: %w", err)
	}

	targets := ev.AgentIDs
	if len(targets) == 0 {
		targets, err = s.repo.ListOnlineAgents(ctx)
		if err != nil {
			return fmt.Errorf("service.HandleAssigned: %w", err)
		}
	}

	for _, agentID := range targets {
		err := s.repo.PushNotification(ctx, agentID, *payload)
		if err != nil && !errors.Is(err, models.ErrConflict) {
			return fmt.Errorf("service.HandleAssigned: push to %s: %w", agentID, err)
		}
	}
	return nil
}

// Consumer drains assignment events from the message broker into the
// dispatcher.
type Consumer struct {
	svc ServiceInterface
}

func NewConsumer(svc ServiceInterface) *Consumer {
	return &Consumer{svc: svc}
}

// Run processes deliveries until the channel closes or ctx is done.
// Malformed messages are dropped; handler failures requeue the message once.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			var ev models.OrderAssignedEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			if err := c.svc.HandleAssigned(ctx, ev); err != nil {
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
