package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DispatchExchange carries order assignment lifecycle events.
	DispatchExchange = "dispatch_topic"

	// AssignedQueue feeds the dispatcher's fan-out consumer.
	AssignedQueue = "dispatch.assigned.q"

	KeyOrderAssigned = "order.assigned"
	KeyOrderClaimed  = "order.claimed"
)

// Client wraps a single AMQP connection and channel.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeclareTopology sets up the exchange and queues the dispatcher relies on.
// Safe to call on every startup; declarations are idempotent.
func (c *Client) DeclareTopology() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}
	if err := c.ch.ExchangeDeclare(DispatchExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(AssignedQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return c.ch.QueueBind(AssignedQueue, KeyOrderAssigned, DispatchExchange, false, nil)
}

// Publish sends a persistent JSON message on the dispatch exchange.
func (c *Client) Publish(ctx context.Context, key string, body []byte) error {
	return c.ch.PublishWithContext(ctx, DispatchExchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}

// Consume starts delivering messages from the named queue. Messages must be
// acked by the caller.
func (c *Client) Consume(queue, consumer string) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(10, 0, false); err != nil {
		return nil, err
	}
	return c.ch.Consume(queue, consumer, false, false, false, false, nil)
}
