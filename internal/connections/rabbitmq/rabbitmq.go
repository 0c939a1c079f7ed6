package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"floorstate/internal/config"
)

const (
	// EventsExchange carries change events from the remote store,
	// routing key "<entity>.<operation>".
	EventsExchange = "floor_events"
	// DLXExchange receives events a consumer rejected as malformed.
	DLXExchange = "floor_dlx"
	DLQQueue    = "floor_dlq"
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation // publisher confirms
	mu   sync.Mutex               // serializes Publish while waiting for a confirm
}

func Dial(cfg config.RabbitMQConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

// Channel opens a fresh channel on the shared connection. Consumers
// must not share the publish channel.
func (c *Client) Channel() (*amqp.Channel, error) {
	if c.conn == nil || c.conn.IsClosed() {
		return nil, errors.New("rabbitmq connection is closed")
	}
	return c.conn.Channel()
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

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareTopology declares the exchanges and the dead-letter queue.
// Idempotent; every process declares on startup.
func (c *Client) DeclareTopology() error {
	if err := c.ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.ch.ExchangeDeclare(DLXExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(DLQQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return c.ch.QueueBind(DLQQueue, "dlq", DLXExchange, false, nil)
}

// Publish sends one persistent message and waits for the broker ack.
func (c *Client) Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, messageID, correlationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     messageID,
		CorrelationId: correlationID,
		Timestamp:     time.Now().UTC(),
		Headers:       headers,
		Body:          body,
	}); err != nil {
		return err
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}
