package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"floorstate/internal/connections/rabbitmq"
	"floorstate/internal/domain"
	"floorstate/internal/metrics"
)

// Subscribe binds a private queue to the floor_events exchange and
// delivers decoded change events to onEvent on a single goroutine, in
// delivery order. Malformed payloads are dead-lettered and logged,
// never surfaced to the stores.
func (g *Postgres) Subscribe(ctx context.Context, onEvent func(domain.ChangeEvent)) (Subscription, error) {
	ch, err := g.mq.Channel()
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	// Exclusive auto-delete queue: each display session owns its own
	// copy of the stream; dropping the session drops the queue.
	q, err := ch.QueueDeclare("", false, true, true, false, amqp.Table{
		"x-dead-letter-exchange":    rabbitmq.DLXExchange,
		"x-dead-letter-routing-key": "dlq",
	})
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("subscribe: declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "#", rabbitmq.EventsExchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("subscribe: bind queue: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("subscribe: qos: %w", err)
	}

	tag := "floorstate-" + uuid.NewString()
	msgs, err := ch.Consume(q.Name, tag, false, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("subscribe: consume: %w", err)
	}

	sub := &amqpSubscription{ch: ch, tag: tag, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for d := range msgs {
			var ev domain.ChangeEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				g.lg.Error("event_malformed", err, map[string]any{"routing_key": d.RoutingKey})
				metrics.EventsDropped.Inc()
				_ = d.Nack(false, false) // to DLQ
				continue
			}
			if err := ev.Validate(); err != nil {
				g.lg.Error("event_malformed", err, map[string]any{"routing_key": d.RoutingKey})
				metrics.EventsDropped.Inc()
				_ = d.Nack(false, false)
				continue
			}
			select {
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			default:
			}
			onEvent(ev)
			_ = d.Ack(false)
		}
	}()

	// Tie the subscription to the session context.
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Cancel()
		case <-sub.done:
		}
	}()

	return sub, nil
}

type amqpSubscription struct {
	ch   *amqp.Channel
	tag  string
	done chan struct{}

	once sync.Once
	err  error
}

// Cancel stops the consumer, waits for the delivery loop to drain and
// closes the channel (which deletes the auto-delete queue).
func (s *amqpSubscription) Cancel() error {
	s.once.Do(func() {
		s.err = s.ch.Cancel(s.tag, false)
		<-s.done
		_ = s.ch.Close()
	})
	return s.err
}
