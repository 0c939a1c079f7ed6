package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"floorstate/internal/common/logger"
	"floorstate/internal/connections/rabbitmq"
	"floorstate/internal/domain"
)

// Postgres implements Gateway over the restaurant database. Status
// writes go through conditional UPDATEs so a terminal order can never
// be reopened, and every successful write is echoed onto the push
// stream so all display sessions converge without polling.
type Postgres struct {
	pool *pgxpool.Pool
	mq   *rabbitmq.Client
	lg   *logger.Logger
}

func NewPostgres(pool *pgxpool.Pool, mq *rabbitmq.Client, lg *logger.Logger) *Postgres {
	return &Postgres{pool: pool, mq: mq, lg: lg}
}

func (g *Postgres) FetchOrders(ctx context.Context, since time.Time) ([]domain.Order, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, order_number, table_number, customer_name, status,
		       order_type, payment_method, notes, total, created_at
		FROM orders
		WHERE created_at >= $1
		ORDER BY created_at`, since)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.TableNumber, &o.CustomerName,
			&o.Status, &o.OrderType, &o.PaymentMethod, &o.Notes, &o.Total, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (g *Postgres) FetchOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT item_name, item_name_localized, quantity, unit_price,
		       total_price, special_instructions, modifiers
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		var mods []byte
		if err := rows.Scan(&it.ItemName, &it.ItemNameLocalized, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.SpecialInstructions, &mods); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if len(mods) > 0 {
			if err := json.Unmarshal(mods, &it.Modifiers); err != nil {
				return nil, fmt.Errorf("decode modifiers: %w", err)
			}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (g *Postgres) FetchServiceRequests(ctx context.Context, status domain.RequestStatus, since time.Time) ([]domain.ServiceRequest, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, table_number, request_type, status, created_at
		FROM service_requests
		WHERE status = $1 AND created_at >= $2
		ORDER BY created_at`, status, since)
	if err != nil {
		return nil, fmt.Errorf("fetch service requests: %w", err)
	}
	defer rows.Close()

	var out []domain.ServiceRequest
	for rows.Next() {
		var r domain.ServiceRequest
		if err := rows.Scan(&r.ID, &r.TableNumber, &r.Type, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan service request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g *Postgres) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')`, orderID, status)
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update order %s: %w", orderID, ErrNotFound)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_at)
		VALUES ($1, $2, now())`, orderID, status); err != nil {
		return fmt.Errorf("log order status %s: %w", orderID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}

	g.echoOrder(ctx, orderID)
	return nil
}

func (g *Postgres) UpdateServiceRequestStatus(ctx context.Context, requestID string, status domain.RequestStatus) error {
	tag, err := g.pool.Exec(ctx, `
		UPDATE service_requests SET status = $2 WHERE id = $1`, requestID, status)
	if err != nil {
		return fmt.Errorf("update service request %s: %w", requestID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update service request %s: %w", requestID, ErrNotFound)
	}

	g.echoServiceRequest(ctx, requestID)
	return nil
}

// echoOrder re-reads the row and publishes an update event. Best
// effort: the write already committed, a lost echo is reconciled by
// the next refresh.
func (g *Postgres) echoOrder(ctx context.Context, orderID string) {
	var o domain.Order
	err := g.pool.QueryRow(ctx, `
		SELECT id, order_number, table_number, customer_name, status,
		       order_type, payment_method, notes, total, created_at
		FROM orders WHERE id = $1`, orderID).
		Scan(&o.ID, &o.OrderNumber, &o.TableNumber, &o.CustomerName,
			&o.Status, &o.OrderType, &o.PaymentMethod, &o.Notes, &o.Total, &o.CreatedAt)
	if err != nil {
		g.lg.Error("event_echo_failed", err, map[string]any{"entity": "orders", "id": orderID})
		return
	}
	ev, err := domain.NewOrderEvent(domain.OpUpdate, o)
	if err != nil {
		g.lg.Error("event_echo_failed", err, map[string]any{"entity": "orders", "id": orderID})
		return
	}
	g.publish(ctx, ev, orderID)
}

func (g *Postgres) echoServiceRequest(ctx context.Context, requestID string) {
	var r domain.ServiceRequest
	err := g.pool.QueryRow(ctx, `
		SELECT id, table_number, request_type, status, created_at
		FROM service_requests WHERE id = $1`, requestID).
		Scan(&r.ID, &r.TableNumber, &r.Type, &r.Status, &r.CreatedAt)
	if err != nil {
		g.lg.Error("event_echo_failed", err, map[string]any{"entity": "service_requests", "id": requestID})
		return
	}
	ev, err := domain.NewServiceRequestEvent(domain.OpUpdate, r)
	if err != nil {
		g.lg.Error("event_echo_failed", err, map[string]any{"entity": "service_requests", "id": requestID})
		return
	}
	g.publish(ctx, ev, requestID)
}

func (g *Postgres) publish(ctx context.Context, ev domain.ChangeEvent, correlationID string) {
	body, err := json.Marshal(ev)
	if err != nil {
		g.lg.Error("event_publish_failed", err, map[string]any{"key": ev.RoutingKey()})
		return
	}
	err = g.mq.Publish(ctx, rabbitmq.EventsExchange, ev.RoutingKey(), body,
		amqp.Table{"x-source": "floorstate"}, uuid.NewString(), correlationID)
	if err != nil {
		g.lg.Error("event_publish_failed", err, map[string]any{"key": ev.RoutingKey()})
	}
}
