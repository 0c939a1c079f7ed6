package floor

import (
	"context"
	"errors"
	"fmt"

	"floorstate/internal/common/logger"
	"floorstate/internal/domain"
	"floorstate/internal/gateway"
	"floorstate/internal/metrics"
)

var (
	// ErrInvalidTransition means the requested status change is not
	// allowed from the order's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnknownOrder means the order is not in today's working set.
	ErrUnknownOrder = errors.New("unknown order")
)

// Controller enacts staff-driven lifecycle changes. It validates
// against the local working set but writes only through the gateway;
// the stores catch up from the echoed push event. No optimistic local
// mutation: a failed write leaves local state untouched.
type Controller struct {
	gw       gateway.Gateway
	orders   *OrderStore
	requests *RequestQueue
	lg       *logger.Logger
}

func NewController(gw gateway.Gateway, orders *OrderStore, requests *RequestQueue, lg *logger.Logger) *Controller {
	return &Controller{gw: gw, orders: orders, requests: requests, lg: lg}
}

// MarkServed moves a ready order to served. Any other current status
// is rejected with ErrInvalidTransition.
func (c *Controller) MarkServed(ctx context.Context, orderID string) error {
	o, ok := c.orders.Get(orderID)
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, ErrUnknownOrder)
	}
	if !domain.CanTransition(o.Status, domain.StatusServed) {
		return fmt.Errorf("order %s is %q: %w", orderID, o.Status, ErrInvalidTransition)
	}
	if err := c.gw.UpdateOrderStatus(ctx, orderID, domain.StatusServed); err != nil {
		metrics.GatewayWriteFailures.Inc()
		c.lg.Error("mark_served_failed", err, map[string]any{"order_id": orderID})
		return fmt.Errorf("mark served: %w", err)
	}
	c.lg.Info("order_served", map[string]any{"order_id": orderID})
	return nil
}

// AcknowledgeRequest completes a pending service request. Idempotent:
// a request already gone from the pending queue is a no-op.
func (c *Controller) AcknowledgeRequest(ctx context.Context, requestID string) error {
	if _, ok := c.requests.Get(requestID); !ok {
		return nil
	}
	if err := c.gw.UpdateServiceRequestStatus(ctx, requestID, domain.RequestCompleted); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil // raced with another display; already completed
		}
		metrics.GatewayWriteFailures.Inc()
		c.lg.Error("acknowledge_failed", err, map[string]any{"request_id": requestID})
		return fmt.Errorf("acknowledge request: %w", err)
	}
	c.lg.Info("request_acknowledged", map[string]any{"request_id": requestID})
	return nil
}

// CloseReport is the per-row outcome of a table close. The bulk
// operation is not atomic; the UI retries the failed subset.
type CloseReport struct {
	TableNumber    string   `json:"table_number"`
	ClosedOrders   []string `json:"closed_orders"`
	ClosedRequests []string `json:"closed_requests"`
	FailedOrders   []string `json:"failed_orders,omitempty"`
	FailedRequests []string `json:"failed_requests,omitempty"`
}

func (r CloseReport) Ok() bool {
	return len(r.FailedOrders) == 0 && len(r.FailedRequests) == 0
}

// CloseTable completes every open order and pending request at the
// table. Every row is attempted regardless of earlier failures.
func (c *Controller) CloseTable(ctx context.Context, tableNumber string) CloseReport {
	report := CloseReport{TableNumber: tableNumber}

	for _, o := range c.orders.Snapshot() {
		tn, ok := o.Table()
		if !ok || tn != tableNumber || !o.Open() {
			continue
		}
		if err := c.gw.UpdateOrderStatus(ctx, o.ID, domain.StatusCompleted); err != nil {
			metrics.GatewayWriteFailures.Inc()
			c.lg.Error("close_order_failed", err, map[string]any{"table": tableNumber, "order_id": o.ID})
			report.FailedOrders = append(report.FailedOrders, o.ID)
			continue
		}
		report.ClosedOrders = append(report.ClosedOrders, o.ID)
	}

	for _, r := range c.requests.Snapshot() {
		if r.TableNumber != tableNumber {
			continue
		}
		if err := c.gw.UpdateServiceRequestStatus(ctx, r.ID, domain.RequestCompleted); err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				report.ClosedRequests = append(report.ClosedRequests, r.ID)
				continue
			}
			metrics.GatewayWriteFailures.Inc()
			c.lg.Error("close_request_failed", err, map[string]any{"table": tableNumber, "request_id": r.ID})
			report.FailedRequests = append(report.FailedRequests, r.ID)
			continue
		}
		report.ClosedRequests = append(report.ClosedRequests, r.ID)
	}

	c.lg.Info("table_closed", map[string]any{
		"table":           tableNumber,
		"closed_orders":   len(report.ClosedOrders),
		"closed_requests": len(report.ClosedRequests),
		"failed":          len(report.FailedOrders) + len(report.FailedRequests),
	})
	return report
}
