package gateway

import (
	"context"
	"errors"
	"time"

	"floorstate/internal/domain"
)

// ErrNotFound means the record does not exist or is already terminal;
// the conditional UPDATE matched no row.
var ErrNotFound = errors.New("record not found or already closed")

// Subscription is a live push-stream consumer. Cancel stops delivery
// and releases the underlying consumer; it is safe to call twice.
type Subscription interface {
	Cancel() error
}

// Gateway is the remote persistent store plus its push stream. The
// rest of the application treats it as the single source of truth;
// the in-memory stores are caches over it.
type Gateway interface {
	FetchOrders(ctx context.Context, since time.Time) ([]domain.Order, error)
	FetchOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	FetchServiceRequests(ctx context.Context, status domain.RequestStatus, since time.Time) ([]domain.ServiceRequest, error)

	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	UpdateServiceRequestStatus(ctx context.Context, requestID string, status domain.RequestStatus) error

	// Subscribe starts delivering change events to onEvent, one at a
	// time, in delivery order. Delivery stops when ctx is done or the
	// subscription is canceled.
	Subscribe(ctx context.Context, onEvent func(domain.ChangeEvent)) (Subscription, error)
}
