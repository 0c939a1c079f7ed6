package floor

import (
	"context"
	"sync"
	"time"

	"floorstate/internal/domain"
	"floorstate/internal/gateway"
)

// fakeGateway is an in-memory Gateway for store/controller/session
// tests. Writes are recorded and applied to the fake's own rows so a
// follow-up fetch reflects them.
type fakeGateway struct {
	mu       sync.Mutex
	orders   []domain.Order
	items    map[string][]domain.OrderItem
	requests []domain.ServiceRequest

	fetchOrdersErr   error
	fetchItemsErr    error
	fetchRequestsErr error
	orderWriteErr    map[string]error
	requestWriteErr  map[string]error

	orderWrites   map[string][]domain.OrderStatus
	requestWrites map[string][]domain.RequestStatus

	onEvent  func(domain.ChangeEvent)
	canceled bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		items:           make(map[string][]domain.OrderItem),
		orderWriteErr:   make(map[string]error),
		requestWriteErr: make(map[string]error),
		orderWrites:     make(map[string][]domain.OrderStatus),
		requestWrites:   make(map[string][]domain.RequestStatus),
	}
}

func (f *fakeGateway) FetchOrders(ctx context.Context, since time.Time) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchOrdersErr != nil {
		return nil, f.fetchOrdersErr
	}
	var out []domain.Order
	for _, o := range f.orders {
		if !o.CreatedAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeGateway) FetchOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchItemsErr != nil {
		return nil, f.fetchItemsErr
	}
	return f.items[orderID], nil
}

func (f *fakeGateway) FetchServiceRequests(ctx context.Context, status domain.RequestStatus, since time.Time) ([]domain.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchRequestsErr != nil {
		return nil, f.fetchRequestsErr
	}
	var out []domain.ServiceRequest
	for _, r := range f.requests {
		if r.Status == status && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeGateway) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.orderWriteErr[orderID]; err != nil {
		return err
	}
	f.orderWrites[orderID] = append(f.orderWrites[orderID], status)
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders[i].Status = status
			return nil
		}
	}
	return gateway.ErrNotFound
}

func (f *fakeGateway) UpdateServiceRequestStatus(ctx context.Context, requestID string, status domain.RequestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requestWriteErr[requestID]; err != nil {
		return err
	}
	f.requestWrites[requestID] = append(f.requestWrites[requestID], status)
	for i := range f.requests {
		if f.requests[i].ID == requestID {
			f.requests[i].Status = status
			return nil
		}
	}
	return gateway.ErrNotFound
}

func (f *fakeGateway) Subscribe(ctx context.Context, onEvent func(domain.ChangeEvent)) (gateway.Subscription, error) {
	f.mu.Lock()
	f.onEvent = onEvent
	f.mu.Unlock()
	return &fakeSubscription{gw: f}, nil
}

// emit delivers one event as the push stream would.
func (f *fakeGateway) emit(ev domain.ChangeEvent) {
	f.mu.Lock()
	onEvent := f.onEvent
	f.mu.Unlock()
	if onEvent != nil {
		onEvent(ev)
	}
}

type fakeSubscription struct {
	gw   *fakeGateway
	once sync.Once
}

func (s *fakeSubscription) Cancel() error {
	s.once.Do(func() {
		s.gw.mu.Lock()
		s.gw.canceled = true
		s.gw.onEvent = nil
		s.gw.mu.Unlock()
	})
	return nil
}

func strPtr(s string) *string { return &s }

// fixedClock pins a store's notion of "now" for today-window tests.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }
