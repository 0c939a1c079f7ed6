package floor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"floorstate/internal/domain"
	"floorstate/internal/gateway"
	"floorstate/internal/metrics"
)

// startOfDay truncates t to local midnight. The working set of every
// store is "today" in the display host's calendar.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// OrderStore holds today's orders with their items. It is owned by one
// display session; the session goroutine is the only writer, HTTP
// handlers read snapshots.
type OrderStore struct {
	gw  gateway.Gateway
	now func() time.Time

	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewOrderStore(gw gateway.Gateway) *OrderStore {
	return &OrderStore{gw: gw, now: time.Now, orders: make(map[string]domain.Order)}
}

// Refresh fetches today's orders and their items and replaces the set
// atomically. On any gateway error the previous set is kept; the
// caller logs and retries on the next cycle.
func (s *OrderStore) Refresh(ctx context.Context) error {
	since := startOfDay(s.now())
	orders, err := s.gw.FetchOrders(ctx, since)
	if err != nil {
		metrics.Refreshes.WithLabelValues("orders", "error").Inc()
		return fmt.Errorf("refresh orders: %w", err)
	}

	fresh := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		items, err := s.gw.FetchOrderItems(ctx, o.ID)
		if err != nil {
			metrics.Refreshes.WithLabelValues("orders", "error").Inc()
			return fmt.Errorf("refresh items for order %s: %w", o.ID, err)
		}
		o.Items = items
		fresh[o.ID] = o
	}

	s.mu.Lock()
	s.orders = fresh
	s.mu.Unlock()
	metrics.Refreshes.WithLabelValues("orders", "ok").Inc()
	return nil
}

// ApplyEvent patches the set from one push event. Returns the decoded
// order and whether the event changed the set. Inserts outside the
// today window are ignored. Updates keep previously hydrated items
// when the event record carries none.
func (s *OrderStore) ApplyEvent(ev domain.ChangeEvent) (domain.Order, bool, error) {
	o, err := ev.DecodeOrder()
	if err != nil {
		return domain.Order{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Operation {
	case domain.OpInsert:
		if o.CreatedAt.Before(startOfDay(s.now())) {
			return o, false, nil
		}
		if _, exists := s.orders[o.ID]; exists {
			return o, false, nil // duplicate delivery
		}
		s.orders[o.ID] = o
	case domain.OpUpdate:
		if prev, exists := s.orders[o.ID]; exists && len(o.Items) == 0 {
			o.Items = prev.Items
		} else if !exists && o.CreatedAt.Before(startOfDay(s.now())) {
			return o, false, nil
		}
		s.orders[o.ID] = o
	case domain.OpDelete:
		if _, exists := s.orders[o.ID]; !exists {
			return o, false, nil
		}
		delete(s.orders, o.ID)
	default:
		return o, false, fmt.Errorf("unknown operation %q", ev.Operation)
	}

	metrics.EventsApplied.WithLabelValues(string(domain.EntityOrders), string(ev.Operation)).Inc()
	return o, true, nil
}

// Get returns one order by id.
func (s *OrderStore) Get(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// Snapshot returns a copy of the current working set.
func (s *OrderStore) Snapshot() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// HydrateItems loads items for one order on demand and caches them.
// Used for orders that arrived via insert events with empty items.
func (s *OrderStore) HydrateItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	s.mu.RLock()
	o, ok := s.orders[orderID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, gateway.ErrNotFound)
	}
	if len(o.Items) > 0 {
		return o.Items, nil
	}

	items, err := s.gw.FetchOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("hydrate order %s: %w", orderID, err)
	}

	s.mu.Lock()
	if cur, ok := s.orders[orderID]; ok && len(cur.Items) == 0 {
		cur.Items = items
		s.orders[orderID] = cur
	}
	s.mu.Unlock()
	return items, nil
}
