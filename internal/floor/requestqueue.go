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

// RequestQueue holds today's pending service requests. Completed
// requests drop out of the queue; the remote store keeps the history.
type RequestQueue struct {
	gw  gateway.Gateway
	now func() time.Time

	mu       sync.RWMutex
	requests map[string]domain.ServiceRequest
}

func NewRequestQueue(gw gateway.Gateway) *RequestQueue {
	return &RequestQueue{gw: gw, now: time.Now, requests: make(map[string]domain.ServiceRequest)}
}

// Refresh fetches today's pending requests and replaces the set
// atomically. Keeps the previous set on gateway error.
func (q *RequestQueue) Refresh(ctx context.Context) error {
	since := startOfDay(q.now())
	reqs, err := q.gw.FetchServiceRequests(ctx, domain.RequestPending, since)
	if err != nil {
		metrics.Refreshes.WithLabelValues("requests", "error").Inc()
		return fmt.Errorf("refresh service requests: %w", err)
	}

	fresh := make(map[string]domain.ServiceRequest, len(reqs))
	for _, r := range reqs {
		fresh[r.ID] = r
	}

	q.mu.Lock()
	q.requests = fresh
	q.mu.Unlock()
	metrics.Refreshes.WithLabelValues("requests", "ok").Inc()
	return nil
}

// ApplyEvent patches the queue from one push event. An update that
// moves a request out of pending removes it.
func (q *RequestQueue) ApplyEvent(ev domain.ChangeEvent) (domain.ServiceRequest, bool, error) {
	r, err := ev.DecodeServiceRequest()
	if err != nil {
		return domain.ServiceRequest{}, false, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	switch ev.Operation {
	case domain.OpInsert:
		if r.Status != domain.RequestPending || r.CreatedAt.Before(startOfDay(q.now())) {
			return r, false, nil
		}
		if _, exists := q.requests[r.ID]; exists {
			return r, false, nil
		}
		q.requests[r.ID] = r
	case domain.OpUpdate:
		_, exists := q.requests[r.ID]
		if r.Status != domain.RequestPending {
			if !exists {
				return r, false, nil
			}
			delete(q.requests, r.ID)
		} else {
			if !exists && r.CreatedAt.Before(startOfDay(q.now())) {
				return r, false, nil
			}
			q.requests[r.ID] = r
		}
	case domain.OpDelete:
		if _, exists := q.requests[r.ID]; !exists {
			return r, false, nil
		}
		delete(q.requests, r.ID)
	default:
		return r, false, fmt.Errorf("unknown operation %q", ev.Operation)
	}

	metrics.EventsApplied.WithLabelValues(string(domain.EntityServiceRequests), string(ev.Operation)).Inc()
	return r, true, nil
}

// Get returns one pending request by id.
func (q *RequestQueue) Get(id string) (domain.ServiceRequest, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	r, ok := q.requests[id]
	return r, ok
}

// Snapshot returns a copy of the pending set.
func (q *RequestQueue) Snapshot() []domain.ServiceRequest {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]domain.ServiceRequest, 0, len(q.requests))
	for _, r := range q.requests {
		out = append(out, r)
	}
	return out
}
