package floor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"floorstate/internal/common/logger"
	"floorstate/internal/domain"
	"floorstate/internal/gateway"
	"floorstate/internal/metrics"
)

// SessionConfig shapes one display session.
type SessionConfig struct {
	// Label distinguishes concurrent sessions against the same
	// gateway ("waiter", "kitchen").
	Label string
	// RefreshInterval is the periodic full-refresh cadence.
	RefreshInterval time.Duration
}

// DisplaySession owns the two stores, the push subscription and the
// notifier for one staff display. All store mutation happens on the
// session goroutine; readers take snapshots. Sessions share nothing
// but the gateway.
type DisplaySession struct {
	ID  string
	cfg SessionConfig

	gw       gateway.Gateway
	Orders   *OrderStore
	Requests *RequestQueue
	notifier *Notifier

	onSnapshot func([]domain.LiveTable)
	events     chan domain.ChangeEvent
	lg         *logger.Logger
}

func NewDisplaySession(cfg SessionConfig, gw gateway.Gateway, notifier *Notifier, onSnapshot func([]domain.LiveTable), lg *logger.Logger) *DisplaySession {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	return &DisplaySession{
		ID:         uuid.NewString(),
		cfg:        cfg,
		gw:         gw,
		Orders:     NewOrderStore(gw),
		Requests:   NewRequestQueue(gw),
		notifier:   notifier,
		onSnapshot: onSnapshot,
		events:     make(chan domain.ChangeEvent, 64),
		lg:         lg,
	}
}

// Run drives the session until ctx is done: initial refresh, push
// subscription, then one loop applying events and periodic refreshes.
// Teardown cancels the subscription; whatever an in-flight fetch
// returns afterwards is discarded with the session.
func (s *DisplaySession) Run(ctx context.Context) error {
	s.lg.Info("session_started", map[string]any{"session_id": s.ID, "label": s.cfg.Label})

	s.refresh(ctx)

	sub, err := s.gw.Subscribe(ctx, func(ev domain.ChangeEvent) {
		select {
		case s.events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Cancel() }()

	s.publish()

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.lg.Info("session_stopped", map[string]any{"session_id": s.ID})
			return nil
		case ev := <-s.events:
			s.apply(ev)
			s.publish()
		case <-ticker.C:
			s.refresh(ctx)
			s.publish()
		}
	}
}

// apply routes one event to its store and fires the notifier for
// inserts that actually entered the working set. Malformed records
// are logged and dropped; the pipeline never stops.
func (s *DisplaySession) apply(ev domain.ChangeEvent) {
	switch ev.Entity {
	case domain.EntityOrders:
		o, applied, err := s.Orders.ApplyEvent(ev)
		if err != nil {
			metrics.EventsDropped.Inc()
			s.lg.Error("event_dropped", err, map[string]any{"entity": string(ev.Entity), "op": string(ev.Operation)})
			return
		}
		if applied && ev.Operation == domain.OpInsert {
			s.notifier.OrderInserted(o)
		}
	case domain.EntityServiceRequests:
		r, applied, err := s.Requests.ApplyEvent(ev)
		if err != nil {
			metrics.EventsDropped.Inc()
			s.lg.Error("event_dropped", err, map[string]any{"entity": string(ev.Entity), "op": string(ev.Operation)})
			return
		}
		if applied && ev.Operation == domain.OpInsert {
			s.notifier.RequestInserted(r)
		}
	default:
		metrics.EventsDropped.Inc()
		s.lg.Error("event_dropped", nil, map[string]any{"entity": string(ev.Entity)})
	}
}

// refresh reloads both stores. Failures are soft: the previous sets
// stay, the next cycle retries, the display never goes blank.
func (s *DisplaySession) refresh(ctx context.Context) {
	if err := s.Orders.Refresh(ctx); err != nil {
		s.lg.Error("refresh_failed", err, map[string]any{"store": "orders"})
	}
	if err := s.Requests.Refresh(ctx); err != nil {
		s.lg.Error("refresh_failed", err, map[string]any{"store": "requests"})
	}
}

func (s *DisplaySession) publish() {
	tables := s.Current()
	metrics.LiveTables.Set(float64(len(tables)))
	if s.onSnapshot != nil {
		s.onSnapshot(tables)
	}
}

// Current recomputes the aggregated floor view from the stores.
func (s *DisplaySession) Current() []domain.LiveTable {
	return Aggregate(s.Orders.Snapshot(), s.Requests.Snapshot())
}

// Notifier exposes the session's notification trigger to the HTTP
// surface for the enable/disable toggle.
func (s *DisplaySession) Notifier() *Notifier { return s.notifier }
