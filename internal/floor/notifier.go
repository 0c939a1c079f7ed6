package floor

import (
	"sync"
	"time"

	"floorstate/internal/common/logger"
	"floorstate/internal/domain"
	"floorstate/internal/metrics"
)

type AlertKind string

const (
	AlertNewOrder   AlertKind = "new_order"
	AlertNewRequest AlertKind = "new_request"
)

// Alert is one audible/visual cue for the staff display.
type Alert struct {
	Kind        AlertKind `json:"kind"`
	ID          string    `json:"id"`
	TableNumber string    `json:"table_number,omitempty"`
	At          time.Time `json:"at"`
}

// Notifier decides when a cue fires: exactly once per observed insert,
// never for updates or deletes, and only while enabled. The sink must
// not block; delivery failure never propagates to the state update
// that triggered it.
type Notifier struct {
	mu      sync.Mutex
	enabled bool

	store PrefsStore
	sink  func(Alert)
	lg    *logger.Logger
}

func NewNotifier(store PrefsStore, sink func(Alert), lg *logger.Logger) *Notifier {
	p, err := store.Load()
	if err != nil {
		lg.Error("prefs_load_failed", err, nil)
		p = defaultPrefs()
	}
	return &Notifier{enabled: p.NotificationsEnabled, store: store, sink: sink, lg: lg}
}

func (n *Notifier) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// SetEnabled toggles the cue and persists the choice. A failed save is
// logged; the in-memory flag still switches.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	n.enabled = enabled
	n.mu.Unlock()
	if err := n.store.Save(Prefs{NotificationsEnabled: enabled}); err != nil {
		n.lg.Error("prefs_save_failed", err, nil)
	}
	n.lg.Info("notifications_toggled", map[string]any{"enabled": enabled})
}

// OrderInserted fires a cue for a newly observed order.
func (n *Notifier) OrderInserted(o domain.Order) {
	tn, _ := o.Table()
	n.fire(Alert{Kind: AlertNewOrder, ID: o.ID, TableNumber: tn, At: time.Now()})
}

// RequestInserted fires a cue for a newly observed service request.
func (n *Notifier) RequestInserted(r domain.ServiceRequest) {
	n.fire(Alert{Kind: AlertNewRequest, ID: r.ID, TableNumber: r.TableNumber, At: time.Now()})
}

func (n *Notifier) fire(a Alert) {
	if !n.Enabled() {
		return
	}
	metrics.NotificationsFired.Inc()
	n.lg.Debug("notification_fired", map[string]any{"kind": string(a.Kind), "id": a.ID})
	if n.sink != nil {
		n.sink(a)
	}
}
