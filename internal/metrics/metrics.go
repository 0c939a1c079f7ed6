package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floorstate_events_applied_total",
		Help: "Push-stream change events applied to the in-memory stores.",
	}, []string{"entity", "operation"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floorstate_events_dropped_total",
		Help: "Push-stream events dropped as malformed or out of window.",
	})

	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floorstate_refreshes_total",
		Help: "Full store refreshes against the gateway.",
	}, []string{"store", "outcome"})

	NotificationsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floorstate_notifications_fired_total",
		Help: "Audible/visual staff alerts fired.",
	})

	GatewayWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floorstate_gateway_write_failures_total",
		Help: "Status writes rejected or failed at the gateway.",
	})

	LiveTables = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "floorstate_live_tables",
		Help: "Tables currently present in the aggregated floor view.",
	})
)
