// Package floor runs one staff display service: a display session fed
// by the remote gateway, exposed over HTTP and websocket.
package floor

import (
	"context"
	"strconv"

	"floorstate/internal/common/httpx"
	"floorstate/internal/common/logger"
	"floorstate/internal/config"
	"floorstate/internal/connections/database"
	"floorstate/internal/connections/rabbitmq"
	floorcore "floorstate/internal/floor"
	"floorstate/internal/gateway"
)

// Run wires config -> connections -> gateway -> session -> HTTP and
// blocks until ctx is done. Label names the display flavor ("waiter",
// "kitchen"); each invocation owns its stores and subscription.
func Run(ctx context.Context, cfg *config.Config, label string, port int) error {
	lg := logger.New(label + "-display")
	defer lg.Sync()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "database": cfg.Database.Database})

	mq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		return err
	}
	lg.Info("mq_connected", map[string]any{"host": cfg.RabbitMQ.Host, "vhost": cfg.RabbitMQ.VHost})

	gw := gateway.NewPostgres(pool, mq, lg.Named("gateway"))

	hub := NewHub(lg.Named("hub"))
	prefs := floorcore.NewFilePrefsStore(cfg.Display.PrefsPath)
	notifier := floorcore.NewNotifier(prefs, hub.BroadcastAlert, lg.Named("notifier"))

	session := floorcore.NewDisplaySession(floorcore.SessionConfig{
		Label:           label,
		RefreshInterval: cfg.Display.RefreshInterval(),
	}, gw, notifier, hub.BroadcastSnapshot, lg.Named("session"))

	controller := floorcore.NewController(gw, session.Orders, session.Requests, lg.Named("controller"))

	a := &api{session: session, controller: controller, hub: hub, lg: lg}

	sessionErr := make(chan error, 1)
	go func() { sessionErr <- session.Run(ctx) }()
	defer hub.CloseAll(context.Background())

	srv := httpx.New(":"+strconv.Itoa(port), a.routes(), cfg.HTTP.ReadTimeout(), cfg.HTTP.WriteTimeout())
	lg.Info("service_started", map[string]any{"label": label, "port": port})

	if err := srv.Run(ctx); err != nil {
		return err
	}
	return <-sessionErr
}
