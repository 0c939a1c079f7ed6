package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"floorstate/internal/app/floor"
	"floorstate/internal/common/logger"
	"floorstate/internal/config"
)

func main() {
	mode := flag.String("mode", "", "waiter-display | kitchen-display")
	port := flag.Int("port", 0, "http port (default per mode)")
	cfgPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	lg := logger.New("bootstrap")
	defer lg.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var label string
	var defPort int
	switch *mode {
	case "waiter-display":
		label, defPort = "waiter", 3001
	case "kitchen-display":
		label, defPort = "kitchen", 3002
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: waiter-display | kitchen-display")
		os.Exit(2)
	}

	// precedence: -port flag, then config, then the mode default
	if *port == 0 {
		*port = cfg.HTTP.Port
	}
	if *port == 0 {
		*port = defPort
	}

	lg.Info("service_starting", map[string]any{"mode": *mode, "port": *port})
	if err := floor.Run(ctx, cfg, label, *port); err != nil {
		lg.Error("fatal", err, nil)
		os.Exit(1)
	}
}
