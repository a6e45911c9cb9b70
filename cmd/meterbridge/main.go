// cmd/meterbridge/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tamzrod/meter-bridge/internal/bus"
	"github.com/tamzrod/meter-bridge/internal/config"
	"github.com/tamzrod/meter-bridge/internal/daemon"
	"github.com/tamzrod/meter-bridge/internal/logging"
)

// set with -ldflags "-X main.version=..."
var (
	version = "dev"
	appName = "meter-bridge"
)

func main() {
	os.Exit(run())
}

func run() int {
	// until the config names a level
	log := logging.New(slog.LevelInfo, version, appName)

	if len(os.Args) < 2 {
		log.Error("usage: meterbridge <config.json|config.yaml>")
		return daemon.ExitFailure
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error("config load failed", "path", cfgPath, "error", err)
		return daemon.ExitFailure
	}

	if err := config.Validate(cfg); err != nil {
		log.Error("config validation failed", "path", cfgPath, "error", err)
		return daemon.ExitFailure
	}

	config.Normalize(cfg)

	level, lvlErr := config.ParseLogLevel(cfg.LogLevel)
	log = logging.New(level, version, appName).With("name", cfg.Name)
	if lvlErr != nil {
		log.Warn("log level", "error", lvlErr)
	}

	bus.RoutePahoLogs(log)

	log.Info("starting",
		"description", cfg.Description,
		"broker", cfg.MQTTBroker,
		"port", cfg.MQTTPort,
		"modbus", cfg.Modbus.Endpoint,
	)

	// --------------------
	// Run until signalled
	// --------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return daemon.New(cfg, daemon.Deps{}, log).Run(ctx)
}
