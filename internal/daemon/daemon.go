// internal/daemon/daemon.go
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/meter-bridge/internal/bus"
	cfg "github.com/tamzrod/meter-bridge/internal/config"
	"github.com/tamzrod/meter-bridge/internal/logging"
	"github.com/tamzrod/meter-bridge/internal/poller"
	"github.com/tamzrod/meter-bridge/internal/publish"
	"github.com/tamzrod/meter-bridge/internal/register"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1 // config error, startup or loop retries exhausted
	ExitUnexpected = 2 // unclassified failure in the bus loop
)

// Runner is a poll schedule.
type Runner interface {
	Run(ctx context.Context) error
}

// PollerBuilder builds the poll schedule and returns its closer.
type PollerBuilder func(c *cfg.Config, store *register.Store, publish poller.PublishFunc, log *slog.Logger) (Runner, func() error, error)

// Deps are the collaborators a Controller is built from.
// Zero fields get the production implementation.
type Deps struct {
	Bus     bus.Factory
	Poller  PollerBuilder
	BackOff backoff.BackOff

	// Exit terminates the process without running deferred cleanup.
	Exit func(code int)
}

// Controller wires the register store, the poll schedule, the publish
// router and the bus session, and maps their outcome to an exit code.
type Controller struct {
	cfg  *cfg.Config
	deps Deps
	log  *slog.Logger
}

// New returns a controller for a validated, normalized config.
func New(c *cfg.Config, deps Deps, log *slog.Logger) *Controller {
	if deps.Bus == nil {
		deps.Bus = bus.NewPahoFactory(bus.PahoConfig{
			Broker:   c.MQTTBroker,
			Port:     c.MQTTPort,
			ClientID: c.Name,
			Timeout:  time.Duration(c.MQTTTimeout) * time.Second,
		})
	}
	if deps.Poller == nil {
		deps.Poller = buildPoller
	}
	if deps.Exit == nil {
		deps.Exit = os.Exit
	}
	if log == nil {
		log = slog.Default()
	}

	return &Controller{cfg: c, deps: deps, log: log}
}

// Run blocks until ctx is done or the bus session gives up, and returns
// the process exit code.
//
// Exhausting the disconnect tier is the exception: Exit is called from the
// bus goroutine straight away and no cleanup runs.
func (d *Controller) Run(ctx context.Context) int {
	store := register.NewStore()

	plan, err := publish.BuildPlan(d.cfg)
	if err != nil {
		d.log.Error("publish plan failed", "error", err)
		return ExitFailure
	}

	var router *publish.Router

	session, err := bus.NewSession(bus.Config{
		CheckupTopic:  d.cfg.CheckupTopic,
		MaxStartup:    d.cfg.MaxStartup,
		MaxReconnects: d.cfg.MaxReconnects,
		MaxLoop:       d.cfg.MaxLoopReconnect,
		RetryWait:     d.cfg.RetryWait,
		ServiceWait:   d.cfg.ServiceWait,
		BackOff:       d.deps.BackOff,
	}, d.deps.Bus, func() error {
		return router.Checkup(store.Snapshot())
	}, d.log)
	if err != nil {
		d.log.Error("bus session failed", "error", err)
		return ExitFailure
	}

	router = publish.New(plan, session, d.log)

	// --------------------
	// Startup tier
	// --------------------

	if err := session.Connect(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			d.log.Info("stopped before connecting")
			return ExitOK
		}
		d.log.Error("mqtt startup failed", "error", err)
		return ExitFailure
	}
	defer session.Disconnect()

	// --------------------
	// Poll schedule
	// --------------------

	p, closePoller, err := d.deps.Poller(d.cfg, store, func(snap register.Snapshot) {
		_ = router.Periodic(snap)
	}, d.log)
	if err != nil {
		d.log.Error("poller build failed", "error", err)
		return ExitFailure
	}
	defer func() {
		if err := closePoller(); err != nil {
			d.log.Warn("modbus close failed", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.Run(gctx)
	})

	g.Go(func() error {
		err := session.Serve(gctx)
		if errors.Is(err, bus.ErrReconnectExhausted) {
			logging.Critical(d.log, "exiting immediately", "error", err)
			d.deps.Exit(ExitFailure)
		}
		return err
	})

	return d.exitCode(g.Wait())
}

func (d *Controller) exitCode(err error) int {
	var ue *bus.UnexpectedError

	switch {
	case err == nil:
		d.log.Info("shutdown complete")
		return ExitOK
	case errors.As(err, &ue):
		return ExitUnexpected
	case errors.Is(err, bus.ErrLoopExhausted), errors.Is(err, bus.ErrReconnectExhausted):
		d.log.Error("bus session ended", "error", err)
		return ExitFailure
	default:
		logging.Critical(d.log, "unexpected failure", "error", err)
		return ExitUnexpected
	}
}

func buildPoller(c *cfg.Config, store *register.Store, publish poller.PublishFunc, log *slog.Logger) (Runner, func() error, error) {
	p, closer, err := poller.Build(c, store, publish, log)
	if err != nil {
		return nil, nil, err
	}
	return p, closer, nil
}
