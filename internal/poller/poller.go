// internal/poller/poller.go
package poller

import (
	"errors"
	"log/slog"
	"time"

	"github.com/tamzrod/meter-bridge/internal/register"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration
	Banks    []register.Bank
}

// Poller is the poll cadence controller.
// It owns the cadence state and is the only writer of the register store.
type Poller struct {
	cfg     Config
	session *Session
	store   *register.Store
	publish PublishFunc
	log     *slog.Logger

	// cadence state: 0 on the first tick, then 1, 2, 1, 2, ...
	state int
	last  time.Time
}

// New creates a poller with immutable config.
func New(cfg Config, session *Session, store *register.Store, publish PublishFunc, log *slog.Logger) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Banks) == 0 {
		return nil, errors.New("poller: at least one bank required")
	}
	for _, b := range cfg.Banks {
		if b.End < b.Start || b.FirstSlot()+b.Len() > register.StoreSlots {
			return nil, errors.New("poller: bank " + b.Name + " does not fit the register store")
		}
	}
	if session == nil {
		return nil, errors.New("poller: session required")
	}
	if store == nil {
		return nil, errors.New("poller: register store required")
	}
	if publish == nil {
		publish = func(register.Snapshot) {}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Poller{
		cfg:     cfg,
		session: session,
		store:   store,
		publish: publish,
		log:     log,
	}, nil
}

// State returns the cadence state the next tick will run with.
func (p *Poller) State() int { return p.state }

// PollOnce performs exactly one tick at instant now.
// Banks that fail keep their previous store values.
func (p *Poller) PollOnce(now time.Time) TickResult {
	res := TickResult{State: p.state}

	// the time since the previous tick is kept in slot 0
	if p.state != 0 {
		res.Elapsed = now.Sub(p.last).Seconds()
	}
	p.last = now
	p.store.SetElapsed(res.Elapsed)

	for _, b := range p.cfg.Banks {
		if !b.Schedule.Due(p.state) {
			continue
		}
		res.Refreshed = append(res.Refreshed, b.Name)

		values, ok := p.session.ReadBlock(b.Start, b.End)
		if !ok {
			res.Failed = append(res.Failed, b.Name)
			continue
		}
		if err := p.store.Write(b.FirstSlot(), values); err != nil {
			p.log.Error("register store write failed", "bank", b.Name, "error", err)
			res.Failed = append(res.Failed, b.Name)
		}
	}

	if p.state > 1 {
		p.state = 1
	} else {
		p.state++
	}

	p.publish(p.store.Snapshot())

	p.log.Debug("poll tick",
		"state", res.State,
		"elapsed", res.Elapsed,
		"refreshed", res.Refreshed,
		"failed", res.Failed,
	)
	return res
}
