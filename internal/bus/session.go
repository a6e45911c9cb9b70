// internal/bus/session.go
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tamzrod/meter-bridge/internal/logging"
)

// Config is the runtime config of a bus session.
type Config struct {
	CheckupTopic string

	MaxStartup    int
	MaxReconnects int
	MaxLoop       int

	RetryWait   time.Duration
	ServiceWait time.Duration

	// BackOff paces every retry tier. Nil means a constant RetryWait.
	BackOff backoff.BackOff
}

// Counters holds the three retry-tier counters.
type Counters struct {
	Startup   int
	Reconnect int
	Loop      int
}

// Session supervises one bus transport through startup, disconnect
// recovery and the steady network-service loop.
//
// Connect and Serve must be called from the same goroutine (the bus loop).
// Publish may be called from any goroutine.
type Session struct {
	cfg       Config
	transport Transport
	backoff   backoff.BackOff
	checkup   func() error
	log       *slog.Logger

	mu       sync.Mutex
	state    State
	counters Counters

	// set by a failed loop iteration; the next iteration reconnects first
	reconnect bool
}

// NewSession creates a session and its transport.
// checkup is invoked for every message on the checkup topic.
func NewSession(cfg Config, factory Factory, checkup func() error, log *slog.Logger) (*Session, error) {
	if factory == nil {
		return nil, errors.New("bus: transport factory required")
	}
	if cfg.CheckupTopic == "" {
		return nil, errors.New("bus: checkup topic required")
	}
	if cfg.MaxStartup < 1 || cfg.MaxReconnects < 1 || cfg.MaxLoop < 1 {
		return nil, errors.New("bus: retry maxima must be >= 1")
	}
	if cfg.ServiceWait <= 0 {
		return nil, errors.New("bus: service wait must be > 0")
	}
	if checkup == nil {
		checkup = func() error { return nil }
	}
	if log == nil {
		log = slog.Default()
	}

	bo := cfg.BackOff
	if bo == nil {
		bo = backoff.NewConstantBackOff(cfg.RetryWait)
	}

	s := &Session{
		cfg:     cfg,
		backoff: bo,
		checkup: checkup,
		log:     log,
		state:   Disconnected,
	}

	s.transport = factory(Handlers{
		OnConnect:    s.onConnect,
		OnDisconnect: s.onDisconnect,
		OnMessage:    s.onMessage,
		OnLog:        s.onLog,
	})
	if s.transport == nil {
		return nil, errors.New("bus: factory returned no transport")
	}

	return s, nil
}

// State returns the current supervisor state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Counters returns a copy of the retry counters.
func (s *Session) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Connect runs the startup tier: connect, and on failure wait and retry
// until MaxStartup attempts have failed.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(Connecting)

	for {
		err := s.transport.Connect(ctx)
		if err == nil {
			s.backoff.Reset()
			return nil
		}

		// a half-completed attempt must not block the next one
		if s.transport.IsConnected() {
			s.transport.Disconnect()
		}
		if ctx.Err() != nil {
			s.setState(Disconnected)
			return ctx.Err()
		}

		n := s.bump(&s.counters.Startup)
		s.log.Error("mqtt connect failed",
			"attempt", n,
			"max", s.cfg.MaxStartup,
			"error", err,
		)

		if n >= s.cfg.MaxStartup {
			s.setState(Terminated)
			logging.Critical(s.log, "mqtt startup retries exhausted", "attempts", n)
			return fmt.Errorf("%w after %d attempts: %v", ErrStartupExhausted, n, err)
		}

		if err := s.pause(ctx); err != nil {
			s.setState(Disconnected)
			return err
		}
	}
}

// Serve drives the network-service loop until ctx is done or a tier gives up.
//
// It returns nil on cancellation, ErrLoopExhausted or ErrReconnectExhausted
// when a tier is exhausted, and *UnexpectedError for anything unclassified.
func (s *Session) Serve(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := s.iterate(ctx)
		if err == nil {
			s.resetLoop()
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		switch {
		case errors.Is(err, ErrReconnectExhausted):
			s.setState(Terminated)
			return err

		case isTransient(err):
			n := s.bump(&s.counters.Loop)
			s.reconnect = true
			s.log.Error("mqtt loop failed",
				"attempt", n,
				"max", s.cfg.MaxLoop,
				"error", err,
			)

			if n >= s.cfg.MaxLoop {
				s.setState(Terminated)
				logging.Critical(s.log, "mqtt loop retries exhausted", "attempts", n)
				return fmt.Errorf("%w after %d attempts: %v", ErrLoopExhausted, n, err)
			}

			if s.pause(ctx) != nil {
				return nil
			}

		default:
			s.setState(Terminated)
			logging.Critical(s.log, "unexpected failure in mqtt loop",
				"error", fmt.Sprintf("%+v", err),
				"state", s.State().String(),
				"counters", s.Counters(),
			)
			return &UnexpectedError{Err: err}
		}
	}
}

// Publish sends one message over the current connection.
func (s *Session) Publish(topic string, payload []byte, retain bool) error {
	return s.transport.Publish(topic, payload, retain)
}

// Disconnect closes the transport.
func (s *Session) Disconnect() {
	s.transport.Disconnect()
	s.setState(Disconnected)
	s.log.Info("mqtt disconnected")
}

// iterate is one loop step: a pending reconnect, then one service call.
func (s *Session) iterate(ctx context.Context) error {
	if s.reconnect {
		s.log.Warn("mqtt reconnecting after loop failure")
		if err := s.transport.Reconnect(ctx); err != nil {
			return err
		}
		s.reconnect = false
	}
	return s.transport.Service(ctx, s.cfg.ServiceWait)
}

// ---- handlers ----

func (s *Session) onConnect() error {
	if err := s.transport.Subscribe(s.cfg.CheckupTopic); err != nil {
		return fmt.Errorf("bus: subscribe %s: %w", s.cfg.CheckupTopic, err)
	}

	s.mu.Lock()
	s.state = Connected
	s.counters.Startup = 0
	s.counters.Reconnect = 0
	s.mu.Unlock()

	s.log.Info("mqtt connected", "subscribed", s.cfg.CheckupTopic)
	return nil
}

// onDisconnect runs the disconnect tier. Exhausting it returns
// ErrReconnectExhausted, which the caller treats as an immediate stop.
func (s *Session) onDisconnect(ctx context.Context, cause error) error {
	if cause == nil {
		s.log.Warn("mqtt disconnected cleanly")
		s.setState(Disconnected)
		return nil
	}
	if s.transport.IsConnected() {
		return nil
	}

	s.setState(RecoveringFromDisconnect)
	s.log.Warn("mqtt connection lost", "error", cause)

	for {
		err := s.transport.Reconnect(ctx)
		if err == nil {
			s.backoff.Reset()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTransient(err) {
			return err
		}

		n := s.bump(&s.counters.Reconnect)
		s.log.Error("mqtt reconnect failed",
			"attempt", n,
			"max", s.cfg.MaxReconnects,
			"error", err,
		)

		if n >= s.cfg.MaxReconnects {
			s.setState(Terminated)
			logging.Critical(s.log, "mqtt reconnect retries exhausted", "attempts", n)
			return fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, n, err)
		}

		if err := s.pause(ctx); err != nil {
			return err
		}
	}
}

func (s *Session) onMessage(topic string, _ []byte) error {
	if topic != s.cfg.CheckupTopic {
		s.log.Debug("ignoring message", "topic", topic)
		return nil
	}

	s.log.Info("checkup requested", "topic", topic)
	if err := s.checkup(); err != nil {
		s.log.Warn("checkup publish incomplete", "error", err)
	}
	return nil
}

func (s *Session) onLog(level slog.Level, msg string) {
	s.log.Log(context.Background(), level, msg, "source", "paho")
}

// ---- helpers ----

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) bump(c *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	*c++
	return *c
}

func (s *Session) resetLoop() {
	s.mu.Lock()
	if s.counters.Loop != 0 {
		s.counters.Loop = 0
		s.backoff.Reset()
	}
	s.mu.Unlock()
}

// pause waits the next backoff interval or until ctx is done.
func (s *Session) pause(ctx context.Context) error {
	d := s.backoff.NextBackOff()
	if d == backoff.Stop || d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
