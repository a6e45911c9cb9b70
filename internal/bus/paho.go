// internal/bus/paho.go
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// PahoConfig is the broker target of a paho transport.
type PahoConfig struct {
	Broker   string
	Port     int
	ClientID string
	Timeout  time.Duration // keepalive and connect timeout
}

type inbound struct {
	topic   string
	payload []byte
}

// PahoTransport is a Transport over the eclipse paho client.
//
// Paho delivers callbacks on its own goroutines. They are queued here and
// dispatched by Service, so handlers always run on the bus loop goroutine.
// Paho's own reconnect logic is disabled; Session decides when to reconnect.
type PahoTransport struct {
	cfg      PahoConfig
	handlers Handlers
	client   mqtt.Client

	lost     chan error
	messages chan inbound
}

// NewPahoFactory returns a Factory producing paho transports for cfg.
func NewPahoFactory(cfg PahoConfig) Factory {
	return func(h Handlers) Transport {
		return NewPahoTransport(cfg, h)
	}
}

// NewPahoTransport builds the client. It does not touch the network.
func NewPahoTransport(cfg PahoConfig, h Handlers) *PahoTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	t := &PahoTransport{
		cfg:      cfg,
		handlers: h,
		lost:     make(chan error, 1),
		messages: make(chan inbound, 64),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetKeepAlive(cfg.Timeout)
	opts.SetConnectTimeout(cfg.Timeout)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		// one pending loss is enough
		select {
		case t.lost <- err:
		default:
		}
	})

	opts.SetDefaultPublishHandler(func(_ mqtt.Client, m mqtt.Message) {
		select {
		case t.messages <- inbound{topic: m.Topic(), payload: m.Payload()}:
		default:
			t.logf(slog.LevelWarn, "inbound queue full, dropped message on %s", m.Topic())
		}
	})

	t.client = mqtt.NewClient(opts)
	return t
}

// Connect dials the broker and runs OnConnect.
// Any failure drops the client back to disconnected; paho refuses Connect
// on a client that is still connected or connecting.
func (t *PahoTransport) Connect(ctx context.Context) error {
	if err := t.await(ctx, t.client.Connect(), "connect"); err != nil {
		t.client.Disconnect(0)
		return err
	}
	if t.handlers.OnConnect != nil {
		if err := t.handlers.OnConnect(); err != nil {
			t.client.Disconnect(0)
			return err
		}
	}
	return nil
}

// Reconnect drops any half-open connection and stale loss signal, then
// connects again.
func (t *PahoTransport) Reconnect(ctx context.Context) error {
	if t.client.IsConnectionOpen() {
		t.client.Disconnect(0)
	}
	select {
	case <-t.lost:
	default:
	}
	return t.Connect(ctx)
}

func (t *PahoTransport) Subscribe(topic string) error {
	return t.await(context.Background(), t.client.Subscribe(topic, 0, nil), "subscribe "+topic)
}

func (t *PahoTransport) Publish(topic string, payload []byte, retain bool) error {
	if !t.client.IsConnectionOpen() {
		return fmt.Errorf("%w: publish %s: not connected", ErrTransport, topic)
	}
	return t.await(context.Background(), t.client.Publish(topic, 0, retain, payload), "publish "+topic)
}

// Service dispatches one queued event. With nothing queued after wait, it
// reports ErrTransport if the connection is gone.
func (t *PahoTransport) Service(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case cause := <-t.lost:
		return t.dispatchLost(ctx, cause)
	case m := <-t.messages:
		return t.dispatchMessage(m)
	case <-timer.C:
	}

	// a loss that raced the timer is handled, not reported
	select {
	case cause := <-t.lost:
		return t.dispatchLost(ctx, cause)
	default:
	}

	if !t.client.IsConnectionOpen() {
		return fmt.Errorf("%w: not connected", ErrTransport)
	}
	return nil
}

func (t *PahoTransport) IsConnected() bool {
	return t.client.IsConnectionOpen()
}

func (t *PahoTransport) Disconnect() {
	t.client.Disconnect(250)
}

// ---- helpers ----

func (t *PahoTransport) dispatchLost(ctx context.Context, cause error) error {
	if t.handlers.OnDisconnect == nil {
		return nil
	}
	return t.handlers.OnDisconnect(ctx, cause)
}

func (t *PahoTransport) dispatchMessage(m inbound) error {
	if t.handlers.OnMessage == nil {
		return nil
	}
	return t.handlers.OnMessage(m.topic, m.payload)
}

// await blocks on tok for at most the configured timeout.
// Every paho failure is reported as ErrTransport.
func (t *PahoTransport) await(ctx context.Context, tok mqtt.Token, op string) error {
	timer := time.NewTimer(t.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-tok.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: %s timed out after %s", ErrTransport, op, t.cfg.Timeout)
	}

	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
	}
	return nil
}

func (t *PahoTransport) logf(level slog.Level, format string, args ...any) {
	if t.handlers.OnLog != nil {
		t.handlers.OnLog(level, fmt.Sprintf(format, args...))
	}
}
