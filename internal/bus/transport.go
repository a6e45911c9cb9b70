// internal/bus/transport.go
package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"syscall"
	"time"
)

// State is the supervisor state of a bus session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	RecoveringFromDisconnect
	Terminated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case RecoveringFromDisconnect:
		return "recovering"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Handlers is the capability set a session registers with its transport.
//
// OnConnect runs after every successful Connect or Reconnect, on the caller's
// goroutine. OnDisconnect and OnMessage run from Service, on the bus loop
// goroutine. A nil cause passed to OnDisconnect means a clean disconnect.
// An error returned by a handler is returned by the transport call that
// invoked it.
type Handlers struct {
	OnConnect    func() error
	OnDisconnect func(ctx context.Context, cause error) error
	OnMessage    func(topic string, payload []byte) error
	OnLog        func(level slog.Level, msg string)
}

// Transport is one bus client connection.
type Transport interface {
	Connect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Subscribe(topic string) error
	Publish(topic string, payload []byte, retain bool) error

	// Service handles at most one pending network event, waiting up to wait
	// for one to arrive.
	Service(ctx context.Context, wait time.Duration) error

	IsConnected() bool
	Disconnect()
}

// Factory creates a transport bound to handlers.
type Factory func(Handlers) Transport

// ---- errors ----

var (
	// ErrTransport marks a recoverable connection-level failure.
	ErrTransport = errors.New("bus: transport error")

	ErrStartupExhausted   = errors.New("bus: startup retries exhausted")
	ErrReconnectExhausted = errors.New("bus: reconnect retries exhausted")
	ErrLoopExhausted      = errors.New("bus: loop retries exhausted")
)

// UnexpectedError is an unclassified failure inside the network-service loop.
// It is never retried.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	return "bus: unexpected loop failure: " + e.Err.Error()
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// isTransient reports whether err is a timeout or connection-level failure.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrTransport),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed):
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}

	var errno syscall.Errno
	return errors.As(err, &errno)
}
