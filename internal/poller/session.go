// internal/poller/session.go
package poller

import (
	"errors"
	"log/slog"

	"github.com/tamzrod/meter-bridge/internal/register"
)

// Session owns the Modbus connection to the meter.
// Read failures never leave this type: they are logged and reported
// as "no update".
type Session struct {
	client Client
	log    *slog.Logger
}

// NewSession wraps client. The session closes it on Close.
func NewSession(client Client, log *slog.Logger) (*Session, error) {
	if client == nil {
		return nil, errors.New("poller: modbus client required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{client: client, log: log}, nil
}

// ReadBlock reads logical registers start..end (inclusive) and decodes them.
// Logical register N occupies raw words 2N and 2N+1.
// ok is false when the transport failed or returned no usable data.
func (s *Session) ReadBlock(start, end uint16) (values []float64, ok bool) {
	if end < start {
		return nil, false
	}

	addr := register.WordsPerRegister * start
	qty := register.WordsPerRegister * (end - start + 1)

	words, err := s.client.ReadInputRegisters(addr, qty)
	if err != nil {
		s.log.Warn("modbus read failed",
			"start", start,
			"end", end,
			"error", err,
		)
		return nil, false
	}

	values, ok = register.Decode(words)
	if !ok {
		s.log.Warn("modbus read returned no data",
			"start", start,
			"end", end,
			"words", len(words),
		)
		return nil, false
	}

	want := int(end-start) + 1
	if len(values) != want {
		s.log.Warn("modbus read returned a short block",
			"start", start,
			"end", end,
			"got", len(values),
			"want", want,
		)
		return nil, false
	}

	return values, true
}

// Close releases the Modbus connection.
func (s *Session) Close() error {
	return s.client.Close()
}
