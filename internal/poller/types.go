// internal/poller/types.go
package poller

import (
	"github.com/tamzrod/meter-bridge/internal/register"
)

// Client abstracts the Modbus operations the poller needs.
type Client interface {
	ReadInputRegisters(addr, qty uint16) ([]uint16, error) // FC 4
	Close() error
}

// PublishFunc receives the store snapshot at the end of every tick.
type PublishFunc func(snap register.Snapshot)

// TickResult describes one poll tick.
type TickResult struct {
	// State is the cadence state the tick ran with.
	State int
	// Elapsed is the value written to slot 0, in seconds.
	Elapsed float64
	// Refreshed lists the banks that were due, in read order.
	Refreshed []string
	// Failed lists the due banks whose read produced no update.
	Failed []string
}
