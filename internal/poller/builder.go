// internal/poller/builder.go
package poller

import (
	"log/slog"

	cfg "github.com/tamzrod/meter-bridge/internal/config"
	pmodbus "github.com/tamzrod/meter-bridge/internal/poller/modbus"
	"github.com/tamzrod/meter-bridge/internal/register"
)

// Build constructs the Modbus session and the poller over it.
// The connection is opened by the first read and re-opened after failures,
// so Build never touches the network.
// The returned closer releases the Modbus connection.
func Build(c *cfg.Config, store *register.Store, publish PublishFunc, log *slog.Logger) (*Poller, func() error, error) {
	client, err := pmodbus.New(pmodbus.Config{
		Endpoint: c.Modbus.Endpoint,
		UnitID:   c.Modbus.UnitID,
		Timeout:  c.Modbus.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}

	session, err := NewSession(client, log)
	if err != nil {
		return nil, nil, err
	}

	p, err := New(
		Config{
			Interval: c.PollInterval,
			Banks:    register.Banks,
		},
		session,
		store,
		publish,
		log,
	)
	if err != nil {
		_ = session.Close()
		return nil, nil, err
	}

	return p, session.Close, nil
}
