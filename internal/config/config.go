// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the immutable document consumed by the daemon.
// Key names match the deployed power_config.json so that file loads as-is.
type Config struct {
	Name        string `yaml:"name"`
	MQTTPrefix  string `yaml:"mqtt_prefix"`
	Description string `yaml:"description"`
	LLName      string `yaml:"ll_name"`

	MQTTBroker  string `yaml:"mqtt_broker"`
	MQTTPort    int    `yaml:"mqtt_port"`
	MQTTTimeout int    `yaml:"mqtt_timeout"` // seconds

	Registers []RegisterEntry `yaml:"reg_config"`

	MaxReconnects    int `yaml:"mqtt_max_reconnects"`
	MaxStartup       int `yaml:"mqtt_max_startup"`
	MaxLoopReconnect int `yaml:"mqtt_max_loop_reconnect"`

	LogLevel string `yaml:"loglevel"`

	CheckupTopic string        `yaml:"checkup_topic"`
	RetryWait    time.Duration `yaml:"retry_wait"`
	ServiceWait  time.Duration `yaml:"service_wait"`
	PollInterval time.Duration `yaml:"poll_interval"`

	Modbus ModbusConfig `yaml:"modbus"`
}

// ---- FIELD PROTOCOL ----

type ModbusConfig struct {
	Endpoint string        `yaml:"endpoint"`
	UnitID   uint8         `yaml:"unit_id"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ---- REGISTER TABLE ----

// Flags selects the publish destinations of one register.
type Flags uint8

const (
	FlagRun         Flags = 1 << 0 // periodic aggregate (<name>/run)
	FlagCheckup     Flags = 1 << 1 // on-demand aggregate (<name>/checkup)
	FlagSideChannel Flags = 1 << 2 // per-register message (<ll_name>/<reg>), on demand only

	FlagMask = FlagRun | FlagCheckup | FlagSideChannel
)

// Has reports whether every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// RegisterEntry is one row of the register table.
// Its index in Config.Registers is the register store slot.
type RegisterEntry struct {
	Name  string
	Flags Flags
}

// UnmarshalYAML accepts both the tuple form ["name", flags]
// and the mapping form {name: ..., flags: ...}.
func (r *RegisterEntry) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		if len(n.Content) != 2 {
			return fmt.Errorf("line %d: register entry must be [name, flags], got %d items", n.Line, len(n.Content))
		}
		if err := n.Content[0].Decode(&r.Name); err != nil {
			return fmt.Errorf("line %d: register name: %w", n.Line, err)
		}
		if err := n.Content[1].Decode(&r.Flags); err != nil {
			return fmt.Errorf("line %d: register flags: %w", n.Line, err)
		}
		return nil

	case yaml.MappingNode:
		var m struct {
			Name  string `yaml:"name"`
			Flags Flags  `yaml:"flags"`
		}
		if err := n.Decode(&m); err != nil {
			return err
		}
		r.Name, r.Flags = m.Name, m.Flags
		return nil

	default:
		return fmt.Errorf("line %d: register entry must be a sequence or a mapping", n.Line)
	}
}
