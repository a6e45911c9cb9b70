// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/meter-bridge/internal/register"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// RETRY TIERS
	// ------------------------------------------------------------

	if cfg.MaxLoopReconnect < 1 {
		return fmt.Errorf("mqtt_max_loop_reconnect must be >= 1, got %d", cfg.MaxLoopReconnect)
	}
	if cfg.MaxStartup < 1 {
		return fmt.Errorf("mqtt_max_startup must be >= 1, got %d", cfg.MaxStartup)
	}
	if cfg.MaxReconnects < 1 {
		return fmt.Errorf("mqtt_max_reconnects must be >= 1, got %d", cfg.MaxReconnects)
	}

	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(cfg.LLName) == "" {
		return fmt.Errorf("ll_name is required")
	}
	if strings.TrimSpace(cfg.MQTTBroker) == "" {
		return fmt.Errorf("mqtt_broker is required")
	}
	if cfg.MQTTPort < 1 || cfg.MQTTPort > 65535 {
		return fmt.Errorf("mqtt_port %d out of range", cfg.MQTTPort)
	}
	if cfg.MQTTTimeout < 1 {
		return fmt.Errorf("mqtt_timeout must be >= 1 second, got %d", cfg.MQTTTimeout)
	}
	if cfg.CheckupTopic == "" {
		return fmt.Errorf("checkup_topic is required")
	}
	if cfg.RetryWait < 0 {
		return fmt.Errorf("retry_wait must not be negative, got %v", cfg.RetryWait)
	}
	if cfg.ServiceWait <= 0 {
		return fmt.Errorf("service_wait must be > 0, got %v", cfg.ServiceWait)
	}

	// ------------------------------------------------------------
	// FIELD PROTOCOL
	// ------------------------------------------------------------

	if cfg.Modbus.Endpoint == "" {
		return fmt.Errorf("modbus.endpoint is required")
	}
	if cfg.Modbus.Timeout <= 0 {
		return fmt.Errorf("modbus.timeout must be > 0, got %v", cfg.Modbus.Timeout)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0, got %v", cfg.PollInterval)
	}

	// ------------------------------------------------------------
	// REGISTER TABLE
	// ------------------------------------------------------------

	if len(cfg.Registers) == 0 {
		return fmt.Errorf("reg_config must list at least one register")
	}
	if len(cfg.Registers) > register.StoreSlots {
		return fmt.Errorf(
			"reg_config has %d entries but the register store holds %d slots",
			len(cfg.Registers),
			register.StoreSlots,
		)
	}

	// key = register name, value = slot
	seen := make(map[string]int, len(cfg.Registers))

	for i, r := range cfg.Registers {
		// Bits above bit2 carry no destination and are ignored.
		// Unpublished slots are placeholders; their names are never used.
		if r.Flags&FlagMask == 0 {
			continue
		}

		name := strings.TrimSpace(r.Name)
		if name == "" {
			return fmt.Errorf("reg_config[%d]: name is required", i)
		}
		if strings.ContainsAny(name, "+#") {
			return fmt.Errorf("reg_config[%d]: name %q contains an MQTT wildcard", i, name)
		}
		if prev, exists := seen[name]; exists {
			return fmt.Errorf("reg_config: name %q used by slots %d and %d", name, prev, i)
		}
		seen[name] = i
	}

	return nil
}
