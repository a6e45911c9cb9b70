// internal/config/load.go
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---- DEFAULTS ----

const (
	DefaultMQTTPort       = 1883
	DefaultMQTTTimeout    = 60
	DefaultMaxRetries     = 10
	DefaultCheckupTopic   = "reporter/checkup_req"
	DefaultRetryWait      = 30 * time.Second
	DefaultServiceWait    = 1 * time.Second
	DefaultPollInterval   = 1 * time.Second
	DefaultModbusEndpoint = "localhost:502"
	DefaultModbusUnitID   = 1
	DefaultModbusTimeout  = 5 * time.Second
)

// Default returns a Config holding every default value.
// Load decodes on top of it, so absent keys keep their default.
func Default() Config {
	return Config{
		MQTTPort:         DefaultMQTTPort,
		MQTTTimeout:      DefaultMQTTTimeout,
		MaxReconnects:    DefaultMaxRetries,
		MaxStartup:       DefaultMaxRetries,
		MaxLoopReconnect: DefaultMaxRetries,
		CheckupTopic:     DefaultCheckupTopic,
		RetryWait:        DefaultRetryWait,
		ServiceWait:      DefaultServiceWait,
		PollInterval:     DefaultPollInterval,
		Modbus: ModbusConfig{
			Endpoint: DefaultModbusEndpoint,
			UnitID:   DefaultModbusUnitID,
			Timeout:  DefaultModbusTimeout,
		},
	}
}

// Load reads a YAML (or JSON) document from path.
// It does not validate; call Validate then Normalize.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a document held in memory.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}
