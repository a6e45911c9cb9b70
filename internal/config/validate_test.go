// internal/config/validate_test.go
package config

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/tamzrod/meter-bridge/internal/logging"
	"github.com/tamzrod/meter-bridge/internal/register"
)

// helper to build a valid config quickly
func valid() *Config {
	cfg := Default()
	cfg.Name = "power"
	cfg.MQTTPrefix = "pm"
	cfg.LLName = "ll"
	cfg.MQTTBroker = "broker.local"
	cfg.Registers = []RegisterEntry{
		{Name: "dt", Flags: 0},
		{Name: "voltage_l1", Flags: FlagRun | FlagCheckup},
		{Name: "serial", Flags: FlagSideChannel},
	}
	return &cfg
}

// ---- tests ----

func TestValidate_OK(t *testing.T) {
	if err := Validate(valid()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RetryMaximumBelowOne(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"loop", func(c *Config) { c.MaxLoopReconnect = 0 }, "mqtt_max_loop_reconnect"},
		{"startup", func(c *Config) { c.MaxStartup = 0 }, "mqtt_max_startup"},
		{"reconnects", func(c *Config) { c.MaxReconnects = -1 }, "mqtt_max_reconnects"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mut(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidate_DuplicateRegisterName(t *testing.T) {
	cfg := valid()
	cfg.Registers = append(cfg.Registers, RegisterEntry{Name: "voltage_l1", Flags: FlagRun})

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate name error, got nil")
	}
}

func TestValidate_UnpublishedPlaceholdersAllowed(t *testing.T) {
	cfg := valid()
	cfg.Registers = append(cfg.Registers,
		RegisterEntry{Name: "", Flags: 0},
		RegisterEntry{Name: "", Flags: 0},
	)

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_WildcardInName(t *testing.T) {
	cfg := valid()
	cfg.Registers[1].Name = "power/#"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected wildcard error, got nil")
	}
}

func TestValidate_TableLongerThanStore(t *testing.T) {
	cfg := valid()
	cfg.Registers = make([]RegisterEntry, register.StoreSlots+1)

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected table length error, got nil")
	}
}

func TestValidate_UnknownFlagBitsIgnored(t *testing.T) {
	cfg := valid()
	cfg.Registers[1].Flags = FlagRun | 0x08
	cfg.Registers = append(cfg.Registers, RegisterEntry{Name: "", Flags: 0x30})

	if err := Validate(cfg); err != nil {
		t.Fatalf("extra flag bits rejected: %v", err)
	}
}

func TestNormalize_TrimsNames(t *testing.T) {
	cfg := valid()
	cfg.Name = " power "
	cfg.Registers[1].Name = " voltage_l1\t"

	Normalize(cfg)

	if cfg.Name != "power" {
		t.Fatalf("name=%q", cfg.Name)
	}
	if cfg.Registers[1].Name != "voltage_l1" {
		t.Fatalf("register name=%q", cfg.Registers[1].Name)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"critical", logging.LevelCritical, false},
		{"", slog.LevelWarn, true},
		{"loud", slog.LevelWarn, true},
	}

	for _, tc := range cases {
		got, err := ParseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("ParseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseLogLevel(%q) err=%v wantErr=%v", tc.in, err, tc.wantErr)
		}
	}
}
