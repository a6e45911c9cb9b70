// internal/config/normalize.go
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tamzrod/meter-bridge/internal/logging"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.LLName = strings.TrimSpace(cfg.LLName)
	cfg.MQTTBroker = strings.TrimSpace(cfg.MQTTBroker)

	for i := range cfg.Registers {
		cfg.Registers[i].Name = strings.TrimSpace(cfg.Registers[i].Name)
	}
}

// ParseLogLevel maps the loglevel key onto a slog level.
// An empty or unknown value yields warning level plus a non-nil error
// describing why; callers log it and carry on.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical", "fatal":
		return logging.LevelCritical, nil
	case "":
		return slog.LevelWarn, fmt.Errorf("log level not configured, defaulting to WARNING")
	default:
		return slog.LevelWarn, fmt.Errorf("invalid loglevel %q, defaulting to WARNING", s)
	}
}
