// internal/bus/paholog.go
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/meter-bridge/internal/logging"
)

// pahoLogger adapts one paho log level to slog.
type pahoLogger struct {
	level slog.Level
	log   *slog.Logger
}

func (l pahoLogger) Println(v ...interface{}) {
	l.emit(fmt.Sprintln(v...))
}

func (l pahoLogger) Printf(format string, v ...interface{}) {
	l.emit(fmt.Sprintf(format, v...))
}

func (l pahoLogger) emit(msg string) {
	l.log.Log(context.Background(), l.level, strings.TrimSuffix(msg, "\n"), "source", "paho")
}

// RoutePahoLogs points paho's package loggers at log.
// Paho keeps them as package globals: call once at process start, before
// any transport is built.
func RoutePahoLogs(log *slog.Logger) {
	mqtt.CRITICAL = pahoLogger{level: logging.LevelCritical, log: log}
	mqtt.ERROR = pahoLogger{level: slog.LevelError, log: log}
	mqtt.WARN = pahoLogger{level: slog.LevelWarn, log: log}
	mqtt.DEBUG = pahoLogger{level: slog.LevelDebug, log: log}
}
