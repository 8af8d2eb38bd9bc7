package stash

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around your logging
// stack (see log/zap, log/logrus, log/slog) or use LogFunc.
// If Logger is nil in Options, logging is disabled.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// Level names a log severity for LogFunc.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// LogFunc adapts a single callback into a Logger.
type LogFunc func(level Level, msg string, f Fields)

func (fn LogFunc) Debug(msg string, f Fields) { fn(LevelDebug, msg, f) }
func (fn LogFunc) Info(msg string, f Fields)  { fn(LevelInfo, msg, f) }
func (fn LogFunc) Warn(msg string, f Fields)  { fn(LevelWarn, msg, f) }
func (fn LogFunc) Error(msg string, f Fields) { fn(LevelError, msg, f) }

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
