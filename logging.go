package bsdf

import "go.uber.org/zap"

// Fields carries structured key/value context alongside a log message.
type Fields map[string]any

// Logger is the structured logging sink a Serializer reports warnings
// through: a minor-version mismatch on decode, an unknown extension
// name encountered on decode, or any other non-fatal condition the
// spec treats as forward-compatible rather than an error.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger discards everything. Used when a caller doesn't supply a
// Logger via WithLogger.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// ZapLogger adapts a *zap.Logger to the Logger interface.
type ZapLogger struct{ L *zap.Logger }

func (z ZapLogger) Debug(msg string, f Fields) { z.L.Debug(msg, zapFields(f)...) }
func (z ZapLogger) Info(msg string, f Fields)  { z.L.Info(msg, zapFields(f)...) }
func (z ZapLogger) Warn(msg string, f Fields)  { z.L.Warn(msg, zapFields(f)...) }
func (z ZapLogger) Error(msg string, f Fields) { z.L.Error(msg, zapFields(f)...) }

func zapFields(f Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func coalesceLogger(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
