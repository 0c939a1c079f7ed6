package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a service-scoped structured logger. Every entry carries a
// short action name ("refresh_failed", "event_dropped", ...) plus
// free-form fields.
type Logger struct {
	z *zap.Logger
}

func New(service string) *Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.MessageKey = "action"
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(enc),
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(zapcore.DebugLevel),
	)
	host, _ := os.Hostname()
	z := zap.New(core).With(
		zap.String("service", service),
		zap.String("hostname", host),
	)
	return &Logger{z: z}
}

// Named returns a child logger with an extra scope suffix.
func (l *Logger) Named(scope string) *Logger {
	return &Logger{z: l.z.With(zap.String("scope", scope))}
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.z.Info(action, toZap(fields)...)
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.z.Debug(action, toZap(fields)...)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	zf := toZap(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.z.Error(action, zf...)
}

func (l *Logger) Sync() { _ = l.z.Sync() }

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}
