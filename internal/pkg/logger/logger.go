// Package logger provides a process-wide Sugared Zap logger whose entries are
// enriched with values carried in the context: fields attached with Derive and
// the trace/span identifiers of the active OpenTelemetry span.
package logger

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// contextKey is the private type used to store a derived logger in a context.
type contextKey struct{}

var (
	// baseLogger is the root logger configured by Init.
	baseLogger *zap.SugaredLogger

	// initBaseLoggerOnce guards the one-time configuration of baseLogger.
	initBaseLoggerOnce sync.Once

	// nopLogger is used when nothing has been configured yet, so packages can
	// log from tests without calling Init.
	nopLogger = zap.NewNop().Sugar()

	ctxKey = contextKey{}
)

// Init configures the global logger to emit JSON to stdout at the given level
// ("debug", "info", "warn", "error", "panic", "fatal"). Only the first
// successful call has any effect.
func Init(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	initBaseLoggerOnce.Do(func() {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(os.Stdout),
			lvl,
		)

		baseLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()
	})

	return nil
}

// Sync flushes any buffered log entries. Call it before the process exits.
func Sync() error {
	return baseLogger.Sync()
}

// root returns the configured logger or a no-op one before Init.
func root() *zap.SugaredLogger {
	if baseLogger == nil {
		return nopLogger
	}
	return baseLogger
}

// deriveFromCtx returns the logger stored in ctx (or the root logger) with the
// given key/value pairs and the current trace identifiers attached.
func deriveFromCtx(ctx context.Context, keysAndValues ...any) *zap.SugaredLogger {
	l, ok := ctx.Value(ctxKey).(*zap.SugaredLogger)
	if !ok {
		l = root()
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		keysAndValues = append(keysAndValues,
			"trace.id", sc.TraceID().String(),
			"span.id", sc.SpanID().String(),
		)
	}

	if len(keysAndValues) == 0 {
		return l
	}
	return l.With(keysAndValues...)
}

// Derive returns a copy of ctx carrying a logger with the given key/value
// pairs, so every entry logged with the returned context includes them.
func Derive(ctx context.Context, keysAndValues ...any) context.Context {
	l, ok := ctx.Value(ctxKey).(*zap.SugaredLogger)
	if !ok {
		l = root()
	}

	if len(keysAndValues) > 0 {
		l = l.With(keysAndValues...)
	}

	return context.WithValue(ctx, ctxKey, l)
}

func log(ctx context.Context, level zapcore.Level, msg string, keysAndValues ...any) {
	deriveFromCtx(ctx).Logw(level, msg, keysAndValues...)
}

// Debug logs a debug-level message with optional key/value context.
func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	log(ctx, zapcore.DebugLevel, msg, keysAndValues...)
}

// Info logs an info-level message with optional key/value context.
func Info(ctx context.Context, msg string, keysAndValues ...any) {
	log(ctx, zapcore.InfoLevel, msg, keysAndValues...)
}

// Warn logs a warn-level message with optional key/value context.
func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	log(ctx, zapcore.WarnLevel, msg, keysAndValues...)
}

// Error logs an error-level message with optional key/value context.
func Error(ctx context.Context, msg string, keysAndValues ...any) {
	log(ctx, zapcore.ErrorLevel, msg, keysAndValues...)
}

// Panic logs a panic-level message and then panics.
func Panic(ctx context.Context, msg string, keysAndValues ...any) {
	log(ctx, zapcore.PanicLevel, msg, keysAndValues...)
}

// Fatal logs a fatal-level message and then exits the process.
func Fatal(ctx context.Context, msg string, keysAndValues ...any) {
	log(ctx, zapcore.FatalLevel, msg, keysAndValues...)
}
