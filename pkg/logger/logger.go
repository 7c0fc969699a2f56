package logger

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging interface.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Config holds logger configuration.
type Config struct {
	Level       string // debug, info, warn, error
	Environment string // development or production
}

// DefaultConfig returns a development console logger config.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Environment: "development",
	}
}

// zapLogger wraps zap.Logger to implement Logger interface.
type zapLogger struct {
	logger *zap.Logger
}

var (
	defaultLogger Logger
	defaultOnce   sync.Once
)

// New creates a new Logger with the given configuration. Production uses a
// JSON encoder, development a colored console encoder.
func New(cfg Config) (Logger, error) {
	level := parseLevel(cfg.Level)

	var encoder zapcore.Encoder
	if cfg.Environment == "production" {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &zapLogger{logger: logger}, nil
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}

// Default returns the default logger, initializing it if needed.
func Default() Logger {
	defaultOnce.Do(func() {
		logger, _ := New(DefaultConfig())
		defaultLogger = logger
	})
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(l Logger) {
	defaultLogger = l
}

func (l *zapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, fields...)
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, fields...)
}

func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, fields...)
}

func (l *zapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, fields...)
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

func (l *zapLogger) Sync() error {
	return l.logger.Sync()
}

// Context key for logger.
type contextKey struct{}

// WithContext returns a context with the logger attached.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext retrieves the logger from context, or returns the default logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}
	return Default()
}

// parseLevel converts a string level to zapcore.Level.
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
