// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap sugared logger behind the process-wide singleton the
// services expect.
type Logger struct {
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global logger instance. Before InitLogger runs it
// logs to stderr at info level.
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		base, _ := zap.NewProduction(zap.AddCallerSkip(1))
		globalLogger = &Logger{sugar: base.Sugar()}
	})
	return globalLogger
}

// InitLogger reconfigures the global logger to tee into a log file.
func InitLogger(logFile string, debug bool) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), level),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	l := GetLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sugar = logger.Sugar()
	return nil
}

func (l *Logger) logger() *zap.SugaredLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sugar
}

// Debug logs a debug message with optional structured fields.
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.logger().Debugw(message, flatten(fields)...)
}

// Info logs an info message with optional structured fields.
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.logger().Infow(message, flatten(fields)...)
}

// Warn logs a warning with optional structured fields.
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.logger().Warnw(message, flatten(fields)...)
}

// Error logs an error with optional structured fields.
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.logger().Errorw(message, flatten(fields)...)
}

// Fatal logs and exits.
func (l *Logger) Fatal(message string, fields map[string]interface{}) {
	l.logger().Fatalw(message, flatten(fields)...)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger().Debugf(format, args...)
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger().Infof(format, args...)
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger().Warnf(format, args...)
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger().Errorf(format, args...)
}

// Fatalf logs a formatted fatal message and exits.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logger().Fatalf(format, args...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() {
	_ = l.logger().Sync()
}

func flatten(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}
