// Package logger is the process-wide logger. It is a thin layer over zap
// so packages can log without carrying a logger around. Until Init or
// InitConsole is called every call is a no-op.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger = zap.NewNop().Sugar()
	logFile      *os.File
	mu           sync.Mutex
)

// Init initializes the global logger with the specified log file path.
// Lines are written as JSON.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		_ = globalLogger.Sync()
		logFile.Close()
		logFile = nil
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(f), zapcore.DebugLevel)
	logFile = f
	globalLogger = zap.New(core).Sugar()

	return nil
}

// InitConsole logs human-readable lines to stderr at level and above.
// level is one of debug, info, warn, error.
func InitConsole(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeCaller = nil
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), lvl)

	SetLogger(zap.New(core))
	return nil
}

// SetLogger replaces the global logger. Passing nil restores the no-op
// logger.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()

	if l == nil {
		l = zap.NewNop()
	}
	globalLogger = l.Sugar()
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger.Desugar()
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	_ = globalLogger.Sync()
	if logFile != nil {
		logFile.Close()
		logFile = nil
		globalLogger = zap.NewNop().Sugar()
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	get().Infof(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	get().Debugf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	get().Errorf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	get().Warnf(format, v...)
}

// GetWriter returns the log file, or io.Discard when logging to a file is
// not enabled.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}

func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}
