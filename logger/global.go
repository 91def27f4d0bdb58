package logger

import (
	"context"

	"github.com/rs/zerolog/log"
)

var globalLogger *Logger

// Init installs the process-wide logger from cfg. Console output is also
// routed through zerolog's package logger so third-party zerolog users
// share the format.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	globalLogger = New(&cfg, cfg.Service)
	if isConsole(cfg.Format) {
		log.Logger = globalLogger.zl
	}
}

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(l *Logger) { globalLogger = l }

// GetGlobalLogger returns the process-wide logger, or a default console
// logger when Init was never called.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewDefault("")
	}
	return globalLogger
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }

// WithComponent narrows the process-wide logger.
func WithComponent(name string) *Logger { return GetGlobalLogger().WithComponent(name) }

// WithContext enriches the process-wide logger from ctx.
func WithContext(ctx context.Context) *Logger { return GetGlobalLogger().WithContext(ctx) }
