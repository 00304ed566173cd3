// Package logging builds the zap logger shared by the CLI and the control loop.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	defaultMu     sync.RWMutex
	defaultLogger = zap.NewNop()
)

// New builds a logger writing to stderr. format is "console" or "json".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoding := strings.ToLower(format)
	if encoding == "" {
		encoding = "console"
	}
	if encoding != "console" && encoding != "json" {
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(lvl),
		Development:       false,
		Encoding:          encoding,
		EncoderConfig:     encCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     true,
		DisableStacktrace: true,
	}
	return cfg.Build()
}

// ParseLevel accepts debug, info, warn, error (case-insensitive).
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel, nil
	case "", "info":
		return zap.InfoLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("logging: unknown level %q", level)
	}
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *zap.Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// L returns the process-wide logger, a no-op logger until SetDefault is called.
func L() *zap.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}
