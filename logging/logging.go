// Package logging owns the process-wide zap logger.
//
// Packages never hold a logger in a package-level variable; they call
// Named at the point of use so that tests, which never call Init, log
// through zap's no-op default.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes logger options.
type Config struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// Format is "json" or "console".
	Format string
	// Path appends logs to a file in addition to stdout when set.
	Path string
}

var (
	mu      sync.Mutex
	global  *zap.Logger
	closers []io.Closer
)

// Init builds the global logger and installs it as zap's global.
// Calling Init again replaces the previous logger.
func Init(cfg Config) (*zap.Logger, error) {
	l, c, err := build(cfg)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	prev := closers
	global, closers = l, c
	mu.Unlock()
	for _, cl := range prev {
		_ = cl.Close()
	}
	zap.ReplaceGlobals(l)
	return l, nil
}

// L returns the global logger, or zap.L() before Init.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		return global
	}
	return zap.L()
}

// Named returns a sugared logger annotated with name.
func Named(name string) *zap.SugaredLogger {
	return L().Named(name).Sugar()
}

// Sync flushes buffered entries and closes file sinks.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
	for _, c := range closers {
		_ = c.Close()
	}
	closers = nil
}

func build(cfg Config) (*zap.Logger, []io.Closer, error) {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var enc zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	var cl []io.Closer
	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(f))
		cl = append(cl, f)
	}

	level := zap.NewAtomicLevel()
	text := strings.ToLower(strings.TrimSpace(cfg.Level))
	if text == "" {
		text = "info"
	}
	if err := level.UnmarshalText([]byte(text)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller()), cl, nil
}
