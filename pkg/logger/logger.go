// Package logger builds the structured logger handed to every component.
package logger

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/shane-reaume/appium-suite/pkg/config"
)

// New builds a logger that writes to console and, when cfg.File is set, to a
// rotating JSON log file. A nil console writes to stderr. The returned
// cleanup flushes the logger and closes the log file; call it once when
// done logging.
func New(cfg config.LogConfig, console zapcore.WriteSyncer) (*zap.Logger, func(), error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	if console == nil {
		console = os.Stderr
	}
	color := isTerminal(console)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder(cfg.Format, color), zapcore.Lock(console), level),
	}

	var file *lumberjack.Logger
	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder("json", false), zapcore.AddSync(file), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel))
	cleanup := func() {
		Sync(l)
		if file != nil {
			if err := file.Close(); err != nil {
				fmt.Fprintln(os.Stderr, "warning: failed to close log file:", err)
			}
		}
	}
	return l, cleanup, nil
}

// encoder builds the encoder for format. Level colors are only used when
// color is set.
func encoder(format string, color bool) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if format == "console" {
		if color {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w interface{}) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Sync flushes buffered entries. Errors from syncing a terminal are expected
// and ignored.
func Sync(l *zap.Logger) {
	if l == nil {
		return
	}
	if err := l.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		fmt.Fprintln(os.Stderr, "warning: failed to sync logger:", err)
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
