// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	Level      string // debug, info, warn, error
	FilePath   string // rotated JSON log file; empty disables it
	MaxSize    int    // megabytes before rotation
	MaxAge     int    // days
	MaxBackups int
	Compress   bool

	// Console receives human-readable output. Defaults to stderr.
	Console io.Writer
}

// New returns a logger writing to the console and, when FilePath is set, to
// a size-rotated file.
func New(o Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if o.Level != "" {
		if err := level.UnmarshalText([]byte(o.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", o.Level, err)
		}
	}

	console := o.Console
	if console == nil {
		console = os.Stderr
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level),
	}
	if o.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   o.FilePath,
			MaxSize:    o.MaxSize,
			MaxAge:     o.MaxAge,
			MaxBackups: o.MaxBackups,
			Compress:   o.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
