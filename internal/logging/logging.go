package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log output goes. An empty Filename logs to stderr
// only; otherwise output is written to a rotated file and mirrored to stdout.
type Options struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Level      zapcore.Level
}

func DefaultOptions() Options {
	return Options{
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Level:      zapcore.InfoLevel,
	}
}

// New builds a sugared logger. Callers receive an injected instance; there
// is no package-level logger.
func New(opts Options) *zap.SugaredLogger {
	var syncers []zapcore.WriteSyncer

	if opts.Filename == "" {
		syncers = append(syncers, zapcore.AddSync(os.Stderr))
	} else {
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Filename,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}))
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(syncers...),
		opts.Level,
	)

	return zap.New(core, zap.AddCaller()).Sugar()
}
