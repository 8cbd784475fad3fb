package log

import (
	"io"
	"os"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger installs the global zap logger. Entries go to the colour console and, when path is
// set, to a JSON file. A Sentry core is attached for errors when sentryDsn is set.
func NewLogger(path string, debug bool, sentryDsn string) {
	zap.ReplaceGlobals(Build(colorable.NewColorableStdout(), path, debug, sentryDsn))
}

func Build(console io.Writer, path string, debug bool, sentryDsn string) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.MessageKey = "message"
	ec.TimeKey = "time"

	cores := make([]zapcore.Core, 0, 2)
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(ec), zapcore.AddSync(f), level))
		} else {
			zap.L().With(zap.Error(err), zap.String("path", path)).Warn("Log: Unable to open log file")
		}
	}

	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(console), level))

	logger := zap.New(zapcore.NewTee(cores...))
	if sentryDsn != "" {
		logger = withSentry(logger, sentryDsn)
	}

	return logger
}

func withSentry(logger *zap.Logger, dsn string) *zap.Logger {
	cfg := zapsentry.Configuration{
		Level:             zapcore.ErrorLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   zapcore.InfoLevel,
		Tags: map[string]string{
			"component": "marketplace",
		},
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromDSN(dsn))

	logger = logger.With(zapsentry.NewScope())

	// a failed core is a noop core
	if err != nil {
		logger.Warn("Log: Failed to init sentry", zap.Error(err))
	}
	return zapsentry.AttachCoreToLogger(core, logger)
}
