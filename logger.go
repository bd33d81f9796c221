package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger.
// Development logs go to stderr at debug level with colored levels; otherwise
// console-encoded production logs at the configured level. A log file replaces
// stderr, which the TUI requires since it owns the terminal.
func newLogger(cfg Config) (*zap.SugaredLogger, error) {
	if cfg.Output.Format == "tui" && cfg.Log.File == "" {
		return zap.NewNop().Sugar(), nil
	}

	var loggerConfig zap.Config
	if cfg.Log.Development {
		loggerConfig = zap.NewDevelopmentConfig()
		loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		loggerConfig = zap.NewProductionConfig()
		loggerConfig.Encoding = "console"
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		loggerConfig.Level = zap.NewAtomicLevelAt(level)
	}

	if cfg.Log.File != "" {
		loggerConfig.OutputPaths = []string{cfg.Log.File}
		loggerConfig.ErrorOutputPaths = []string{cfg.Log.File}
		loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	// Human-readable timestamps and aligned names
	loggerConfig.DisableCaller = true
	loggerConfig.EncoderConfig.EncodeCaller = nil
	loggerConfig.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
	}
	loggerConfig.EncoderConfig.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("%-12s", name))
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger.Sugar(), nil
}
