package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the process logger is built
type Config struct {
	// Level is one of debug, info, warn, error (default info)
	Level string `mapstructure:"level"`
	// Format is json or console (default json)
	Format string `mapstructure:"format"`
	// CallerSkip is added to the caller depth of every entry
	CallerSkip int `mapstructure:"caller_skip"`
	// Output is a zap sink such as stdout, stderr or a file path (default stdout)
	Output string `mapstructure:"output"`
}

// New creates a JSON zap logger at the given level
func New(level string) (*zap.Logger, error) {
	return Build(Config{Level: level})
}

// Build creates a zap logger from cfg. Internal errors go to stderr.
func Build(cfg Config) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	if cfg.Format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{"stderr"}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableCaller = false

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return WithCallerSkip(logger, cfg.CallerSkip), nil
}

// ParseLevel maps a level name to a zap level; unknown names mean info
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// WithCallerSkip adds caller skip to an existing logger
func WithCallerSkip(logger *zap.Logger, skip int) *zap.Logger {
	if logger == nil || skip <= 0 {
		return logger
	}
	return logger.WithOptions(zap.AddCallerSkip(skip))
}
