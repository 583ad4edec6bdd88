// Package logger - builds the zap logger shared by the command line tools.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and encoding of the logger.
type Config struct {
	// Debug enables debug entries, including the decode diagnostics.
	Debug bool `json:"debug" yaml:"debug" koanf:"debug"`
	// Format is "json" or "console".
	Format string `json:"format" yaml:"format" koanf:"format"`
}

// Validate checks the format name.
func (c Config) Validate() error {
	switch c.Format {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("unknown log format: %q", c.Format)
	}
}

// New returns a logger writing debug and info entries to stdout and warnings and
// errors to stderr.
func New(config Config) (*zap.Logger, error) {
	return NewWithSyncers(config, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr))
}

// NewWithSyncer returns a logger writing every entry to out. Tools whose stdout
// carries data log to stderr this way.
func NewWithSyncer(config Config, out zapcore.WriteSyncer) (*zap.Logger, error) {
	return NewWithSyncers(config, out, out)
}

// NewWithSyncers is New with explicit destinations.
func NewWithSyncers(config Config, stdout, stderr zapcore.WriteSyncer) (*zap.Logger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// debug and info level enabler
	lowLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		if config.Debug {
			return level == zapcore.DebugLevel || level == zapcore.InfoLevel
		}
		return level == zapcore.InfoLevel
	})

	// warn, error and fatal level enabler
	highLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		return level >= zapcore.WarnLevel
	})

	encoderConfig := zap.NewProductionEncoderConfig()
	if config.Debug {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if config.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, stdout, lowLevel),
		zapcore.NewCore(encoder.Clone(), stderr, highLevel),
	)
	return zap.New(core), nil
}
