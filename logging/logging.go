// Package logging builds the zap loggers shared by the server commands.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New
type Options struct {
	Debug bool
	// Console switches from JSON lines to the human readable encoder
	Console bool
	// OutputPaths defaults to stderr so stdout stays free for the MCP transport
	OutputPaths []string
}

// New builds a production logger. The returned level can be changed at runtime.
func New(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Debug {
		config.Level.SetLevel(zapcore.DebugLevel)
	}
	if opts.Console {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	if len(opts.OutputPaths) > 0 {
		config.OutputPaths = opts.OutputPaths
	}

	logger, err := config.Build()
	if err != nil {
		return nil, config.Level, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, config.Level, nil
}
