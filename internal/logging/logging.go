// Package logging builds the structured logger used across eqviz.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration
type Config struct {
	Level      string `mapstructure:"log_level" yaml:"log_level"`
	Format     string `mapstructure:"log_format" yaml:"log_format"` // "json" or "console"
	OutputPath string `mapstructure:"log_output" yaml:"log_output"`
	Debug      bool   `mapstructure:"-" yaml:"-"`
}

// New creates a logger writing to stderr unless OutputPath is set.
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Debug {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Sampling = nil
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	if cfg.Debug {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zc.Level = level

	if cfg.Format == "json" {
		zc.Encoding = "json"
	} else {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.OutputPaths = []string{"stderr"}
	if cfg.OutputPath != "" {
		zc.OutputPaths = []string{cfg.OutputPath}
	}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build(zap.Fields(zap.String("service", "eqviz")))
}

// NewDefault never fails: it falls back to a no-op logger.
func NewDefault() *zap.Logger {
	l, err := New(Config{Level: "warn", Format: "console"})
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
