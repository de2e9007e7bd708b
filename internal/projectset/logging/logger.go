// Copyright 2025 AutoPDF BuddhiLW
// SPDX-License-Identifier: Apache-2.0

// Package logging provides a zap-backed implementation of ports.Logger.
package logging

import (
	"go.uber.org/zap"

	"github.com/langsvc/projectset/internal/projectset/ports"
)

// Level controls verbosity, mirroring the coarse levels a long-running
// server process is tuned with at startup.
type Level int

const (
	Silent Level = iota
	Basic
	Detailed
	Debug
)

// Adapter implements ports.Logger on top of a zap.Logger.
type Adapter struct {
	logger *zap.Logger
}

// New builds an Adapter at the given level, writing to stderr so stdout
// stays free for any wire protocol the host process runs.
func New(level Level) *Adapter {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	switch level {
	case Silent:
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case Basic:
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case Detailed:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case Debug:
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return &Adapter{logger: logger}
}

// NewNop returns an Adapter that discards everything, useful in tests.
func NewNop() *Adapter {
	return &Adapter{logger: zap.NewNop()}
}

func fields(keyValues []any) []zap.Field {
	out := make([]zap.Field, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		out = append(out, zap.Any(key, keyValues[i+1]))
	}
	return out
}

func (a *Adapter) Debug(msg string, keyValues ...any) { a.logger.Debug(msg, fields(keyValues)...) }
func (a *Adapter) Info(msg string, keyValues ...any)  { a.logger.Info(msg, fields(keyValues)...) }
func (a *Adapter) Warn(msg string, keyValues ...any)  { a.logger.Warn(msg, fields(keyValues)...) }
func (a *Adapter) Error(msg string, keyValues ...any) { a.logger.Error(msg, fields(keyValues)...) }

// Sync flushes buffered log entries; callers should defer it at startup.
func (a *Adapter) Sync() error {
	return a.logger.Sync()
}

var _ ports.Logger = (*Adapter)(nil)
