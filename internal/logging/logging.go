/*
Copyright 2025 The gradcompose Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging builds the logr loggers used across gradcompose.
//
// Library code logs through logr and never configures a sink itself. The
// command line tool (and tests) install a zap-backed sink with SetLogger.
// Verbosity follows the logr convention: V(0) is informational, V(DEBUG)
// reports composition layouts and cross-check reports, V(TRACE) reports every
// evaluation.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels for logger.V(...).
const (
	DEBUG = 1
	TRACE = 2
)

// Log is the process-wide fallback logger. It discards everything until
// SetLogger is called.
var Log = logr.Discard()

// Options configures NewLogger.
type Options struct {
	// Verbosity is the highest V-level that is emitted (0 = info only).
	Verbosity int
	// Development switches to zap's development config (stack traces on warn,
	// no sampling).
	Development bool
	// JSON selects JSON encoding; console encoding otherwise.
	JSON bool
}

// NewLogger builds a zap-backed logr.Logger.
func NewLogger(opts Options) (logr.Logger, error) {
	if opts.Verbosity < 0 {
		return logr.Discard(), fmt.Errorf("verbosity must be >= 0, got %d", opts.Verbosity)
	}
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	// zapr maps V(n) onto zap level -n.
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-opts.Verbosity))
	if opts.JSON {
		cfg.Encoding = "json"
	} else {
		cfg.Encoding = "console"
	}
	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("building zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// ParseVerbosity converts a level name (info, debug, trace) into a V-level.
func ParseVerbosity(level string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return 0, nil
	case "debug":
		return DEBUG, nil
	case "trace":
		return TRACE, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// SetLogger replaces the process-wide logger. Call it once at startup.
func SetLogger(l logr.Logger) {
	Log = l
}

// FromContext returns the logger stored in ctx, or the process-wide logger.
func FromContext(ctx context.Context) logr.Logger {
	if ctx != nil {
		if l, err := logr.FromContext(ctx); err == nil {
			return l
		}
	}
	return Log
}

// NewWriterLogger returns a development console logger writing to w.
func NewWriterLogger(w io.Writer, verbosity int) logr.Logger {
	zl := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.Level(-verbosity),
	))
	return zapr.NewLogger(zl)
}

// NewTestLogger installs a development logger at TRACE verbosity and returns it.
func NewTestLogger() logr.Logger {
	l := NewWriterLogger(zapcore.Lock(os.Stderr), TRACE)
	SetLogger(l)
	return l
}
