/*
Copyright 2026. Physnet Ops, Inc.

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

// Package logutil builds the zap-backed logr loggers used across the
// driver. Verbose driver output goes through V(1); dev mode lowers the
// sink level so it shows up.
package logutil

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns the driver logger. Dev mode enables the V(1) debug
// stream; otherwise stacktraces are reserved for DPanic and above.
func New(devMode bool) logr.Logger {
	cfg := zap.NewProductionConfig()
	opts := []zap.Option{zap.AddStacktrace(zapcore.DPanicLevel)}
	if devMode {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-1))
		cfg.Development = true
	}
	zl, err := cfg.Build(opts...)
	if err != nil {
		return zapr.NewLogger(zap.NewNop())
	}
	return zapr.NewLogger(zl)
}

// NewNop returns a logger that discards everything. Used by tests and
// as the default when no logger is injected.
func NewNop() logr.Logger {
	return zapr.NewLogger(zap.NewNop())
}
