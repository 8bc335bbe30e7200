// Copyright 2017 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides a key-value logging front end over slog, shared by the
// assembler, the optimizer passes and the command line tools.
package log

import (
	"os"
	"sync/atomic"

	"golang.org/x/exp/slog"
)

// Logger writes key-value records at the usual levels. Context keys set with
// New are carried on every record.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

type logger struct {
	inner *slog.Logger
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

func (l *logger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }

var root atomic.Pointer[logger]

func init() {
	level := slog.LevelInfo
	if os.Getenv("EVMASM_VERBOSITY") == "debug" {
		level = slog.LevelDebug
	}
	root.Store(&logger{inner: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))})
}

// Root returns the root logger.
func Root() Logger {
	return root.Load()
}

// SetDefault replaces the root logger's backing slog handler.
func SetDefault(l *slog.Logger) {
	root.Store(&logger{inner: l})
}

// New returns a child of the root logger carrying the given context.
func New(ctx ...any) Logger {
	return Root().New(ctx...)
}

// Debug logs at level Debug on the root logger.
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }

// Info logs at level Info on the root logger.
func Info(msg string, ctx ...any) { Root().Info(msg, ctx...) }

// Warn logs at level Warn on the root logger.
func Warn(msg string, ctx ...any) { Root().Warn(msg, ctx...) }

// Error logs at level Error on the root logger.
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
