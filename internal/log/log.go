// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log wraps a single global zap.SugaredLogger so packages that
// have no natural place to carry a logger reference (init-time errors,
// package-level helpers) can still log consistently. Components that do
// have a constructor should prefer taking a *zap.SugaredLogger directly
// instead of calling through this package.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	mu      sync.Mutex
	sugared = newFallback()
)

func newFallback() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on a broken encoder config, which
		// the built-in production config never produces.
		panic(err)
	}
	return l.Sugar()
}

// ConfigureLogger builds a logger from cfg, installs it as the package
// global, and returns the underlying *zap.Logger so callers can attach a
// deferred Sync.
func ConfigureLogger(cfg zap.Config) *zap.Logger {
	l, err := cfg.Build()
	if err != nil {
		// Fall back to a logger that still works so the error about the
		// bad config, logged below, actually gets printed somewhere.
		l, _ = zap.NewProduction()
		mu.Lock()
		sugared = l.Sugar()
		mu.Unlock()
		sugared.Errorf("invalid logging config, falling back to defaults: %s", err)
		return l
	}
	mu.Lock()
	sugared = l.Sugar()
	mu.Unlock()
	return l
}

func current() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return sugared
}

// Debug logs args at debug level.
func Debug(args ...interface{}) { current().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...interface{}) { current().Debugf(format, args...) }

// Info logs args at info level.
func Info(args ...interface{}) { current().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) { current().Infof(format, args...) }

// Warn logs args at warn level.
func Warn(args ...interface{}) { current().Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...interface{}) { current().Warnf(format, args...) }

// Error logs args at error level.
func Error(args ...interface{}) { current().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...interface{}) { current().Errorf(format, args...) }

// Fatal logs args at error level and calls os.Exit(1).
func Fatal(args ...interface{}) {
	current().Error(args...)
	os.Exit(1)
}

// Fatalf logs a formatted message at error level and calls os.Exit(1).
func Fatalf(format string, args ...interface{}) {
	current().Errorf(format, args...)
	os.Exit(1)
}

// With returns a sugared child logger with the given key-value pairs,
// for call sites that want structured fields instead of the bare
// package-level helpers.
func With(args ...interface{}) *zap.SugaredLogger {
	return current().With(args...)
}
