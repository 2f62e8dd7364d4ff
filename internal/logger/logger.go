// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package logger

import "github.com/kataras/golog"

// Logger provides a simple logging interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type defaultLogger struct {
	log *golog.Logger
}

// New returns a Logger writing through a golog child named after prefix.
// Call SetLevel before creating loggers; children copy the level on creation.
func New(prefix string) Logger {
	return &defaultLogger{log: golog.Child("[" + prefix + "]")}
}

// SetLevel sets the process-wide level ("debug", "info", "warn", "error", "disable").
func SetLevel(level string) {
	golog.SetLevel(level)
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	l.log.Errorf(format, args...)
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Info(format string, args ...interface{})  {}
func (nopLogger) Error(format string, args ...interface{}) {}
func (nopLogger) Debug(format string, args ...interface{}) {}
