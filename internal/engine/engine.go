// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器
//
// Package engine defines the contract of the external transcoding engine and
// manages its one-time bootstrap.

package engine

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable means the engine library could not be imported
	ErrUnavailable = errors.New("engine unavailable")
	// ErrLoadFailed means the engine handle failed to initialize
	ErrLoadFailed = errors.New("engine load failed")
)

// LogKind classifies engine log messages
type LogKind string

const (
	LogInfo   LogKind = "info"
	LogStdout LogKind = "ffout"
	LogStderr LogKind = "fferr"
	LogError  LogKind = "error"
)

// LogFunc receives engine log messages
type LogFunc func(kind LogKind, message string)

// ProgressFunc receives the engine's own completion ratio in [0, 1]
type ProgressFunc func(ratio float64)

// Options for constructing an engine handle
type Options struct {
	Log      bool
	CorePath string
}

// RunStats describes the most recent Run
type RunStats struct {
	Duration   time.Duration `json:"duration"`
	PeakCPU    float64       `json:"peak_cpu_percent"`
	PeakMemory uint64        `json:"peak_memory_bytes"`
}

// Engine is an opaque transcoding capability driven through a virtual
// filesystem and a command invocation.
//
// Run may report a normal stop as an error containing "exit(0)"; callers
// treat that as success.
type Engine interface {
	Load(ctx context.Context) error
	Run(ctx context.Context, args ...string) error
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	Unlink(name string) error

	SetLogger(fn LogFunc)
	SetProgress(fn ProgressFunc)
	LastRun() RunStats
}

// Base supplies no-op optional capabilities for engines to embed.
type Base struct{}

func (Base) SetLogger(LogFunc) {}

func (Base) SetProgress(ProgressFunc) {}

func (Base) LastRun() RunStats { return RunStats{} }

// Factory constructs an engine handle
type Factory func(opts Options) (Engine, error)

// Library is the importable engine package. Import returns the factory entry point.
type Library interface {
	Import(ctx context.Context) (Factory, error)
}

// LibraryFunc adapts a function to Library
type LibraryFunc func(ctx context.Context) (Factory, error)

func (f LibraryFunc) Import(ctx context.Context) (Factory, error) {
	return f(ctx)
}

// Listener receives bootstrap status and the engine callback channels.
type Listener interface {
	Status(message string)
	Log(kind LogKind, message string)
	Progress(ratio float64)
}
