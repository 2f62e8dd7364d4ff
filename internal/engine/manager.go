// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ZSC714725/transcodeworker/internal/logger"
	"github.com/ZSC714725/transcodeworker/internal/metrics"
)

const (
	StatusLoadingLibrary = "Loading FFmpeg library..."
	StatusLoadingEngine  = "Loading FFmpeg engine (first run can take ~10s)..."
)

// Manager lazily imports the engine library, constructs a single handle and
// initializes it once. The handle is reused for the manager's lifetime.
type Manager struct {
	lib    Library
	opts   Options
	logger logger.Logger

	mu      sync.Mutex
	factory Factory
	handle  Engine
	pending bool

	lmu      sync.RWMutex
	listener Listener
}

// NewManager creates a Manager. Nothing is imported until EnsureReady.
func NewManager(lib Library, opts Options, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{lib: lib, opts: opts, logger: log}
}

// EnsureReady returns the initialized engine handle. l becomes the target of
// the handle's callbacks from now on, whoever constructed the handle.
//
// Failures are not cached; a later call retries the step that failed.
func (m *Manager) EnsureReady(ctx context.Context, l Listener) (Engine, error) {
	m.setListener(l)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.factory == nil {
		m.status(StatusLoadingLibrary)
		factory, err := m.lib.Import(ctx)
		if err != nil {
			metrics.EngineLoads.WithLabelValues("unavailable").Inc()
			return nil, fmt.Errorf("%w: FFmpeg wrapper failed to load (%v)", ErrUnavailable, err)
		}
		if factory == nil {
			metrics.EngineLoads.WithLabelValues("unavailable").Inc()
			return nil, fmt.Errorf("%w: FFmpeg library failed to load", ErrUnavailable)
		}
		m.factory = factory
	}

	if m.handle == nil {
		h, err := m.factory(m.opts)
		if err != nil {
			metrics.EngineLoads.WithLabelValues("unavailable").Inc()
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		h.SetLogger(m.dispatchLog)
		h.SetProgress(m.dispatchProgress)
		m.handle = h
		m.pending = true
	}

	if m.pending {
		m.status(StatusLoadingEngine)
		if err := m.handle.Load(ctx); err != nil {
			metrics.EngineLoads.WithLabelValues("failed").Inc()
			m.logger.Error("engine load failed: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
		}
		m.pending = false
		metrics.EngineLoads.WithLabelValues("ok").Inc()
		m.logger.Info("engine loaded")
	}

	return m.handle, nil
}

// Ready reports whether a loaded handle is cached
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil && !m.pending
}

// Close releases the handle's resources when it holds any
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.handle.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (m *Manager) setListener(l Listener) {
	m.lmu.Lock()
	m.listener = l
	m.lmu.Unlock()
}

func (m *Manager) current() Listener {
	m.lmu.RLock()
	defer m.lmu.RUnlock()
	return m.listener
}

func (m *Manager) status(msg string) {
	if l := m.current(); l != nil {
		l.Status(msg)
	}
}

func (m *Manager) dispatchLog(kind LogKind, message string) {
	if l := m.current(); l != nil {
		l.Log(kind, message)
	}
}

func (m *Manager) dispatchProgress(ratio float64) {
	if l := m.current(); l != nil {
		l.Progress(ratio)
	}
}
