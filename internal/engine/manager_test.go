// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ZSC714725/transcodeworker/internal/engine"
	"github.com/ZSC714725/transcodeworker/internal/engine/enginetest"
)

type recorder struct {
	mu       sync.Mutex
	statuses []string
	logs     []string
	ratios   []float64
}

func (r *recorder) Status(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, msg)
}

func (r *recorder) Log(kind engine.LogKind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, msg)
}

func (r *recorder) Progress(ratio float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratios = append(r.ratios, ratio)
}

func TestEnsureReadyLoadsOnce(t *testing.T) {
	fake := enginetest.New()
	m := engine.NewManager(fake.Library(), engine.Options{Log: true}, nil)
	rec := &recorder{}

	h, err := m.EnsureReady(context.Background(), rec)
	if err != nil {
		t.Fatalf("EnsureReady() returned error: %v", err)
	}
	if h != fake {
		t.Error("Expected the fake handle")
	}
	if len(rec.statuses) != 2 {
		t.Fatalf("Expected 2 status events, got %v", rec.statuses)
	}
	if rec.statuses[0] != engine.StatusLoadingLibrary || rec.statuses[1] != engine.StatusLoadingEngine {
		t.Errorf("Unexpected status events: %v", rec.statuses)
	}
	if !m.Ready() {
		t.Error("Expected manager to be ready")
	}

	again := &recorder{}
	if _, err := m.EnsureReady(context.Background(), again); err != nil {
		t.Fatalf("second EnsureReady() returned error: %v", err)
	}
	if len(again.statuses) != 0 {
		t.Errorf("Expected no status on cached handle, got %v", again.statuses)
	}
	if fake.Loads() != 1 {
		t.Errorf("Expected 1 load, got %d", fake.Loads())
	}
}

func TestCallbacksFollowCurrentListener(t *testing.T) {
	fake := enginetest.New()
	m := engine.NewManager(fake.Library(), engine.Options{}, nil)

	first := &recorder{}
	if _, err := m.EnsureReady(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	second := &recorder{}
	if _, err := m.EnsureReady(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	fake.Log(engine.LogStderr, "frame=1")
	fake.Ratio(0.5)

	if len(first.logs) != 0 || len(first.ratios) != 0 {
		t.Error("Expected no callbacks on the first listener")
	}
	if len(second.logs) != 1 || len(second.ratios) != 1 {
		t.Errorf("Expected callbacks on the current listener, got logs=%v ratios=%v", second.logs, second.ratios)
	}
}

func TestImportFailure(t *testing.T) {
	calls := 0
	lib := engine.LibraryFunc(func(ctx context.Context) (engine.Factory, error) {
		calls++
		return nil, errors.New("binary not found")
	})
	m := engine.NewManager(lib, engine.Options{}, nil)

	_, err := m.EnsureReady(context.Background(), &recorder{})
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}

	_, _ = m.EnsureReady(context.Background(), &recorder{})
	if calls != 2 {
		t.Errorf("Expected import to be retried, got %d calls", calls)
	}
}

func TestMissingFactory(t *testing.T) {
	lib := engine.LibraryFunc(func(ctx context.Context) (engine.Factory, error) {
		return nil, nil
	})
	m := engine.NewManager(lib, engine.Options{}, nil)

	if _, err := m.EnsureReady(context.Background(), &recorder{}); !errors.Is(err, engine.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestLoadFailure(t *testing.T) {
	fake := enginetest.New()
	fake.LoadErr = errors.New("wasm trap")
	m := engine.NewManager(fake.Library(), engine.Options{}, nil)

	_, err := m.EnsureReady(context.Background(), &recorder{})
	if !errors.Is(err, engine.ErrLoadFailed) {
		t.Fatalf("Expected ErrLoadFailed, got %v", err)
	}
	if m.Ready() {
		t.Error("Expected manager not to be ready")
	}

	fake.LoadErr = nil
	if _, err := m.EnsureReady(context.Background(), &recorder{}); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if fake.Loads() != 2 {
		t.Errorf("Expected 2 loads, got %d", fake.Loads())
	}
}

type bareEngine struct {
	engine.Base
}

func (bareEngine) Load(ctx context.Context) error                { return nil }
func (bareEngine) Run(ctx context.Context, args ...string) error { return nil }
func (bareEngine) WriteFile(name string, data []byte) error      { return nil }
func (bareEngine) ReadFile(name string) ([]byte, error)          { return nil, nil }
func (bareEngine) Unlink(name string) error                      { return nil }

func TestEngineWithoutCallbacks(t *testing.T) {
	lib := engine.LibraryFunc(func(ctx context.Context) (engine.Factory, error) {
		return func(engine.Options) (engine.Engine, error) { return bareEngine{}, nil }, nil
	})
	m := engine.NewManager(lib, engine.Options{}, nil)

	h, err := m.EnsureReady(context.Background(), &recorder{})
	if err != nil {
		t.Fatalf("EnsureReady() returned error: %v", err)
	}
	if h.LastRun() != (engine.RunStats{}) {
		t.Error("Expected zero run stats from Base")
	}
}
