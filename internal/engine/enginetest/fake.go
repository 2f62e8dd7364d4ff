// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

// Package enginetest provides an in-memory engine for tests.
package enginetest

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/ZSC714725/transcodeworker/internal/engine"
)

// RunFunc scripts one Run call. args are the full command.
type RunFunc func(f *Fake, args []string) error

// Fake is a scripted engine with a map-backed virtual filesystem.
type Fake struct {
	// OnRun scripts Run; nil copies the input file to the last argument.
	OnRun   RunFunc
	LoadErr error

	mu       sync.Mutex
	files    map[string][]byte
	loads    int
	runs     [][]string
	unlinked []string
	logFn    engine.LogFunc
	progFn   engine.ProgressFunc
}

// New returns an empty Fake
func New() *Fake {
	return &Fake{files: make(map[string][]byte)}
}

// Library returns a Library whose factory always yields f.
func (f *Fake) Library() engine.Library {
	return engine.LibraryFunc(func(ctx context.Context) (engine.Factory, error) {
		return func(engine.Options) (engine.Engine, error) { return f, nil }, nil
	})
}

func (f *Fake) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.LoadErr
}

func (f *Fake) Run(ctx context.Context, args ...string) error {
	f.mu.Lock()
	f.runs = append(f.runs, append([]string(nil), args...))
	fn := f.OnRun
	f.mu.Unlock()

	if fn == nil {
		fn = CopyInput
	}
	return fn(f, args)
}

func (f *Fake) WriteFile(name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) ReadFile(name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, &os.PathError{Op: "read", Path: name, Err: os.ErrNotExist}
	}
	return data, nil
}

func (f *Fake) Unlink(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlinked = append(f.unlinked, name)
	if _, ok := f.files[name]; !ok {
		return &os.PathError{Op: "unlink", Path: name, Err: os.ErrNotExist}
	}
	delete(f.files, name)
	return nil
}

func (f *Fake) SetLogger(fn engine.LogFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logFn = fn
}

func (f *Fake) SetProgress(fn engine.ProgressFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progFn = fn
}

func (f *Fake) LastRun() engine.RunStats {
	return engine.RunStats{PeakMemory: 1024}
}

// Log sends a message through the registered log callback.
func (f *Fake) Log(kind engine.LogKind, msg string) {
	f.mu.Lock()
	fn := f.logFn
	f.mu.Unlock()
	if fn != nil {
		fn(kind, msg)
	}
}

// Ratio sends a value through the registered progress callback.
func (f *Fake) Ratio(r float64) {
	f.mu.Lock()
	fn := f.progFn
	f.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}

// Loads returns how many times Load was called
func (f *Fake) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// Runs returns the recorded commands
func (f *Fake) Runs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.runs...)
}

// Unlinked returns every name passed to Unlink
func (f *Fake) Unlinked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unlinked...)
}

// Files returns the names currently stored
func (f *Fake) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name := range f.files {
		names = append(names, name)
	}
	return names
}

// CopyInput writes the file named after "-i" to the last argument.
func CopyInput(f *Fake, args []string) error {
	in := ""
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-i" {
			in = args[i+1]
		}
	}
	data, err := f.ReadFile(in)
	if err != nil {
		return errors.New("input not staged")
	}
	return f.WriteFile(args[len(args)-1], data)
}
