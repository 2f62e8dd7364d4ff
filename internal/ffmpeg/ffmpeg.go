// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器
//
// Package ffmpeg implements the engine contract on a local ffmpeg binary. The
// virtual filesystem is a private scratch directory per handle.

package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZSC714725/transcodeworker/internal/engine"
	"github.com/ZSC714725/transcodeworker/internal/ffmpeg/parse"
	"github.com/ZSC714725/transcodeworker/internal/ffmpeg/skills"
	"github.com/ZSC714725/transcodeworker/internal/logger"
	"github.com/ZSC714725/transcodeworker/internal/process"

	"github.com/lithammer/shortuuid/v4"
)

var (
	ErrNotLoaded   = errors.New("ffmpeg engine not loaded")
	ErrInvalidName = errors.New("invalid file name")
)

// Encoders and muxers the command profiles depend on
var (
	RequiredEncoders = []string{"libx264", "aac", "gif"}
	RequiredMuxers   = []string{"mp4", "gif"}
)

// Config for FFmpeg
type Config struct {
	Binary     string
	AllowNames []string
	BlockNames []string
	Logger     logger.Logger

	// NewSampler returns a resource sampler per run; nil disables sampling.
	NewSampler func() process.Sampler
}

// Library locates the ffmpeg binary and probes its skills on Import.
type Library struct {
	config    Config
	validator Validator

	mu     sync.RWMutex
	binary string
	skills *skills.Skills
}

// NewLibrary creates a Library. The binary is not touched until Import.
func NewLibrary(config Config) (*Library, error) {
	v, err := NewValidator(config.AllowNames, config.BlockNames)
	if err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	return &Library{config: config, validator: v}, nil
}

// Import implements engine.Library
func (l *Library) Import(ctx context.Context) (engine.Factory, error) {
	if _, err := l.probe(ctx); err != nil {
		return nil, err
	}

	l.mu.RLock()
	binary := l.binary
	l.mu.RUnlock()

	return func(opts engine.Options) (engine.Engine, error) {
		return &FFmpeg{
			binary:     binary,
			opts:       opts,
			validator:  l.validator,
			logger:     l.config.Logger,
			newSampler: l.config.NewSampler,
		}, nil
	}, nil
}

// Skills returns the probed skills, probing the binary if needed
func (l *Library) Skills(ctx context.Context) (skills.Skills, error) {
	l.mu.RLock()
	s := l.skills
	l.mu.RUnlock()
	if s != nil {
		return *s, nil
	}
	return l.probe(ctx)
}

// ReloadSkills probes the binary again
func (l *Library) ReloadSkills(ctx context.Context) error {
	_, err := l.probe(ctx)
	return err
}

func (l *Library) probe(ctx context.Context) (skills.Skills, error) {
	binary, err := exec.LookPath(l.config.Binary)
	if err != nil {
		return skills.Skills{}, fmt.Errorf("invalid ffmpeg binary: %w", err)
	}

	s, err := skills.New(ctx, binary)
	if err != nil {
		return skills.Skills{}, fmt.Errorf("invalid ffmpeg: %w", err)
	}
	if missing := s.Missing(RequiredEncoders, RequiredMuxers); len(missing) > 0 {
		return skills.Skills{}, fmt.Errorf("ffmpeg %s lacks %s", s.FFmpeg.Version, strings.Join(missing, ", "))
	}

	l.mu.Lock()
	l.binary = binary
	l.skills = &s
	l.mu.Unlock()

	l.config.Logger.Info("using ffmpeg %s at %s", s.FFmpeg.Version, binary)
	return s, nil
}

// FFmpeg is one engine handle
type FFmpeg struct {
	binary     string
	opts       engine.Options
	validator  Validator
	logger     logger.Logger
	newSampler func() process.Sampler

	mu     sync.Mutex
	dir    string
	logFn  engine.LogFunc
	progFn engine.ProgressFunc
	last   engine.RunStats
}

// Load creates the scratch directory under the core path
func (f *FFmpeg) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dir != "" {
		return nil
	}

	root := f.opts.CorePath
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	dir := filepath.Join(root, "engine-"+shortuuid.New())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return err
	}
	f.dir = dir
	f.logger.Debug("engine scratch dir %s", dir)
	return nil
}

// Close removes the scratch directory
func (f *FFmpeg) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dir == "" {
		return nil
	}
	err := os.RemoveAll(f.dir)
	f.dir = ""
	return err
}

func (f *FFmpeg) path(name string) (string, error) {
	f.mu.Lock()
	dir := f.dir
	f.mu.Unlock()

	if dir == "" {
		return "", ErrNotLoaded
	}
	if !f.validator.IsValid(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(dir, name), nil
}

func (f *FFmpeg) WriteFile(name string, data []byte) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

func (f *FFmpeg) ReadFile(name string) ([]byte, error) {
	p, err := f.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (f *FFmpeg) Unlink(name string) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

func (f *FFmpeg) SetLogger(fn engine.LogFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logFn = fn
}

func (f *FFmpeg) SetProgress(fn engine.ProgressFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progFn = fn
}

func (f *FFmpeg) LastRun() engine.RunStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Run executes ffmpeg with args inside the scratch directory. Every stderr
// line goes to the log callback; the ratio callback follows the first
// announced duration and the latest time marker.
func (f *FFmpeg) Run(ctx context.Context, args ...string) error {
	f.mu.Lock()
	dir := f.dir
	f.mu.Unlock()
	if dir == "" {
		return ErrNotLoaded
	}

	var sampler process.Sampler
	if f.newSampler != nil {
		sampler = f.newSampler()
	}

	duration := 0.0
	res, err := process.Run(ctx, process.Config{
		Binary: f.binary,
		Args:   append([]string{"-hide_banner", "-nostdin", "-y"}, args...),
		Dir:    dir,
		OnLine: func(l process.Line) {
			f.emitLog(engine.LogStderr, l.Data)
			if duration == 0 {
				duration = parse.ExtractTotalDuration(l.Data)
			}
			if pos := parse.ExtractCurrentPosition(l.Data); duration > 0 && pos > 0 {
				f.emitProgress(min(pos/duration, 1))
			}
		},
		Sampler: sampler,
		Logger:  f.logger,
	})

	f.mu.Lock()
	f.last = engine.RunStats{
		Duration:   res.Duration,
		PeakCPU:    res.Usage.PeakCPU,
		PeakMemory: res.Usage.PeakMemory,
	}
	f.mu.Unlock()

	if err != nil {
		f.emitLog(engine.LogError, err.Error())
		return fmt.Errorf("ffmpeg: %w", err)
	}
	f.emitProgress(1)
	return nil
}

func (f *FFmpeg) emitLog(kind engine.LogKind, msg string) {
	f.mu.Lock()
	fn := f.logFn
	f.mu.Unlock()
	if fn != nil && f.opts.Log {
		fn(kind, msg)
	}
}

func (f *FFmpeg) emitProgress(ratio float64) {
	f.mu.Lock()
	fn := f.progFn
	f.mu.Unlock()
	if fn != nil {
		fn(ratio)
	}
}
