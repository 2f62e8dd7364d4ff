// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器
//
// Package process runs one FFmpeg invocation to completion and streams its stderr.

package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"
)

var (
	// ErrNoBinary is returned when Config.Binary is empty
	ErrNoBinary = errors.New("no valid binary given")
	// ErrExit is wrapped by errors for a non-zero exit status
	ErrExit = errors.New("process exited with error")
	// ErrKilled is wrapped by errors for a process terminated by a signal
	ErrKilled = errors.New("process killed")
)

// Config for a process
type Config struct {
	Binary string
	Args   []string
	Dir    string

	// OnLine receives every stderr line, in order, on the reader goroutine.
	OnLine func(Line)

	Sampler        Sampler
	SampleInterval time.Duration
	Logger         Logger
}

// Result describes a finished process
type Result struct {
	ExitCode int
	Duration time.Duration
	Usage    Usage
	LastLine string
}

// Usage is the peak resource usage observed while the process ran
type Usage struct {
	PeakCPU    float64 `json:"peak_cpu_percent"`
	PeakMemory uint64  `json:"peak_memory_bytes"`
}

// Logger interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// Run starts the binary and blocks until it exits and all stderr has been
// delivered to OnLine. Cancelling ctx kills the process.
func Run(ctx context.Context, config Config) (Result, error) {
	if len(config.Binary) == 0 {
		return Result{}, ErrNoBinary
	}

	log := config.Logger
	if log == nil {
		log = &nopLogger{}
	}
	sampler := config.Sampler
	if sampler == nil {
		sampler = NewNullSampler()
	}
	interval := config.SampleInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	cmd := exec.CommandContext(ctx, config.Binary, config.Args...)
	cmd.Dir = config.Dir
	cmd.Env = []string{}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	pid := cmd.Process.Pid
	log.Debug("process %d started: %s %v", pid, config.Binary, config.Args)

	var (
		usage     Usage
		usageLock sync.Mutex
		stop      = make(chan struct{})
		sampled   = make(chan struct{})
	)
	if err := sampler.Start(pid); err != nil {
		log.Debug("process %d: sampler unavailable: %v", pid, err)
		close(sampled)
	} else {
		go func() {
			defer close(sampled)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					cpu, mem := sampler.Current()
					usageLock.Lock()
					if cpu > usage.PeakCPU {
						usage.PeakCPU = cpu
					}
					if mem > usage.PeakMemory {
						usage.PeakMemory = mem
					}
					usageLock.Unlock()
				}
			}
		}()
	}

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLine)

	lastLine := ""
	for scanner.Scan() {
		line := scanner.Text()
		lastLine = line
		if config.OnLine != nil {
			config.OnLine(Line{Timestamp: time.Now(), Data: line})
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error("process %d: reading stderr: %v", pid, err)
		// keep the pipe flowing so the process can exit
		io.Copy(io.Discard, stderr)
	}

	waitErr := cmd.Wait()

	close(stop)
	<-sampled
	sampler.Stop()

	usageLock.Lock()
	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
		Usage:    usage,
		LastLine: lastLine,
	}
	usageLock.Unlock()

	if waitErr == nil {
		return res, nil
	}

	var exiterr *exec.ExitError
	if errors.As(waitErr, &exiterr) {
		if status, ok := exiterr.Sys().(syscall.WaitStatus); ok && status.Exited() {
			return res, fmt.Errorf("%w: exit status %d", ErrExit, status.ExitStatus())
		}
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%w: %v", ErrKilled, ctx.Err())
	}
	return res, fmt.Errorf("%w: %v", ErrKilled, waitErr)
}

// scanLine splits on both \n and \r; ffmpeg rewrites its stats line with \r.
func scanLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
		start += w
	}

	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + w, data[start:i], nil
		}
		i += w
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

type nopLogger struct{}

func (l *nopLogger) Info(format string, args ...interface{})  {}
func (l *nopLogger) Error(format string, args ...interface{}) {}
func (l *nopLogger) Debug(format string, args ...interface{}) {}
