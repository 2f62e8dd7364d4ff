// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package job

import (
	"errors"
	"strings"

	"github.com/ZSC714725/transcodeworker/internal/engine"
)

var (
	ErrInvalidInput     = errors.New("missing input buffer")
	ErrInvalidOptions   = errors.New("invalid options")
	ErrCommandFailed    = errors.New("command failed")
	ErrOutputReadFailed = errors.New("output read failed")
	ErrQueueFull        = errors.New("worker busy: queue full")
)

// IsNormalExit reports whether an engine error is the engine's way of
// signalling a normal stop.
func IsNormalExit(err error) bool {
	return err != nil && strings.Contains(err.Error(), "exit(0)")
}

// carriesLogTail reports whether a failure is reported with recent log lines.
// Input and bootstrap failures happen before the engine produces any.
func carriesLogTail(err error) bool {
	return !errors.Is(err, ErrInvalidInput) &&
		!errors.Is(err, ErrInvalidOptions) &&
		!errors.Is(err, engine.ErrUnavailable) &&
		!errors.Is(err, engine.ErrLoadFailed)
}
