// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package job

import (
	"math"
	"sync"

	"github.com/ZSC714725/transcodeworker/internal/ffmpeg/parse"
)

// MaxProgress is the ceiling for in-progress work. Completion is signalled
// by the done event only.
const MaxProgress = 95

// Estimator turns engine log lines into a monotonic percentage, falling back
// to the engine's own ratio until the log lines produce a value.
type Estimator struct {
	parser parse.TimeParser

	mu       sync.Mutex
	total    float64
	last     int
	timeSeen bool
}

// NewEstimator creates an Estimator reading times through p
func NewEstimator(p parse.TimeParser) *Estimator {
	if p == nil {
		p = parse.FFmpeg
	}
	return &Estimator{parser: p}
}

// Reset forgets the duration and the last reported value
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.total = 0
	e.last = 0
	e.timeSeen = false
}

// ObserveLine feeds one log line. It returns the percentage to report and
// true when that value should be emitted.
func (e *Estimator) ObserveLine(line string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.total == 0 {
		if d := e.parser.TotalDuration(line); d > 0 {
			e.total = d
		}
	}
	if e.total == 0 {
		return 0, false
	}

	pos := e.parser.CurrentPosition(line)
	if pos <= 0 {
		return 0, false
	}
	return e.advance(clamp(math.Round(pos/e.total*100)), true)
}

// ObserveRatio feeds the engine's completion ratio. It is ignored once a
// time-based value has been reported for the job.
func (e *Estimator) ObserveRatio(ratio float64) (int, bool) {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timeSeen {
		return 0, false
	}
	p := clamp(math.Round(ratio * 100))
	if p <= 0 {
		return 0, false
	}
	return e.advance(p, false)
}

// Last returns the most recently reported percentage
func (e *Estimator) Last() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// TotalDuration returns the discovered duration in seconds, 0 if unknown
func (e *Estimator) TotalDuration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

func (e *Estimator) advance(p int, fromTime bool) (int, bool) {
	if p <= e.last {
		return 0, false
	}
	e.last = p
	if fromTime {
		e.timeSeen = true
	}
	return p, true
}

func clamp(v float64) int {
	if v < 0 {
		return 0
	}
	if v > MaxProgress {
		return MaxProgress
	}
	return int(v)
}
