// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package parse

import (
	"regexp"
	"strconv"
	"sync"
)

// Stats holds the latest encoder counters seen on ffmpeg progress lines
type Stats struct {
	Frame     uint64  `json:"frame"`
	FPS       float64 `json:"fps"`
	Size      uint64  `json:"size_bytes"`
	Time      float64 `json:"time_seconds"`
	Speed     float64 `json:"speed"`
	Quantizer float64 `json:"q"`
}

var (
	reFrame     = regexp.MustCompile(`frame=\s*([0-9]+)`)
	reFPS       = regexp.MustCompile(`fps=\s*([0-9\.]+)`)
	reQuantizer = regexp.MustCompile(`q=\s*(-?[0-9\.]+)`)
	reSize      = regexp.MustCompile(`L?size=\s*([0-9]+)(kB|KiB)`)
	reSpeed     = regexp.MustCompile(`speed=\s*([0-9\.]+)x`)
)

// StatsTracker accumulates Stats across lines. Safe for concurrent use.
type StatsTracker struct {
	stats Stats
	lock  sync.RWMutex
}

// Observe updates the counters from line and reports whether it was a progress line.
func (t *StatsTracker) Observe(line string) bool {
	m := reFrame.FindStringSubmatch(line)
	if m == nil {
		return false
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
		t.stats.Frame = x
	}
	if m := reFPS.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseFloat(m[1], 64); err == nil {
			t.stats.FPS = x
		}
	}
	if m := reQuantizer.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseFloat(m[1], 64); err == nil {
			t.stats.Quantizer = x
		}
	}
	if m := reSize.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			t.stats.Size = x * 1024
		}
	}
	if pos := ExtractCurrentPosition(line); pos > 0 {
		t.stats.Time = pos
	}
	if m := reSpeed.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseFloat(m[1], 64); err == nil {
			t.stats.Speed = x
		}
	}
	return true
}

// Stats returns a snapshot
func (t *StatsTracker) Stats() Stats {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.stats
}

// Reset clears all counters
func (t *StatsTracker) Reset() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.stats = Stats{}
}
