// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package job

import (
	"math"
	"testing"
)

func TestEstimatorTimeBased(t *testing.T) {
	e := NewEstimator(nil)

	if _, ok := e.ObserveLine("frame=1 time=00:00:01.00"); ok {
		t.Error("Expected no progress before a duration is known")
	}
	e.ObserveLine("  Duration: 00:00:10.00, start: 0.000000, bitrate: 1000 kb/s")
	e.ObserveLine("  Duration: 00:01:00.00, start: 0.000000, bitrate: 1000 kb/s")
	if e.TotalDuration() != 10 {
		t.Fatalf("Expected first duration to win, got %v", e.TotalDuration())
	}

	steps := []struct {
		line     string
		progress int
		ok       bool
	}{
		{"frame=10 time=00:00:02.50 bitrate=1k", 25, true},
		{"frame=11 time=00:00:02.50 bitrate=1k", 0, false},
		{"frame=8 time=00:00:01.00 bitrate=1k", 0, false},
		{"frame=20 time=00:00:05.00 bitrate=1k", 50, true},
		{"frame=40 time=00:00:09.90 bitrate=1k", 95, true},
		{"frame=41 time=00:00:10.00 bitrate=1k", 0, false},
		{"frame=0 time=-577014:32:22.77 bitrate=N/A", 0, false},
	}
	for _, s := range steps {
		p, ok := e.ObserveLine(s.line)
		if ok != s.ok || p != s.progress {
			t.Errorf("ObserveLine(%q) = (%d, %v), expected (%d, %v)", s.line, p, ok, s.progress, s.ok)
		}
	}
	if e.Last() != MaxProgress {
		t.Errorf("Expected last %d, got %d", MaxProgress, e.Last())
	}
}

func TestEstimatorRatioFallback(t *testing.T) {
	e := NewEstimator(nil)

	if _, ok := e.ObserveRatio(0); ok {
		t.Error("Expected zero ratio to be ignored")
	}
	if p, ok := e.ObserveRatio(0.2); !ok || p != 20 {
		t.Errorf("Expected 20, got (%d, %v)", p, ok)
	}
	if p, ok := e.ObserveRatio(1); !ok || p != MaxProgress {
		t.Errorf("Expected clamp to %d, got (%d, %v)", MaxProgress, p, ok)
	}
	if _, ok := e.ObserveRatio(math.NaN()); ok {
		t.Error("Expected NaN to be ignored")
	}
}

func TestEstimatorRatioDisabledAfterTime(t *testing.T) {
	e := NewEstimator(nil)
	e.ObserveLine("Duration: 00:00:10.00")
	e.ObserveRatio(0.1)
	if p, ok := e.ObserveLine("time=00:00:03.00"); !ok || p != 30 {
		t.Fatalf("Expected 30, got (%d, %v)", p, ok)
	}
	if _, ok := e.ObserveRatio(0.9); ok {
		t.Error("Expected ratio to be ignored once time-based progress reported")
	}

	e.Reset()
	if p, ok := e.ObserveRatio(0.5); !ok || p != 50 {
		t.Errorf("Expected ratio fallback after Reset, got (%d, %v)", p, ok)
	}
}
