// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package job

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ZSC714725/transcodeworker/internal/engine"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTrackerCapacity(t *testing.T) {
	tr := NewTracker(200, 0, nil)
	for i := 0; i < 1000; i++ {
		tr.Record(fmt.Sprintf("line %d", i))
	}
	if tr.Len() != 200 {
		t.Fatalf("Expected 200 lines, got %d", tr.Len())
	}
	lines := tr.Lines()
	if lines[0] != "line 800" || lines[199] != "line 999" {
		t.Errorf("Unexpected window %q .. %q", lines[0], lines[199])
	}

	tail := strings.Split(tr.Tail(12), "\n")
	if len(tail) != 12 {
		t.Fatalf("Expected 12 tail lines, got %d", len(tail))
	}
	if tail[11] != "line 999" {
		t.Errorf("Expected newest line last, got %q", tail[11])
	}
}

func TestTrackerNormalizes(t *testing.T) {
	tr := NewTracker(10, 0, nil)
	if got := tr.Record("  frame=  10   fps=5\t"); got != "frame= 10 fps=5" {
		t.Errorf("Unexpected normalized line %q", got)
	}
	if got := tr.Record("   "); got != "" {
		t.Errorf("Expected blank line to be dropped, got %q", got)
	}
	if tr.Len() != 1 {
		t.Errorf("Expected 1 line, got %d", tr.Len())
	}
	if tr.Tail(12) != "frame= 10 fps=5" {
		t.Errorf("Unexpected tail %q", tr.Tail(12))
	}
}

func TestTrackerThrottle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := NewTracker(200, 160*time.Millisecond, clock.Now)

	if _, echo := tr.Observe(engine.LogStderr, "frame=1 time=00:00:00.10"); !echo {
		t.Error("Expected first marker line to echo")
	}
	clock.Advance(100 * time.Millisecond)
	if _, echo := tr.Observe(engine.LogStderr, "frame=2 time=00:00:00.20"); echo {
		t.Error("Expected second marker line inside the window to be suppressed")
	}
	clock.Advance(100 * time.Millisecond)
	if _, echo := tr.Observe(engine.LogStderr, "frame=3 time=00:00:00.30"); !echo {
		t.Error("Expected marker line after the window to echo")
	}
	if _, echo := tr.Observe(engine.LogStderr, "Stream #0:0: Video: vp9"); echo {
		t.Error("Expected non-marker line not to echo")
	}
	if _, echo := tr.Observe(engine.LogError, "Conversion failed!"); !echo {
		t.Error("Expected error line to echo")
	}
	if tr.Len() != 5 {
		t.Errorf("Expected every line recorded, got %d", tr.Len())
	}
}

func TestTrackerReset(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := NewTracker(5, time.Second, clock.Now)
	tr.Observe(engine.LogStderr, "time=00:00:01.00")
	tr.Reset()

	if tr.Len() != 0 || tr.Tail(12) != "" {
		t.Error("Expected empty tracker after Reset")
	}
	if _, echo := tr.Observe(engine.LogStderr, "time=00:00:02.00"); !echo {
		t.Error("Expected throttle window to be cleared by Reset")
	}
}

func TestTrackerTailBounds(t *testing.T) {
	tr := NewTracker(5, 0, nil)
	tr.Record("a")
	tr.Record("b")

	for _, n := range []int{0, -1} {
		if got := tr.Tail(n); got != "" {
			t.Errorf("Tail(%d) = %q, expected empty", n, got)
		}
	}
	if got := tr.Tail(10); got != "a\nb" {
		t.Errorf("Tail(10) = %q, expected all lines", got)
	}
}
