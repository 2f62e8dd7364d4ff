// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package job

import (
	"container/ring"
	"strings"
	"sync"
	"time"

	"github.com/ZSC714725/transcodeworker/internal/engine"
	"github.com/ZSC714725/transcodeworker/internal/ffmpeg/parse"
)

// Tracker keeps the most recent engine log lines and decides which ones are
// echoed to the caller.
type Tracker struct {
	capacity int
	interval time.Duration
	now      func() time.Time

	mu    sync.Mutex
	log   *ring.Ring
	count int
	last  time.Time
}

// NewTracker creates a Tracker holding at most capacity lines and echoing
// marker lines no more often than interval.
func NewTracker(capacity int, interval time.Duration, now func() time.Time) *Tracker {
	if capacity <= 0 {
		capacity = 200
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		capacity: capacity,
		interval: interval,
		now:      now,
		log:      ring.New(capacity),
	}
}

// Reset drops all lines and the throttle window
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = ring.New(t.capacity)
	t.count = 0
	t.last = time.Time{}
}

// Normalize collapses whitespace runs and trims
func Normalize(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// Record normalizes line and stores it. Blank lines are not stored.
func (t *Tracker) Record(line string) string {
	line = Normalize(line)
	if line == "" {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log.Value = line
	t.log = t.log.Next()
	if t.count < t.capacity {
		t.count++
	}
	return line
}

// ThrottledEmit reports whether a frame/time marker line may be echoed now.
// It opens a new throttle window when it returns true.
func (t *Tracker) ThrottledEmit(line string) bool {
	if !parse.IsProgressLine(line) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// Observe records an engine message and reports the normalized line and
// whether it should be echoed. Error-kind lines always echo.
func (t *Tracker) Observe(kind engine.LogKind, message string) (string, bool) {
	line := t.Record(message)
	if line == "" {
		return "", false
	}
	if kind == engine.LogError {
		return line, true
	}
	return line, t.ThrottledEmit(line)
}

// Len returns the number of stored lines
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Lines returns the stored lines, oldest first
func (t *Tracker) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, t.count)
	t.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(string))
		}
	})
	return out
}

// Tail joins the n most recent lines with newlines
func (t *Tracker) Tail(n int) string {
	if n <= 0 {
		return ""
	}
	lines := t.Lines()
	if n < len(lines) {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
