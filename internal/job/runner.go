// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZSC714725/transcodeworker/internal/engine"
	"github.com/ZSC714725/transcodeworker/internal/ffmpeg/parse"
	"github.com/ZSC714725/transcodeworker/internal/logger"
	"github.com/ZSC714725/transcodeworker/internal/metrics"
)

// Config for a Runner
type Config struct {
	// Session tags the history entries of this runner
	Session     string
	Defaults    Defaults
	LogLines    int
	TailLines   int
	LogThrottle time.Duration
	Parser      parse.TimeParser
	Logger      logger.Logger
	Recorder    Recorder
	Clock       func() time.Time
}

func (c *Config) fill() {
	if c.Defaults == (Defaults{}) {
		c.Defaults = DefaultDefaults()
	}
	if c.LogLines <= 0 {
		c.LogLines = 200
	}
	if c.TailLines <= 0 {
		c.TailLines = 12
	}
	if c.LogThrottle <= 0 {
		c.LogThrottle = 160 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Runner executes one job at a time against a shared engine handle and
// reports its lifecycle through an Emitter. Run must not be called
// concurrently.
type Runner struct {
	engines *engine.Manager
	emitter Emitter
	config  Config

	logs     *Tracker
	progress *Estimator
	stats    parse.StatsTracker

	mu     sync.Mutex
	active string
}

// NewRunner creates a Runner driving engines and reporting to emitter
func NewRunner(engines *engine.Manager, emitter Emitter, config Config) *Runner {
	config.fill()
	return &Runner{
		engines:  engines,
		emitter:  emitter,
		config:   config,
		logs:     NewTracker(config.LogLines, config.LogThrottle, config.Clock),
		progress: NewEstimator(config.Parser),
	}
}

// Active returns the identifier events are currently attributed to, empty
// between jobs.
func (r *Runner) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Run processes j to completion. Exactly one done or error event is emitted
// for it, and nothing is emitted for j after that.
func (r *Runner) Run(ctx context.Context, j Job) {
	started := r.config.Clock()

	r.logs.Reset()
	r.progress.Reset()
	r.stats.Reset()
	r.mu.Lock()
	r.active = j.ID
	r.mu.Unlock()

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	profile, out, run, err := r.execute(ctx, j)

	s := Summary{
		JobID:      j.ID,
		Session:    r.config.Session,
		Target:     j.Target,
		InputBytes: len(j.Input),
		StartedAt:  started,
		Run:        run,
	}

	if err != nil {
		e := Event{Type: EventError, Message: err.Error()}
		if carriesLogTail(err) && r.logs.Len() > 0 {
			e.Log = r.logs.Tail(r.config.TailLines)
		}
		r.terminate(j.ID, e)
		r.config.Logger.Error("job %s failed: %v", j.ID, err)

		s.Outcome = EventError
		s.Message = e.Message
		s.LogTail = e.Log
	} else {
		r.terminate(j.ID, Event{Type: EventDone, Buffer: out, MimeType: profile.MimeType})
		r.config.Logger.Info("job %s done: %s, %d bytes, peak cpu %.1f%%, peak rss %d", j.ID, profile.MimeType, len(out), run.PeakCPU, run.PeakMemory)

		s.Outcome = EventDone
		s.MimeType = profile.MimeType
		s.OutputBytes = len(out)
		metrics.JobOutputBytes.WithLabelValues(string(j.Target)).Observe(float64(len(out)))
	}

	s.FinishedAt = r.config.Clock()
	s.Stats = r.stats.Stats()
	metrics.JobsTotal.WithLabelValues(string(j.Target), string(s.Outcome)).Inc()
	metrics.JobDuration.WithLabelValues(string(j.Target)).Observe(s.FinishedAt.Sub(started).Seconds())

	if r.config.Recorder != nil {
		if err := r.config.Recorder.Record(s); err != nil {
			r.config.Logger.Error("job %s: recording history failed: %v", j.ID, err)
		}
	}
}

func (r *Runner) execute(ctx context.Context, j Job) (p Profile, out []byte, run engine.RunStats, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: panic: %v", ErrCommandFailed, v)
		}
	}()

	if len(j.Input) == 0 {
		return p, nil, run, ErrInvalidInput
	}
	p, err = BuildCommand(j, r.config.Defaults)
	if err != nil {
		return p, nil, run, err
	}

	r.emit(j.ID, Event{Type: EventStatus, Message: p.Status})

	eng, err := r.engines.EnsureReady(ctx, listener{r})
	if err != nil {
		return p, nil, run, err
	}

	r.discard(eng, InputName, p.Output)
	if err := eng.WriteFile(InputName, j.Input); err != nil {
		return p, nil, run, fmt.Errorf("%w: staging input: %v", ErrCommandFailed, err)
	}

	r.config.Logger.Debug("job %s: running %v", j.ID, p.Args)
	err = eng.Run(ctx, p.Args...)
	run = eng.LastRun()
	metrics.EnginePeakMemory.Set(float64(run.PeakMemory))
	if err != nil {
		if !IsNormalExit(err) {
			r.discard(eng, InputName, p.Output)
			return p, nil, run, fmt.Errorf("%w: %v", ErrCommandFailed, err)
		}
		r.config.Logger.Debug("job %s: engine stopped normally: %v", j.ID, err)
	}

	out, err = eng.ReadFile(p.Output)
	r.discard(eng, InputName, p.Output)
	if err != nil {
		return p, nil, run, fmt.Errorf("%w: %v", ErrOutputReadFailed, err)
	}
	return p, out, run, nil
}

// discard deletes names from the engine filesystem, ignoring failures
func (r *Runner) discard(eng engine.Engine, names ...string) {
	for _, name := range names {
		_ = eng.Unlink(name)
	}
}

// emit sends e when id is still the active job
func (r *Runner) emit(id string, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" || id != r.active {
		return
	}
	e.JobID = id
	r.send(e)
}

func (r *Runner) emitActive(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == "" {
		return
	}
	e.JobID = r.active
	r.send(e)
}

func (r *Runner) terminate(id string, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.JobID = id
	r.send(e)
	r.active = ""
}

func (r *Runner) send(e Event) {
	metrics.EventsTotal.WithLabelValues(string(e.Type)).Inc()
	if r.emitter != nil {
		r.emitter.Emit(e)
	}
}

// listener routes engine callbacks to whichever job is active
type listener struct {
	r *Runner
}

func (l listener) Status(message string) {
	l.r.emitActive(Event{Type: EventStatus, Message: message})
}

func (l listener) Log(kind engine.LogKind, message string) {
	r := l.r
	line, echo := r.logs.Observe(kind, message)
	if line == "" {
		return
	}
	r.stats.Observe(line)

	if echo {
		r.emitActive(Event{Type: EventLog, Line: line})
	} else if parse.IsProgressLine(line) {
		metrics.LogLinesSuppressed.Inc()
	}
	if p, ok := r.progress.ObserveLine(line); ok {
		r.emitActive(Event{Type: EventProgress, Progress: p})
	}
}

func (l listener) Progress(ratio float64) {
	if p, ok := l.r.progress.ObserveRatio(ratio); ok {
		l.r.emitActive(Event{Type: EventProgress, Progress: p})
	}
}
