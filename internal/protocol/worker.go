// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package protocol

import (
	"context"
	"fmt"

	"github.com/lithammer/shortuuid/v4"

	"github.com/ZSC714725/transcodeworker/internal/engine"
	"github.com/ZSC714725/transcodeworker/internal/job"
	"github.com/ZSC714725/transcodeworker/internal/logger"
	"github.com/ZSC714725/transcodeworker/internal/metrics"
)

// Sink delivers encoded outbound messages. It must be safe for concurrent use.
type Sink interface {
	Send(data []byte) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(data []byte) error

func (f SinkFunc) Send(data []byte) error { return f(data) }

// Config for a Worker
type Config struct {
	Runner    job.Config
	QueueSize int
	Logger    logger.Logger
}

// Worker is one isolated coordinator: it accepts convert messages and runs
// them one after another on a single goroutine.
type Worker struct {
	sink   Sink
	runner *job.Runner
	queue  chan job.Job
	logger logger.Logger
}

// NewWorker creates a Worker driving engines and writing to sink
func NewWorker(engines *engine.Manager, sink Sink, config Config) *Worker {
	if config.QueueSize <= 0 {
		config.QueueSize = 4
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Runner.Logger == nil {
		config.Runner.Logger = config.Logger
	}
	if config.Runner.Session == "" {
		config.Runner.Session = shortuuid.New()
	}

	w := &Worker{
		sink:   sink,
		queue:  make(chan job.Job, config.QueueSize),
		logger: config.Logger,
	}
	w.runner = job.NewRunner(engines, w, config.Runner)
	return w
}

// Handle processes one inbound message. Messages other than convert are
// ignored. A convert message that does not fit in the queue is answered
// with an error event.
func (w *Worker) Handle(data []byte) error {
	in, err := Decode(data)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if in.Type != TypeConvert {
		w.logger.Debug("ignoring message type %q", in.Type)
		return nil
	}

	j := in.Payload.Job()
	if j.ID == "" {
		j.ID = shortuuid.New()
	}

	select {
	case w.queue <- j:
		w.logger.Debug("job %s queued: %s, %d bytes", j.ID, j.Target, len(j.Input))
	default:
		metrics.JobsRejected.Inc()
		metrics.EventsTotal.WithLabelValues(string(job.EventError)).Inc()
		w.logger.Error("job %s rejected: %v", j.ID, job.ErrQueueFull)
		w.Emit(job.Event{Type: job.EventError, JobID: j.ID, Message: job.ErrQueueFull.Error()})
	}
	return nil
}

// Run executes queued jobs until ctx is done. Cancelling ctx stops a
// running engine command.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-w.queue:
			w.runner.Run(ctx, j)
		}
	}
}

// Emit encodes e and hands it to the sink
func (w *Worker) Emit(e job.Event) {
	data, err := Encode(FromEvent(e))
	if err != nil {
		w.logger.Error("job %s: encode %s event: %v", e.JobID, e.Type, err)
		return
	}
	if err := w.sink.Send(data); err != nil {
		w.logger.Error("job %s: send %s event: %v", e.JobID, e.Type, err)
	}
}
