// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcodeworker_jobs_total",
			Help: "Total number of finished jobs",
		},
		[]string{"target", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transcodeworker_job_duration_seconds",
			Help:    "Wall time from convert message to terminal event",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"target"},
	)

	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcodeworker_jobs_in_flight",
			Help: "Number of jobs currently running",
		},
	)

	JobOutputBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transcodeworker_job_output_bytes",
			Help:    "Size of produced output buffers",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		},
		[]string{"target"},
	)

	JobsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcodeworker_jobs_rejected_total",
			Help: "Convert messages rejected because the worker queue was full",
		},
	)
)

// Engine metrics
var (
	EngineLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcodeworker_engine_loads_total",
			Help: "Engine bootstrap attempts by result",
		},
		[]string{"result"}, // "ok", "unavailable", "failed"
	)

	EnginePeakMemory = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcodeworker_engine_last_peak_memory_bytes",
			Help: "Peak resident memory of the most recent engine run",
		},
	)
)

// Event metrics
var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcodeworker_events_total",
			Help: "Outbound protocol events by type",
		},
		[]string{"type"},
	)

	LogLinesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcodeworker_log_lines_suppressed_total",
			Help: "Engine log lines recorded but not echoed because of throttling",
		},
	)

	Workers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcodeworker_workers",
			Help: "Number of connected worker sessions",
		},
	)
)
