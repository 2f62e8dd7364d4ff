// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器
//
// Package history keeps the outcome of finished jobs.

package history

import (
	"sort"
	"sync"

	"github.com/lithammer/shortuuid/v4"

	"github.com/ZSC714725/transcodeworker/internal/job"
)

// Store records job summaries and serves them back, most recent first.
// Entries are keyed by their record ID, which Record assigns when the
// summary carries none.
type Store interface {
	job.Recorder
	Get(id string) (job.Summary, error)
	List(q Query) ([]job.Summary, error)
	Close() error
}

// Query narrows List. A zero Limit returns everything, an empty JobID
// matches every job.
type Query struct {
	Limit int
	JobID string
}

func (q Query) match(sum job.Summary) bool {
	return q.JobID == "" || q.JobID == sum.JobID
}

// prepare validates sum and assigns its record ID
func prepare(sum *job.Summary) error {
	if len(sum.JobID) == 0 {
		return ErrNoID
	}
	if sum.ID == "" {
		sum.ID = shortuuid.New()
	}
	return nil
}

type memory struct {
	capacity int
	jobs     map[string]job.Summary
	mu       sync.RWMutex
}

// NewMemory creates a Store that keeps at most capacity summaries in memory,
// evicting the oldest.
func NewMemory(capacity int) Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &memory{
		capacity: capacity,
		jobs:     make(map[string]job.Summary),
	}
}

func (s *memory) Record(sum job.Summary) error {
	if err := prepare(&sum); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[sum.ID] = sum
	if len(s.jobs) > s.capacity {
		oldest := ""
		for id, j := range s.jobs {
			if oldest == "" || j.FinishedAt.Before(s.jobs[oldest].FinishedAt) {
				oldest = id
			}
		}
		delete(s.jobs, oldest)
	}
	return nil
}

func (s *memory) Get(id string) (job.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return job.Summary{}, ErrNotFound
	}
	return j, nil
}

func (s *memory) List(q Query) ([]job.Summary, error) {
	s.mu.RLock()
	out := make([]job.Summary, 0, len(s.jobs))
	for _, j := range s.jobs {
		if q.match(j) {
			out = append(out, j)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool {
		return out[i].FinishedAt.After(out[k].FinishedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *memory) Close() error {
	return nil
}
