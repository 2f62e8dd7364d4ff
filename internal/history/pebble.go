// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	jsoniter "github.com/json-iterator/go"

	"github.com/ZSC714725/transcodeworker/internal/job"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Key layout:
//
//	job/<record id>                 -> summary
//	time/<finished ns>/<record id>  -> record id
const (
	jobPrefix  = "job/"
	timePrefix = "time/"
)

// DefaultMaxRecords bounds the disk store when Open is given no limit
const DefaultMaxRecords = 1000

type disk struct {
	db  *pebble.DB
	max int

	// serializes Record so count matches the time index
	mu    sync.Mutex
	count int
}

// Open opens or creates a pebble-backed Store at path keeping at most
// maxRecords summaries, dropping the oldest first. A nil fs uses the
// operating system's filesystem.
func Open(path string, maxRecords int, fs vfs.FS) (Store, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	s := &disk{db: db, max: maxRecords}
	if s.count, err = s.countRecords(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to scan history store: %w", err)
	}
	return s, nil
}

func jobKey(id string) []byte {
	return []byte(jobPrefix + id)
}

func timeKey(sum job.Summary) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", timePrefix, sum.FinishedAt.UnixNano(), sum.ID))
}

func (s *disk) timeIter() (*pebble.Iterator, error) {
	return s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(timePrefix),
		UpperBound: []byte("time0"),
	})
}

func (s *disk) countRecords() (int, error) {
	iter, err := s.timeIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

func (s *disk) Record(sum job.Summary) error {
	if err := prepare(&sum); err != nil {
		return err
	}

	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("failed to marshal job summary: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	count := s.count + 1
	if prev, err := s.Get(sum.ID); err == nil {
		if err := b.Delete(timeKey(prev), nil); err != nil {
			return err
		}
		count--
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := b.Set(jobKey(sum.ID), data, nil); err != nil {
		return err
	}
	if err := b.Set(timeKey(sum), []byte(sum.ID), nil); err != nil {
		return err
	}

	pruned, err := s.prune(b, count-s.max)
	if err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}
	s.count = count - pruned
	return nil
}

// prune adds deletions of the n oldest committed records to b. The record
// being written sits in b only, so it is never among them.
func (s *disk) prune(b *pebble.Batch, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	iter, err := s.timeIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	pruned := 0
	for iter.First(); iter.Valid() && pruned < n; iter.Next() {
		if err := b.Delete(iter.Key(), nil); err != nil {
			return 0, err
		}
		if err := b.Delete(jobKey(string(iter.Value())), nil); err != nil {
			return 0, err
		}
		pruned++
	}
	return pruned, iter.Error()
}

func (s *disk) Get(id string) (job.Summary, error) {
	data, closer, err := s.db.Get(jobKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return job.Summary{}, ErrNotFound
		}
		return job.Summary{}, err
	}
	defer closer.Close()

	var sum job.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return job.Summary{}, fmt.Errorf("failed to unmarshal job summary: %w", err)
	}
	return sum, nil
}

func (s *disk) List(q Query) ([]job.Summary, error) {
	iter, err := s.timeIter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []job.Summary
	for iter.Last(); iter.Valid(); iter.Prev() {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		sum, err := s.Get(string(iter.Value()))
		if err != nil {
			// skip index entries whose record is gone
			continue
		}
		if q.match(sum) {
			out = append(out, sum)
		}
	}
	return out, iter.Error()
}

func (s *disk) Close() error {
	return s.db.Close()
}
