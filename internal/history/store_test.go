// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package history

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"

	"github.com/ZSC714725/transcodeworker/internal/job"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	disk, err := Open("history", 0, vfs.NewMem())
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	t.Cleanup(func() { disk.Close() })
	return map[string]Store{
		"memory": NewMemory(3),
		"pebble": disk,
	}
}

func summary(id string, finished int64) job.Summary {
	return job.Summary{
		ID:          id,
		JobID:       id,
		Target:      job.TargetImageSequence,
		Outcome:     job.EventDone,
		MimeType:    "image/gif",
		OutputBytes: 42,
		FinishedAt:  time.Unix(finished, 0).UTC(),
	}
}

func TestStoreGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Record(summary("a", 1)); err != nil {
				t.Fatalf("Record() returned error: %v", err)
			}
			got, err := s.Get("a")
			if err != nil {
				t.Fatalf("Get() returned error: %v", err)
			}
			if got.OutputBytes != 42 || got.MimeType != "image/gif" || !got.FinishedAt.Equal(time.Unix(1, 0)) {
				t.Errorf("Unexpected summary %+v", got)
			}
			if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
			if err := s.Record(job.Summary{}); !errors.Is(err, ErrNoID) {
				t.Errorf("Expected ErrNoID, got %v", err)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i, id := range []string{"a", "b", "c"} {
				s.Record(summary(id, int64(i+1)))
			}
			// re-recording the same record moves it to the front
			s.Record(summary("a", 10))

			list, err := s.List(Query{})
			if err != nil {
				t.Fatalf("List() returned error: %v", err)
			}
			var ids string
			for _, j := range list {
				ids += j.JobID
			}
			if ids != "acb" {
				t.Errorf("Expected order acb, got %s", ids)
			}

			list, _ = s.List(Query{Limit: 2})
			if len(list) != 2 {
				t.Errorf("Expected 2 entries, got %d", len(list))
			}
		})
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	s := NewMemory(3)
	for i := 0; i < 5; i++ {
		s.Record(summary(fmt.Sprintf("job-%d", i), int64(i)))
	}
	list, _ := s.List(Query{})
	if len(list) != 3 || list[2].JobID != "job-2" {
		t.Errorf("Unexpected list %+v", list)
	}
	if _, err := s.Get("job-0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected job-0 evicted, got %v", err)
	}
}

func TestStoreSameJobIDAcrossSessions(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i, session := range []string{"s1", "s2"} {
				sum := summary("", int64(i+1))
				sum.JobID = "1"
				sum.Session = session
				if err := s.Record(sum); err != nil {
					t.Fatalf("Record() returned error: %v", err)
				}
			}
			s.Record(summary("other", 3))

			list, err := s.List(Query{JobID: "1"})
			if err != nil {
				t.Fatalf("List() returned error: %v", err)
			}
			if len(list) != 2 {
				t.Fatalf("Expected 2 entries, got %+v", list)
			}
			if list[0].Session != "s2" || list[1].Session != "s1" {
				t.Errorf("Expected sessions s2 s1, got %s %s", list[0].Session, list[1].Session)
			}
			if list[0].ID == "" || list[0].ID == list[1].ID {
				t.Errorf("Expected distinct record ids, got %q %q", list[0].ID, list[1].ID)
			}
			got, err := s.Get(list[1].ID)
			if err != nil || got.Session != "s1" {
				t.Errorf("Expected s1 record, got %+v %v", got, err)
			}
		})
	}
}

func TestDiskRetention(t *testing.T) {
	fs := vfs.NewMem()
	s, err := Open("history", 3, fs)
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Record(summary(fmt.Sprintf("job-%d", i), int64(i))); err != nil {
			t.Fatalf("Record() returned error: %v", err)
		}
	}
	list, _ := s.List(Query{})
	if len(list) != 3 || list[0].ID != "job-4" || list[2].ID != "job-2" {
		t.Errorf("Unexpected list %+v", list)
	}
	if _, err := s.Get("job-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected job-1 pruned, got %v", err)
	}
	s.Close()

	// the count survives a reopen
	s, err = Open("history", 3, fs)
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	defer s.Close()
	s.Record(summary("job-5", 5))
	list, _ = s.List(Query{})
	if len(list) != 3 || list[2].ID != "job-3" {
		t.Errorf("Unexpected list after reopen %+v", list)
	}
}
