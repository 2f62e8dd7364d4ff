// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package job

import (
	"strings"
	"time"

	"github.com/ZSC714725/transcodeworker/internal/engine"
	"github.com/ZSC714725/transcodeworker/internal/ffmpeg/parse"
)

// Target is the kind of output a job produces
type Target string

const (
	TargetImageSequence  Target = "image-sequence"
	TargetVideoContainer Target = "video-container"
)

// TargetFromFormat maps the caller's targetFormat. Anything but "gif" is video.
func TargetFromFormat(format string) Target {
	if strings.EqualFold(strings.TrimSpace(format), "gif") {
		return TargetImageSequence
	}
	return TargetVideoContainer
}

// MP4Profile tunes the video-container encoder
type MP4Profile struct {
	Preset string `json:"preset,omitempty"`
	CRF    string `json:"crf,omitempty"`
}

// QualityProfile is a named set of scale and codec-tuning parameters
type QualityProfile struct {
	GIFScale string      `json:"gifScale,omitempty"`
	MP4      *MP4Profile `json:"mp4,omitempty"`
}

// Options for a job; zero values fall back to Defaults
type Options struct {
	FPS            float64         `json:"fps,omitempty"`
	QualityProfile *QualityProfile `json:"qualityProfile,omitempty"`
}

// Job is one conversion request
type Job struct {
	ID      string
	Input   []byte
	Target  Target
	Options Options
}

// Defaults apply when a job leaves an option unset
type Defaults struct {
	FPS      float64
	GIFScale string
	Preset   string
	CRF      string
}

// DefaultDefaults returns frame rate 30, scale 640:-1, preset veryfast, crf 23
func DefaultDefaults() Defaults {
	return Defaults{FPS: 30, GIFScale: "640:-1", Preset: "veryfast", CRF: "23"}
}

// EventType of an outbound event
type EventType string

const (
	EventStatus   EventType = "status"
	EventLog      EventType = "log"
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is a fire-and-forget notification tagged with the job that produced it
type Event struct {
	Type     EventType
	JobID    string
	Message  string
	Line     string
	Progress int
	Buffer   []byte
	MimeType string
	Log      string
}

// Terminal reports whether e ends its job
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Emitter delivers events to the caller
type Emitter interface {
	Emit(e Event)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(e Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// Summary is what a finished job leaves behind for the history. JobID is
// chosen by the caller and only unique within its session, ID is assigned
// by the history store.
type Summary struct {
	ID          string          `json:"id"`
	JobID       string          `json:"job_id"`
	Session     string          `json:"session,omitempty"`
	Target      Target          `json:"target"`
	Outcome     EventType       `json:"outcome"`
	Message     string          `json:"message,omitempty"`
	MimeType    string          `json:"mime_type,omitempty"`
	InputBytes  int             `json:"input_bytes"`
	OutputBytes int             `json:"output_bytes"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Run         engine.RunStats `json:"run"`
	Stats       parse.Stats     `json:"stats"`
	LogTail     string          `json:"log_tail,omitempty"`
}

// Recorder stores job summaries
type Recorder interface {
	Record(s Summary) error
}
