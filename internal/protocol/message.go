// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器
//
// Package protocol translates worker messages into jobs and job events into
// outbound messages.

package protocol

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/ZSC714725/transcodeworker/internal/job"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TypeConvert is the only inbound message type acted upon
const TypeConvert = "convert"

// Inbound is a message from the caller
type Inbound struct {
	Type    string         `json:"type"`
	Payload ConvertPayload `json:"payload"`
}

// ConvertPayload is the body of a convert message
type ConvertPayload struct {
	JobID        string      `json:"jobId"`
	Buffer       []byte      `json:"buffer"`
	TargetFormat string      `json:"targetFormat"`
	Options      job.Options `json:"options"`
}

// Outbound is a message to the caller. Every message carries jobId.
type Outbound struct {
	Type     job.EventType `json:"type"`
	JobID    string        `json:"jobId"`
	Message  string        `json:"message,omitempty"`
	Line     string        `json:"line,omitempty"`
	Progress *int          `json:"progress,omitempty"`
	Buffer   []byte        `json:"buffer,omitempty"`
	MimeType string        `json:"mimeType,omitempty"`
	Log      string        `json:"log,omitempty"`
}

// Decode parses an inbound message
func Decode(data []byte) (Inbound, error) {
	var in Inbound
	err := json.Unmarshal(data, &in)
	return in, err
}

// Encode serializes an outbound message
func Encode(out Outbound) ([]byte, error) {
	return json.Marshal(out)
}

// Job converts a convert payload into a job
func (p ConvertPayload) Job() job.Job {
	return job.Job{
		ID:      p.JobID,
		Input:   p.Buffer,
		Target:  job.TargetFromFormat(p.TargetFormat),
		Options: p.Options,
	}
}

// FromEvent builds the outbound message for e
func FromEvent(e job.Event) Outbound {
	out := Outbound{Type: e.Type, JobID: e.JobID}
	switch e.Type {
	case job.EventStatus:
		out.Message = e.Message
	case job.EventLog:
		out.Line = e.Line
	case job.EventProgress:
		p := e.Progress
		out.Progress = &p
	case job.EventDone:
		out.Buffer = e.Buffer
		out.MimeType = e.MimeType
	case job.EventError:
		out.Message = e.Message
		out.Log = e.Log
	}
	return out
}
