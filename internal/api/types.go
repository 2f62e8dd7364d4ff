// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package api

import "github.com/ZSC714725/transcodeworker/internal/job"

// JobList is the response of GET /api/v1/jobs
type JobList struct {
	Jobs  []job.Summary `json:"jobs"`
	Count int           `json:"count"`
}

// Health is the response of GET /healthz
type Health struct {
	Status  string `json:"status"`
	Workers int64  `json:"workers"`
	History bool   `json:"history"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
