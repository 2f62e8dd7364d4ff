// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package api

import (
	"context"

	"github.com/ZSC714725/transcodeworker/internal/ffmpeg/skills"
)

// SkillsSource reports the capabilities of the engine binary
type SkillsSource interface {
	Skills(ctx context.Context) (skills.Skills, error)
	ReloadSkills(ctx context.Context) error
}

// SkillsResponse for API
type SkillsResponse struct {
	FFmpeg skills.Info `json:"ffmpeg"`

	Encoders struct {
		Audio    []skills.Encoder `json:"audio"`
		Video    []skills.Encoder `json:"video"`
		Subtitle []skills.Encoder `json:"subtitle"`
	} `json:"encoders"`

	Formats struct {
		Demuxers []skills.Format `json:"demuxers"`
		Muxers   []skills.Format `json:"muxers"`
	} `json:"formats"`
}

func skillsToAPI(s skills.Skills) SkillsResponse {
	resp := SkillsResponse{FFmpeg: s.FFmpeg}

	resp.Encoders.Audio = []skills.Encoder{}
	resp.Encoders.Video = []skills.Encoder{}
	resp.Encoders.Subtitle = []skills.Encoder{}
	for _, e := range s.Encoders {
		switch e.Kind {
		case "audio":
			resp.Encoders.Audio = append(resp.Encoders.Audio, e)
		case "video":
			resp.Encoders.Video = append(resp.Encoders.Video, e)
		case "subtitle":
			resp.Encoders.Subtitle = append(resp.Encoders.Subtitle, e)
		}
	}

	resp.Formats.Demuxers = append([]skills.Format{}, s.Demuxers...)
	resp.Formats.Muxers = append([]skills.Format{}, s.Muxers...)

	return resp
}
