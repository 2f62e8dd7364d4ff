// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package job

import (
	"fmt"
	"regexp"
	"strconv"
)

// InputName is where every job's input is staged in the engine filesystem
const InputName = "input.webm"

// Profile is the resolved command for one job
type Profile struct {
	Output   string
	MimeType string
	Status   string
	Args     []string
}

// Option values end up inside ffmpeg arguments and filter graphs, so only
// these shapes are accepted.
var (
	reScale  = regexp.MustCompile(`^-?[0-9]+:-?[0-9]+$`)
	rePreset = regexp.MustCompile(`^(ultrafast|superfast|veryfast|faster|fast|medium|slow|slower|veryslow|placebo)$`)
	reCRF    = regexp.MustCompile(`^[0-9]{1,2}(\.[0-9]+)?$`)
)

// BuildCommand resolves the command profile for j, filling unset options
// from d. Option values of an unexpected shape fail with ErrInvalidOptions.
func BuildCommand(j Job, d Defaults) (Profile, error) {
	fps := j.Options.FPS
	if fps <= 0 {
		fps = d.FPS
	}
	rate := strconv.FormatFloat(fps, 'f', -1, 64)

	scale, preset, crf := d.GIFScale, d.Preset, d.CRF
	if qp := j.Options.QualityProfile; qp != nil {
		if qp.GIFScale != "" {
			scale = qp.GIFScale
		}
		if qp.MP4 != nil {
			if qp.MP4.Preset != "" {
				preset = qp.MP4.Preset
			}
			if qp.MP4.CRF != "" {
				crf = qp.MP4.CRF
			}
		}
	}

	if j.Target == TargetImageSequence {
		if !reScale.MatchString(scale) {
			return Profile{}, fmt.Errorf("%w: gifScale %q", ErrInvalidOptions, scale)
		}
		out := "output.gif"
		return Profile{
			Output:   out,
			MimeType: "image/gif",
			Status:   "Rendering GIF frames...",
			Args: []string{
				"-i", InputName,
				"-vf", "fps=" + rate + ",scale=" + scale + ":flags=lanczos",
				"-loop", "0",
				out,
			},
		}, nil
	}

	if !rePreset.MatchString(preset) {
		return Profile{}, fmt.Errorf("%w: preset %q", ErrInvalidOptions, preset)
	}
	if !reCRF.MatchString(crf) {
		return Profile{}, fmt.Errorf("%w: crf %q", ErrInvalidOptions, crf)
	}

	out := "output.mp4"
	return Profile{
		Output:   out,
		MimeType: "video/mp4",
		Status:   "Transcoding video...",
		Args: []string{
			"-i", InputName,
			"-r", rate,
			"-c:v", "libx264",
			"-preset", preset,
			"-crf", crf,
			"-c:a", "aac",
			"-movflags", "faststart",
			out,
		},
	}, nil
}
