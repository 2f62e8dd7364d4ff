// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// TimeParser recovers timing information from engine log text.
// Both methods are best effort and return 0 when nothing usable is found.
type TimeParser interface {
	TotalDuration(line string) float64
	CurrentPosition(line string) float64
}

var (
	reDuration  = regexp.MustCompile(`Duration:\s*([0-9]+):([0-9]{2}):([0-9]{2}(?:\.[0-9]+)?)`)
	reTime      = regexp.MustCompile(`time=\s*([0-9]+):([0-9]{2}):([0-9]{2}(?:\.[0-9]+)?)`)
	reTimeShort = regexp.MustCompile(`time=\s*([0-9]+):([0-9]{1,2}(?:\.[0-9]+)?)`)
)

// FFmpeg parses the textual stderr format of the ffmpeg CLI.
var FFmpeg TimeParser = ffmpegParser{}

type ffmpegParser struct{}

func (ffmpegParser) TotalDuration(line string) float64 {
	return ExtractTotalDuration(line)
}

func (ffmpegParser) CurrentPosition(line string) float64 {
	return ExtractCurrentPosition(line)
}

// ExtractTotalDuration returns the seconds of a "Duration: HH:MM:SS.ff" announcement.
func ExtractTotalDuration(line string) float64 {
	m := reDuration.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	return clock(m[1], m[2], m[3])
}

// ExtractCurrentPosition returns the seconds of a "time=HH:MM:SS.ff" marker,
// falling back to the shorter "time=M:SS.ff" form.
func ExtractCurrentPosition(line string) float64 {
	if m := reTime.FindStringSubmatch(line); m != nil {
		return clock(m[1], m[2], m[3])
	}
	if m := reTimeShort.FindStringSubmatch(line); m != nil {
		return clock("0", m[1], m[2])
	}
	return 0
}

// IsProgressLine reports whether line carries a frame or time marker.
func IsProgressLine(line string) bool {
	return strings.Contains(line, "frame=") || strings.Contains(line, "time=")
}

func clock(h, m, s string) float64 {
	hh, err := strconv.Atoi(h)
	if err != nil {
		return 0
	}
	mm, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	ss, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return float64(hh*3600+mm*60) + ss
}
