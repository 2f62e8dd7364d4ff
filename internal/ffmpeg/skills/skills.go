// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package skills

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Encoder represents an encoder compiled into the binary
type Encoder struct {
	Id   string `json:"id"`
	Kind string `json:"kind"` // video, audio, subtitle
	Name string `json:"name"`
}

// Format represents a supported format
type Format struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// Library represents a linked av library
type Library struct {
	Name     string `json:"name"`
	Compiled string `json:"compiled"`
	Linked   string `json:"linked"`
}

// Info is the version block of `ffmpeg -version`
type Info struct {
	Version       string    `json:"version"`
	Compiler      string    `json:"compiler"`
	Configuration string    `json:"configuration"`
	Libraries     []Library `json:"libraries"`
}

// Skills are the detected capabilities of FFmpeg
type Skills struct {
	FFmpeg   Info      `json:"ffmpeg"`
	Encoders []Encoder `json:"encoders"`
	Muxers   []Format  `json:"muxers"`
	Demuxers []Format  `json:"demuxers"`
}

// HasEncoder reports whether an encoder with the given id is available
func (s Skills) HasEncoder(id string) bool {
	for _, e := range s.Encoders {
		if e.Id == id {
			return true
		}
	}
	return false
}

// HasMuxer reports whether a muxer with the given id is available
func (s Skills) HasMuxer(id string) bool {
	for _, f := range s.Muxers {
		if f.Id == id {
			return true
		}
	}
	return false
}

// Missing returns the names from encoders and muxers that the binary lacks.
func (s Skills) Missing(encoders, muxers []string) []string {
	var missing []string
	for _, e := range encoders {
		if !s.HasEncoder(e) {
			missing = append(missing, "encoder "+e)
		}
	}
	for _, m := range muxers {
		if !s.HasMuxer(m) {
			missing = append(missing, "muxer "+m)
		}
	}
	return missing
}

// New returns the skills the given binary provides
func New(ctx context.Context, binary string) (Skills, error) {
	c := Skills{}

	out, err := run(ctx, binary, "-version")
	if err != nil {
		return Skills{}, fmt.Errorf("can't parse ffmpeg version: %w", err)
	}
	c.FFmpeg = parseVersion(out)
	if c.FFmpeg.Version == "" {
		return Skills{}, fmt.Errorf("can't parse ffmpeg version")
	}

	out, _ = run(ctx, binary, "-hide_banner", "-encoders")
	c.Encoders = parseEncoders(out)

	out, _ = run(ctx, binary, "-hide_banner", "-formats")
	c.Demuxers, c.Muxers = parseFormats(out)

	return c, nil
}

func run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = []string{}
	return cmd.Output()
}

func parseVersion(data []byte) Info {
	f := Info{}
	reVersion := regexp.MustCompile(`^ffmpeg version n?([0-9]+\.[0-9]+(\.[0-9]+)?)`)
	reCompiler := regexp.MustCompile(`(?m)^\s*built with (.*)$`)
	reConfiguration := regexp.MustCompile(`(?m)^\s*configuration: (.*)$`)
	reLibrary := regexp.MustCompile(`(?m)^\s*(lib(?:[a-z]+))\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+) /\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+)`)

	if m := reVersion.FindSubmatch(data); m != nil {
		f.Version = string(m[1])
		if len(m[2]) == 0 {
			f.Version += ".0"
		}
	}
	if m := reCompiler.FindSubmatch(data); m != nil {
		f.Compiler = string(m[1])
	}
	if m := reConfiguration.FindSubmatch(data); m != nil {
		f.Configuration = string(m[1])
	}
	for _, m := range reLibrary.FindAllSubmatch(data, -1) {
		f.Libraries = append(f.Libraries, Library{
			Name:     string(m[1]),
			Compiled: string(m[2]),
			Linked:   string(m[3]),
		})
	}
	return f
}

func parseEncoders(data []byte) []Encoder {
	var encoders []Encoder
	re := regexp.MustCompile(`^\s([VAS])[F.][S.][X.][B.][D.]\s+([0-9A-Za-z_\-]+)\s+(.*)$`)
	kinds := map[string]string{"V": "video", "A": "audio", "S": "subtitle"}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := re.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		encoders = append(encoders, Encoder{Id: m[2], Kind: kinds[m[1]], Name: strings.TrimSpace(m[3])})
	}
	return encoders
}

func parseFormats(data []byte) (demuxers, muxers []Format) {
	re := regexp.MustCompile(`^\s([D ])([E ])[d ]? ?([0-9A-Za-z_,]+)\s+(.*?)$`)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := re.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		for _, id := range strings.Split(m[3], ",") {
			format := Format{Id: id, Name: m[4]}
			if m[1] == "D" {
				demuxers = append(demuxers, format)
			}
			if m[2] == "E" {
				muxers = append(muxers, format)
			}
		}
	}
	return demuxers, muxers
}
