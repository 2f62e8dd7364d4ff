// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package job

import (
	"errors"
	"reflect"
	"testing"
)

func TestTargetFromFormat(t *testing.T) {
	tests := []struct {
		format string
		target Target
	}{
		{"gif", TargetImageSequence},
		{" GIF ", TargetImageSequence},
		{"mp4", TargetVideoContainer},
		{"", TargetVideoContainer},
		{"webp", TargetVideoContainer},
	}
	for _, tt := range tests {
		if got := TargetFromFormat(tt.format); got != tt.target {
			t.Errorf("TargetFromFormat(%q) = %s, expected %s", tt.format, got, tt.target)
		}
	}
}

func TestBuildCommandImageDefaults(t *testing.T) {
	p, err := BuildCommand(Job{Target: TargetImageSequence}, DefaultDefaults())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expected := []string{
		"-i", "input.webm",
		"-vf", "fps=30,scale=640:-1:flags=lanczos",
		"-loop", "0",
		"output.gif",
	}
	if !reflect.DeepEqual(p.Args, expected) {
		t.Errorf("Expected %v, got %v", expected, p.Args)
	}
	if p.MimeType != "image/gif" || p.Output != "output.gif" {
		t.Errorf("Unexpected profile %+v", p)
	}
}

func TestBuildCommandVideoOptions(t *testing.T) {
	j := Job{
		Target: TargetVideoContainer,
		Options: Options{
			FPS: 12.5,
			QualityProfile: &QualityProfile{
				GIFScale: "320:-1",
				MP4:      &MP4Profile{Preset: "slow"},
			},
		},
	}
	p, err := BuildCommand(j, DefaultDefaults())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expected := []string{
		"-i", "input.webm",
		"-r", "12.5",
		"-c:v", "libx264",
		"-preset", "slow",
		"-crf", "23",
		"-c:a", "aac",
		"-movflags", "faststart",
		"output.mp4",
	}
	if !reflect.DeepEqual(p.Args, expected) {
		t.Errorf("Expected %v, got %v", expected, p.Args)
	}
	if p.MimeType != "video/mp4" {
		t.Errorf("Expected video/mp4, got %s", p.MimeType)
	}
	if p.Status != "Transcoding video..." {
		t.Errorf("Unexpected status %q", p.Status)
	}
}

func TestBuildCommandImageScale(t *testing.T) {
	j := Job{
		Target:  TargetImageSequence,
		Options: Options{FPS: 10, QualityProfile: &QualityProfile{GIFScale: "480:-1"}},
	}
	p, err := BuildCommand(j, DefaultDefaults())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Args[3] != "fps=10,scale=480:-1:flags=lanczos" {
		t.Errorf("Unexpected filter %q", p.Args[3])
	}
}

func TestBuildCommandRejectsUnsafeOptions(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		profile QualityProfile
	}{
		{"filter chain in scale", TargetImageSequence, QualityProfile{GIFScale: "640:-1,movie=/etc/passwd"}},
		{"scale without height", TargetImageSequence, QualityProfile{GIFScale: "640"}},
		{"scale expression", TargetImageSequence, QualityProfile{GIFScale: "iw/2:-1"}},
		{"unknown preset", TargetVideoContainer, QualityProfile{MP4: &MP4Profile{Preset: "fast -y"}}},
		{"preset as flag", TargetVideoContainer, QualityProfile{MP4: &MP4Profile{Preset: "-filter_complex"}}},
		{"crf with flag", TargetVideoContainer, QualityProfile{MP4: &MP4Profile{CRF: "23 -f"}}},
		{"crf too long", TargetVideoContainer, QualityProfile{MP4: &MP4Profile{CRF: "123"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qp := tt.profile
			_, err := BuildCommand(Job{Target: tt.target, Options: Options{QualityProfile: &qp}}, DefaultDefaults())
			if !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("Expected ErrInvalidOptions, got %v", err)
			}
		})
	}
}

func TestBuildCommandAcceptsValidOptions(t *testing.T) {
	qp := &QualityProfile{GIFScale: "-2:480", MP4: &MP4Profile{Preset: "veryfast", CRF: "18.5"}}
	for _, target := range []Target{TargetImageSequence, TargetVideoContainer} {
		if _, err := BuildCommand(Job{Target: target, Options: Options{QualityProfile: qp}}, DefaultDefaults()); err != nil {
			t.Errorf("%s: expected no error, got %v", target, err)
		}
	}
}
