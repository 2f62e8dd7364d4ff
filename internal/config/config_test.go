// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Bind != ":8080" {
		t.Errorf("Expected bind :8080, got %s", cfg.Server.Bind)
	}
	if cfg.Worker.FPS != 30 || cfg.Worker.GIFScale != "640:-1" {
		t.Errorf("Unexpected worker defaults: %+v", cfg.Worker)
	}
	if cfg.Worker.Preset != "veryfast" || cfg.Worker.CRF != "23" {
		t.Errorf("Unexpected encoder defaults: %+v", cfg.Worker)
	}
	if cfg.Worker.LogLines != 200 || cfg.Worker.TailLines != 12 || cfg.Worker.LogThrottleMS != 160 {
		t.Errorf("Unexpected log defaults: %+v", cfg.Worker)
	}
	if cfg.History.MaxRecords != 1000 {
		t.Errorf("Expected 1000 history records, got %d", cfg.History.MaxRecords)
	}
}

func TestLoadOverridesAndFills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  bind: "127.0.0.1:9000"
ffmpeg:
  path: /usr/local/bin/ffmpeg
worker:
  fps: 12
  crf: "28"
log:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Bind != "127.0.0.1:9000" {
		t.Errorf("Expected overridden bind, got %s", cfg.Server.Bind)
	}
	if cfg.FFmpeg.Path != "/usr/local/bin/ffmpeg" {
		t.Errorf("Expected overridden ffmpeg path, got %s", cfg.FFmpeg.Path)
	}
	if cfg.Worker.FPS != 12 || cfg.Worker.CRF != "28" {
		t.Errorf("Expected fps 12 and crf 28, got %+v", cfg.Worker)
	}
	if cfg.Worker.Preset != "veryfast" {
		t.Errorf("Expected preset to keep default, got %s", cfg.Worker.Preset)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  bnid: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for unknown field")
	}
}
