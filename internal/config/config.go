// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Worker  WorkerConfig  `yaml:"worker"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Bind            string   `yaml:"bind"`
	MaxMessageBytes int64    `yaml:"max_message_bytes"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// FFmpegConfig FFmpeg 配置
type FFmpegConfig struct {
	Path       string   `yaml:"path"`
	ScratchDir string   `yaml:"scratch_dir"`
	Log        bool     `yaml:"log"`
	AllowNames []string `yaml:"allow_names"`
	BlockNames []string `yaml:"block_names"`
}

// WorkerConfig holds per-job defaults and log/progress tuning.
type WorkerConfig struct {
	FPS           float64 `yaml:"fps"`
	GIFScale      string  `yaml:"gif_scale"`
	Preset        string  `yaml:"preset"`
	CRF           string  `yaml:"crf"`
	LogLines      int     `yaml:"log_lines"`
	TailLines     int     `yaml:"tail_lines"`
	LogThrottleMS int     `yaml:"log_throttle_ms"`
	QueueSize     int     `yaml:"queue_size"`
}

// HistoryConfig 任务历史存储
type HistoryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxRecords int    `yaml:"max_records"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:            ":8080",
			MaxMessageBytes: 256 << 20,
		},
		FFmpeg: FFmpegConfig{
			Path: "ffmpeg",
			Log:  true,
		},
		Worker: WorkerConfig{
			FPS:           30,
			GIFScale:      "640:-1",
			Preset:        "veryfast",
			CRF:           "23",
			LogLines:      200,
			TailLines:     12,
			LogThrottleMS: 160,
			QueueSize:     4,
		},
		History: HistoryConfig{
			Enabled:    true,
			Path:       "data/history",
			MaxRecords: 1000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load 从 YAML 文件加载配置
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.fill()
	return cfg, nil
}

// 填充空值
func (c *Config) fill() {
	def := Default()

	if c.Server.Bind == "" {
		c.Server.Bind = def.Server.Bind
	}
	if c.Server.MaxMessageBytes <= 0 {
		c.Server.MaxMessageBytes = def.Server.MaxMessageBytes
	}
	if c.FFmpeg.Path == "" {
		c.FFmpeg.Path = def.FFmpeg.Path
	}
	if c.Worker.FPS <= 0 {
		c.Worker.FPS = def.Worker.FPS
	}
	if c.Worker.GIFScale == "" {
		c.Worker.GIFScale = def.Worker.GIFScale
	}
	if c.Worker.Preset == "" {
		c.Worker.Preset = def.Worker.Preset
	}
	if c.Worker.CRF == "" {
		c.Worker.CRF = def.Worker.CRF
	}
	if c.Worker.LogLines <= 0 {
		c.Worker.LogLines = def.Worker.LogLines
	}
	if c.Worker.TailLines <= 0 {
		c.Worker.TailLines = def.Worker.TailLines
	}
	if c.Worker.LogThrottleMS <= 0 {
		c.Worker.LogThrottleMS = def.Worker.LogThrottleMS
	}
	if c.Worker.QueueSize <= 0 {
		c.Worker.QueueSize = def.Worker.QueueSize
	}
	if c.History.Path == "" {
		c.History.Path = def.History.Path
	}
	if c.History.MaxRecords <= 0 {
		c.History.MaxRecords = def.History.MaxRecords
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
