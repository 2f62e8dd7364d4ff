// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/transcodeworker/internal/api"
	"github.com/ZSC714725/transcodeworker/internal/config"
	"github.com/ZSC714725/transcodeworker/internal/ffmpeg"
	"github.com/ZSC714725/transcodeworker/internal/history"
	"github.com/ZSC714725/transcodeworker/internal/logger"
	"github.com/ZSC714725/transcodeworker/internal/process"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	bind := flag.String("bind", "", "Bind address (overrides config)")
	ffmpegBin := flag.String("ffmpeg", "", "FFmpeg binary path (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Load config: %v", err)
		}
	}
	if *bind != "" {
		cfg.Server.Bind = *bind
	}
	if *ffmpegBin != "" {
		cfg.FFmpeg.Path = *ffmpegBin
	}

	logger.SetLevel(cfg.Log.Level)
	logger := logger.New("transcodeworker")

	lib, err := ffmpeg.NewLibrary(ffmpeg.Config{
		Binary:     cfg.FFmpeg.Path,
		AllowNames: cfg.FFmpeg.AllowNames,
		BlockNames: cfg.FFmpeg.BlockNames,
		Logger:     logger,
		NewSampler: process.NewSysSampler,
	})
	if err != nil {
		log.Fatalf("FFmpeg init: %v", err)
	}
	// the engine is imported lazily per worker; probe now only to report problems early
	if _, err := lib.Skills(context.Background()); err != nil {
		logger.Error("ffmpeg not usable yet: %v", err)
	}

	var store history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path, cfg.History.MaxRecords, nil)
		if err != nil {
			log.Fatalf("History: %v", err)
		}
	} else {
		store = history.NewMemory(cfg.History.MaxRecords)
	}
	defer store.Close()

	handler := api.NewHandler(lib, lib, store, cfg, logger)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware(cfg.Server.AllowedOrigins))
	handler.Register(r)

	srv := &http.Server{
		Addr:    cfg.Server.Bind,
		Handler: r,
	}

	go func() {
		logger.Info("TranscodeWorker listening on %s (worker: /api/v1/ws)", cfg.Server.Bind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown: %v", err)
	}
	handler.Shutdown()
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	c := cors.DefaultConfig()
	c.AllowOrigins = origins
	return cors.New(c)
}
