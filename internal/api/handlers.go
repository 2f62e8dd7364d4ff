// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TranscodeWorker - 消息驱动的单任务转码协调器

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lithammer/shortuuid/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZSC714725/transcodeworker/internal/config"
	"github.com/ZSC714725/transcodeworker/internal/engine"
	"github.com/ZSC714725/transcodeworker/internal/history"
	"github.com/ZSC714725/transcodeworker/internal/job"
	"github.com/ZSC714725/transcodeworker/internal/logger"
	"github.com/ZSC714725/transcodeworker/internal/metrics"
	"github.com/ZSC714725/transcodeworker/internal/protocol"
)

const writeTimeout = 30 * time.Second

// Handler holds dependencies
type Handler struct {
	lib     engine.Library
	skills  SkillsSource
	history history.Store
	config  *config.Config
	logger  logger.Logger

	upgrader websocket.Upgrader
	workers  atomic.Int64

	// guards wg.Add against Shutdown
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHandler creates API handler. history may be nil.
func NewHandler(lib engine.Library, sk SkillsSource, store history.Store, cfg *config.Config, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		lib:     lib,
		skills:  sk,
		history: store,
		config:  cfg,
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// Register mounts the routes on r
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ws", h.Worker)

		v1.GET("/skills", h.Skills)
		v1.POST("/skills/reload", h.ReloadSkills)

		v1.GET("/jobs", h.ListJobs)
		v1.GET("/jobs/:id", h.GetJob)
	}
}

// Shutdown cancels every worker, which stops running engine commands, and
// waits for them to return.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	h.closed = true
	h.cancel()
	h.mu.Unlock()
	h.wg.Wait()
}

// track registers a worker with the shutdown group, false once shutting down
func (h *Handler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.config.Server.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.config.Server.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Worker GET /api/v1/ws
//
// Each connection is one isolated worker with its own engine handle.
// Inbound text frames are convert messages, outbound frames are events.
func (h *Handler) Worker(c *gin.Context) {
	if !h.track() {
		errResp(c, http.StatusServiceUnavailable, "Shutting down", "")
		return
	}
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(h.config.Server.MaxMessageBytes)

	n := h.workers.Add(1)
	metrics.Workers.Inc()
	defer func() {
		h.workers.Add(-1)
		metrics.Workers.Dec()
	}()
	session := shortuuid.New()
	h.logger.Info("worker %s connected from %s (%d active)", session, conn.RemoteAddr(), n)

	var wmu sync.Mutex
	sink := protocol.SinkFunc(func(data []byte) error {
		wmu.Lock()
		defer wmu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(websocket.TextMessage, data)
	})

	engines := engine.NewManager(h.lib, engine.Options{
		Log:      h.config.FFmpeg.Log,
		CorePath: h.config.FFmpeg.ScratchDir,
	}, h.logger)

	w := h.config.Worker
	worker := protocol.NewWorker(engines, sink, protocol.Config{
		Runner: job.Config{
			Session: session,
			Defaults: job.Defaults{
				FPS:      w.FPS,
				GIFScale: w.GIFScale,
				Preset:   w.Preset,
				CRF:      w.CRF,
			},
			LogLines:    w.LogLines,
			TailLines:   w.TailLines,
			LogThrottle: time.Duration(w.LogThrottleMS) * time.Millisecond,
			Recorder:    h.history,
		},
		QueueSize: w.QueueSize,
		Logger:    h.logger,
	})

	ctx, cancel := context.WithCancel(h.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	// unblock the read loop on shutdown
	go func() {
		<-ctx.Done()
		wmu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
		wmu.Unlock()
		conn.Close()
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("worker read: %v", err)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		if err := worker.Handle(data); err != nil {
			h.logger.Error("worker message: %v", err)
		}
	}

	cancel()
	<-done
	if err := engines.Close(); err != nil {
		h.logger.Error("closing engine: %v", err)
	}
	h.logger.Info("worker %s disconnected from %s", session, conn.RemoteAddr())
}

// Skills GET /api/v1/skills
func (h *Handler) Skills(c *gin.Context) {
	sk, err := h.skills.Skills(c.Request.Context())
	if err != nil {
		errResp(c, http.StatusServiceUnavailable, "FFmpeg unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, skillsToAPI(sk))
}

// ReloadSkills POST /api/v1/skills/reload
func (h *Handler) ReloadSkills(c *gin.Context) {
	if err := h.skills.ReloadSkills(c.Request.Context()); err != nil {
		errResp(c, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}
	h.Skills(c)
}

// ListJobs GET /api/v1/jobs?limit=50&job_id=
func (h *Handler) ListJobs(c *gin.Context) {
	if h.history == nil {
		errResp(c, http.StatusNotFound, "History disabled", "")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		errResp(c, http.StatusBadRequest, "Invalid limit", c.Query("limit"))
		return
	}

	jobs, err := h.history.List(history.Query{Limit: limit, JobID: c.Query("job_id")})
	if err != nil {
		errResp(c, http.StatusInternalServerError, "List failed", err.Error())
		return
	}
	if jobs == nil {
		jobs = []job.Summary{}
	}
	c.JSON(http.StatusOK, JobList{Jobs: jobs, Count: len(jobs)})
}

// GetJob GET /api/v1/jobs/:id, looked up by record ID
func (h *Handler) GetJob(c *gin.Context) {
	if h.history == nil {
		errResp(c, http.StatusNotFound, "History disabled", "")
		return
	}

	j, err := h.history.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
			return
		}
		errResp(c, http.StatusInternalServerError, "Lookup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, j)
}

// Health GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, Health{
		Status:  "ok",
		Workers: h.workers.Load(),
		History: h.history != nil,
	})
}
