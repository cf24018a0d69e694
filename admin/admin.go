// Package admin 本地管理与监控接口：健康检查、运行指标、视觉开关热更新、最新帧截图。
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pongview/logging"
	"pongview/render"
	"pongview/session"
)

// Effects 视觉开关的读取与更新（session.Controller）
type Effects interface {
	Effects() render.Effects
	UpdateEffects(ctx context.Context, e render.Effects) error
}

// MetricsSource 任意可输出指标快照的组件
type MetricsSource interface {
	Snapshot() map[string]any
}

// MetricsFunc 把普通函数适配为 MetricsSource
type MetricsFunc func() map[string]any

func (f MetricsFunc) Snapshot() map[string]any { return f() }

// FrameSource 最新帧（raster.Surface）
type FrameSource interface {
	WritePNG(w io.Writer) error
}

// Handler 管理接口集合
type Handler struct {
	effects Effects
	metrics map[string]MetricsSource
	frames  FrameSource // 终端模式下为空
	started time.Time
	log     *zap.SugaredLogger
}

func NewHandler(effects Effects, metrics map[string]MetricsSource, frames FrameSource) *Handler {
	return &Handler{
		effects: effects,
		metrics: metrics,
		frames:  frames,
		started: time.Now(),
		log:     logging.Named("admin"),
	}
}

// Routes 注册全部路由
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", h.HandleMetrics)
	mux.HandleFunc("/admin/config", h.HandleConfig)
	mux.HandleFunc("/frame.png", h.HandleFrame)
	return mux
}

// effectsPatch 部分更新：只修改出现的字段
type effectsPatch struct {
	Trail       *bool `json:"trail,omitempty"`
	Glow        *bool `json:"glow,omitempty"`
	Particles   *bool `json:"particles,omitempty"`
	TrailLength *int  `json:"trailLength,omitempty"`
	TrailCount  *int  `json:"trailCount,omitempty"`
}

func (p effectsPatch) apply(e render.Effects) render.Effects {
	if p.Trail != nil {
		e.Trail = *p.Trail
	}
	if p.Glow != nil {
		e.Glow = *p.Glow
	}
	if p.Particles != nil {
		e.Particles = *p.Particles
	}
	if p.TrailLength != nil {
		e.TrailLength = *p.TrailLength
	}
	if p.TrailCount != nil {
		e.TrailCount = *p.TrailCount
	}
	return e
}

// HandleConfig 视觉开关的读取与更新
// GET /admin/config   返回当前开关
// POST /admin/config  以 JSON 载荷更新部分字段，例如 {"glow":false}
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.effects.Effects())
	case http.MethodPost:
		var body effectsPatch
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		next := body.apply(h.effects.Effects())
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.effects.UpdateEffects(ctx, next); err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, session.ErrInvalid) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "effects": next})
		h.log.Infof("config updated: trail=%v glow=%v particles=%v trailLength=%d trailCount=%d",
			next.Trail, next.Glow, next.Particles, next.TrailLength, next.TrailCount)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出各组件运行指标
// GET /metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"uptime_s": int64(time.Since(h.started).Seconds()),
	}
	for name, src := range h.metrics {
		payload[name] = src.Snapshot()
	}
	writeJSON(w, http.StatusOK, payload)
}

// HandleFrame 最近一帧 PNG；仅 headless 模式可用
// GET /frame.png
func (h *Handler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	if h.frames == nil {
		http.Error(w, "frame capture unavailable in terminal mode", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := h.frames.WritePNG(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
