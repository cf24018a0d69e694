package render

import (
	"fmt"
	"image/color"
	"math"
	"sync/atomic"
	"time"

	"pongview/particle"
	"pongview/protocol"
)

// 单帧最大步长，循环卡顿后不让粒子瞬移
const maxFrameStep = 250 * time.Millisecond

// overlay 文本脉动频率（Hz）
const pulseHz = 0.8

// Palette 各元素颜色
type Palette struct {
	Background color.NRGBA
	Foreground color.NRGBA
	Player1    color.NRGBA
	Player2    color.NRGBA
	Ball       color.NRGBA
	UI         color.NRGBA
	Online     color.NRGBA
	Offline    color.NRGBA
}

// Effects 可热更新的视觉开关
type Effects struct {
	Trail       bool `json:"trail"`
	Glow        bool `json:"glow"`
	Particles   bool `json:"particles"`
	TrailLength int  `json:"trailLength"`
	TrailCount  int  `json:"trailCount"`
}

// Options 渲染器配置
type Options struct {
	FieldWidth  float64
	FieldHeight float64
	Palette     Palette
	Effects     Effects
}

// Status 连接指示器内容
type Status struct {
	Text    string
	Online  bool
	Clients int
}

// Renderer 每次 Render 完整重绘一帧，并根据两次调用的时间差推进动画。
// 只在渲染循环所在的 goroutine 中使用；Frames/Particles 可并发读取。
type Renderer struct {
	surface   Surface
	opts      Options
	particles *particle.Engine
	trail     *Trail
	layout    Layout

	last  time.Time
	clock float64 // 动画时钟（秒）

	frames atomic.Int64
	live   atomic.Int64
}

// New 创建渲染器，粒子引擎由调用方提供
func New(surface Surface, opts Options, engine *particle.Engine) *Renderer {
	r := &Renderer{
		surface:   surface,
		opts:      opts,
		particles: engine,
		trail:     NewTrail(opts.Effects.TrailLength),
	}
	r.Resize()
	return r
}

// Resize 按画布当前尺寸重算缩放，无需重连
func (r *Renderer) Resize() {
	w, h := r.surface.Size()
	r.layout = NewLayout(w, h, r.opts.FieldWidth, r.opts.FieldHeight)
}

// Layout 当前坐标映射
func (r *Renderer) Layout() Layout { return r.layout }

// Effects 当前视觉开关
func (r *Renderer) Effects() Effects { return r.opts.Effects }

// SetEffects 替换视觉开关；尾迹长度变化时重建尾迹
func (r *Renderer) SetEffects(e Effects) {
	if e.TrailLength != r.trail.Cap() {
		r.trail = NewTrail(e.TrailLength)
	}
	if !e.Particles {
		r.particles.Clear()
	}
	r.opts.Effects = e
}

// Burst 在逻辑坐标 (x, y) 处爆散粒子；粒子效果关闭时忽略
func (r *Renderer) Burst(x, y float64, c color.NRGBA, count int) {
	if !r.opts.Effects.Particles || count <= 0 {
		return
	}
	r.particles.SpawnBurst(particle.Vec{X: x, Y: y}, c, count)
}

// SideColor 某一侧的颜色
func (r *Renderer) SideColor(side protocol.Side) color.NRGBA {
	if side == protocol.SidePlayer1 {
		return r.opts.Palette.Player1
	}
	return r.opts.Palette.Player2
}

// BallColor 球与得分爆散使用的中性色
func (r *Renderer) BallColor() color.NRGBA { return r.opts.Palette.Ball }

// Frames 已绘制帧数
func (r *Renderer) Frames() int64 { return r.frames.Load() }

// LiveParticles 最近一帧的存活粒子数
func (r *Renderer) LiveParticles() int64 { return r.live.Load() }

// Reset 清空粒子与尾迹，用于新一局或重新连接
func (r *Renderer) Reset() {
	r.particles.Clear()
	r.trail.Reset()
}

// Render 绘制一帧：清屏与背景 → 场地 → 尾迹 → 粒子 → 球拍与球 → 比分 → 状态层 → 连接指示。
// snap 为 nil 表示尚未收到状态，只画“连接中”。
func (r *Renderer) Render(snap *protocol.Snapshot, st Status, now time.Time) error {
	dt := r.step(now)
	if w, h := r.surface.Size(); w != r.layout.Width || h != r.layout.Height {
		r.Resize()
	}
	r.particles.Advance(dt)

	s := r.surface
	pal := r.opts.Palette
	s.Clear(pal.Background)

	if snap == nil {
		r.trail.Reset()
		cx, cy := r.layout.Center()
		s.DrawText(cx, cy, "Waiting for server...", TextStyle{Size: r.textSize(32), Align: AlignCenter, VAlign: VAlignMiddle, Color: r.pulse(pal.UI)})
		r.drawStatus(st)
		return r.present()
	}

	r.drawField()
	r.updateTrail(snap)
	r.drawTrail(snap.Ball)
	if r.opts.Effects.Particles {
		r.particles.Draw(s, r.layout, r.opts.Effects.Glow)
	}
	if snap.Player1 != nil {
		r.drawPaddle(snap.Player1, pal.Player1)
	}
	if snap.Player2 != nil {
		r.drawPaddle(snap.Player2, pal.Player2)
	}
	if snap.Ball != nil {
		r.drawBall(snap.Ball)
	}
	r.drawScore(snap.Player1Score, snap.Player2Score)

	switch snap.State {
	case protocol.PhaseWaiting:
		r.drawWaiting(snap.Players())
	case protocol.PhaseGameOver:
		r.drawGameOver(snap.Winner)
	}
	r.drawStatus(st)
	return r.present()
}

func (r *Renderer) step(now time.Time) float64 {
	var dt time.Duration
	if !r.last.IsZero() {
		dt = now.Sub(r.last)
	}
	r.last = now
	if dt < 0 {
		dt = 0
	}
	if dt > maxFrameStep {
		dt = maxFrameStep
	}
	r.clock += dt.Seconds()
	return dt.Seconds()
}

func (r *Renderer) present() error {
	r.frames.Add(1)
	r.live.Store(int64(r.particles.Len()))
	if err := r.surface.Present(); err != nil {
		return fmt.Errorf("present frame: %w", err)
	}
	return nil
}

// pulse 随动画时钟在 0.6~1.0 之间起伏的透明度
func (r *Renderer) pulse(c color.NRGBA) color.NRGBA {
	a := 0.8 + 0.2*math.Sin(2*math.Pi*pulseHz*r.clock)
	c.A = uint8(math.Round(float64(c.A) * a))
	return c
}

// updateTrail 对局进行中记录球的位置并发射尾迹粒子，其余阶段清空
func (r *Renderer) updateTrail(snap *protocol.Snapshot) {
	fx := r.opts.Effects
	if snap.Ball == nil || snap.State != protocol.PhasePlaying || !fx.Trail {
		r.trail.Reset()
		return
	}
	pos := particle.Vec{X: snap.Ball.X, Y: snap.Ball.Y}
	r.trail.Push(pos)
	if fx.Particles && fx.TrailCount > 0 {
		r.particles.SpawnTrail(pos, r.opts.Palette.Ball, fx.TrailCount)
	}
}

func (r *Renderer) drawTrail(ball *protocol.Ball) {
	pts := r.trail.Points()
	if ball == nil || len(pts) == 0 {
		return
	}
	n := float64(len(pts))
	for i, p := range pts {
		k := float64(i+1) / n
		x, y := r.layout.Point(p.X, p.Y)
		c := r.opts.Palette.Ball
		c.A = uint8(math.Round(255 * 0.5 * k))
		r.surface.FillCircle(x, y, r.layout.Length(ball.Radius)*(0.4+0.6*k), c)
	}
}
