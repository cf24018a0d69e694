package particle

import (
	"image/color"
	"math"

	"golang.org/x/exp/rand"
)

// Vec 二维向量（逻辑场地单位）
type Vec struct {
	X, Y float64
}

// Particle 短生命周期的视觉粒子，只属于 Engine
type Particle struct {
	Pos      Vec
	Vel      Vec         // 单位/秒
	Color    color.NRGBA
	Size     float64
	Age      float64 // 秒
	Lifetime float64 // 秒
	Alpha    float64 // 0..1，随 Age/Lifetime 线性淡出
}

// Params 粒子的随机范围与物理参数
type Params struct {
	BurstSpeedMin, BurstSpeedMax float64
	BurstSizeMin, BurstSizeMax   float64
	BurstLifeMin, BurstLifeMax   float64

	TrailJitter                float64 // 每轴速度在 ±TrailJitter/2 内随机
	TrailSizeMin, TrailSizeMax float64
	TrailLifeMin, TrailLifeMax float64

	Gravity float64 // 向下加速度，单位/秒²
	Damping float64 // 每 1/60 秒的速度保留系数
}

// DefaultParams 以 60FPS 下每帧 2~5 像素的爆散速度为基准换算成每秒
func DefaultParams() Params {
	return Params{
		BurstSpeedMin: 120,
		BurstSpeedMax: 300,
		BurstSizeMin:  2,
		BurstSizeMax:  5,
		BurstLifeMin:  0.5,
		BurstLifeMax:  1.0,

		TrailJitter:  60,
		TrailSizeMin: 1,
		TrailSizeMax: 3,
		TrailLifeMin: 0.3,
		TrailLifeMax: 0.5,

		Gravity: 120,
		Damping: 0.98,
	}
}

// MaxLifetime 任何粒子可能存活的最长时间
func (p Params) MaxLifetime() float64 {
	return math.Max(p.BurstLifeMax, p.TrailLifeMax)
}

// Painter 绘制粒子所需的最小画布能力
type Painter interface {
	FillCircle(cx, cy, r float64, c color.NRGBA)
}

// Transform 逻辑坐标到画布像素的映射
type Transform interface {
	Point(x, y float64) (float64, float64)
	Length(r float64) float64
}

// Engine 无序、动态大小的粒子集合。
// 只在渲染 Tick 所在的 goroutine 中调用，不做加锁。
type Engine struct {
	params    Params
	rng       *rand.Rand
	particles []Particle
}

// NewEngine 创建粒子引擎；相同 seed 得到相同的随机序列
func NewEngine(params Params, seed uint64) *Engine {
	return &Engine{
		params:    params,
		rng:       rand.New(rand.NewSource(seed)),
		particles: make([]Particle, 0, 128),
	}
}

// SpawnBurst 以 origin 为中心，按等角间隔向整圆发射 count 个粒子
func (e *Engine) SpawnBurst(origin Vec, c color.NRGBA, count int) {
	p := e.params
	for i := 0; i < count; i++ {
		angle := 2 * math.Pi * float64(i) / float64(count)
		speed := e.between(p.BurstSpeedMin, p.BurstSpeedMax)
		e.particles = append(e.particles, Particle{
			Pos:      origin,
			Vel:      Vec{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed},
			Color:    c,
			Size:     e.between(p.BurstSizeMin, p.BurstSizeMax),
			Lifetime: e.between(p.BurstLifeMin, p.BurstLifeMax),
			Alpha:    1,
		})
	}
}

// SpawnTrail 在 origin 生成 count 个带少量随机抖动的短命粒子
func (e *Engine) SpawnTrail(origin Vec, c color.NRGBA, count int) {
	p := e.params
	for i := 0; i < count; i++ {
		e.particles = append(e.particles, Particle{
			Pos: origin,
			Vel: Vec{
				X: (e.rng.Float64() - 0.5) * p.TrailJitter,
				Y: (e.rng.Float64() - 0.5) * p.TrailJitter,
			},
			Color:    c,
			Size:     e.between(p.TrailSizeMin, p.TrailSizeMax),
			Lifetime: e.between(p.TrailLifeMin, p.TrailLifeMax),
			Alpha:    1,
		})
	}
}

// Advance 推进 dt 秒：积分位置、重力、阻尼、增龄、淡出，
// 然后以过滤重建的方式剔除 Age >= Lifetime 的粒子
func (e *Engine) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	damp := math.Pow(e.params.Damping, dt*60)
	live := e.particles[:0]
	for _, pt := range e.particles {
		pt.Pos.X += pt.Vel.X * dt
		pt.Pos.Y += pt.Vel.Y * dt
		pt.Vel.Y += e.params.Gravity * dt
		pt.Vel.X *= damp
		pt.Vel.Y *= damp
		pt.Age += dt
		pt.Alpha = clamp01(1 - pt.Age/pt.Lifetime)
		if pt.Age < pt.Lifetime {
			live = append(live, pt)
		}
	}
	e.particles = live
}

// Draw 按当前透明度绘制所有存活粒子，粒子之间不保证先后顺序。
// glow 为真时先画一圈更大更淡的光晕。
func (e *Engine) Draw(dst Painter, tf Transform, glow bool) {
	for _, pt := range e.particles {
		x, y := tf.Point(pt.Pos.X, pt.Pos.Y)
		r := tf.Length(pt.Size)
		if glow {
			dst.FillCircle(x, y, r*2, fade(pt.Color, pt.Alpha*0.25))
		}
		dst.FillCircle(x, y, r, fade(pt.Color, pt.Alpha))
	}
}

// Len 当前存活粒子数
func (e *Engine) Len() int { return len(e.particles) }

// Particles 返回存活粒子的副本，供测试与调试使用
func (e *Engine) Particles() []Particle {
	out := make([]Particle, len(e.particles))
	copy(out, e.particles)
	return out
}

// Clear 清空全部粒子
func (e *Engine) Clear() { e.particles = e.particles[:0] }

func (e *Engine) between(lo, hi float64) float64 {
	return lo + e.rng.Float64()*(hi-lo)
}

func fade(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * clamp01(alpha)))
	return c
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
