// Package sfx 碰撞与得分的提示音。音频设备不可用时静默降级。
package sfx

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"pongview/logging"
)

const sampleRate = beep.SampleRate(44100)

// Tone 一次提示音
type Tone struct {
	Freq     float64
	Duration time.Duration
}

var (
	CollisionTone = Tone{Freq: 880, Duration: 50 * time.Millisecond}
	ScoreTone     = Tone{Freq: 440, Duration: 150 * time.Millisecond}
)

// Player 未启用或初始化失败时所有方法为空操作
type Player struct {
	ready bool
}

// New enabled 为 false 时不触碰音频设备
func New(enabled bool) *Player {
	p := &Player{}
	if !enabled {
		return p
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		// 非致命，没有声音也能玩
		logging.Named("sfx").Warnf("audio initialization failed: %v", err)
		return p
	}
	p.ready = true
	return p
}

func (p *Player) Enabled() bool { return p.ready }

func (p *Player) Collision() { p.play(CollisionTone) }

func (p *Player) Score() { p.play(ScoreTone) }

func (p *Player) play(t Tone) {
	if !p.ready {
		return
	}
	s, err := stream(t)
	if err != nil {
		return
	}
	speaker.Play(s)
}

// stream 截取指定时长的正弦波
func stream(t Tone) (beep.Streamer, error) {
	sine, err := generators.SineTone(sampleRate, t.Freq)
	if err != nil {
		return nil, err
	}
	return beep.Take(sampleRate.N(t.Duration), sine), nil
}

// Close 关闭音频输出
func (p *Player) Close() {
	if p.ready {
		speaker.Close()
		p.ready = false
	}
}
