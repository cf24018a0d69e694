// Package input 把按键事件折算成球拍方向与开始/重置等意图。
package input

import (
	"time"

	"pongview/protocol"
)

// Key 游戏关心的逻辑按键
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyAction    // 开始 / 重新开始
	KeyReconnect // 手动重连
	KeyQuit
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyAction:
		return "action"
	case KeyReconnect:
		return "reconnect"
	case KeyQuit:
		return "quit"
	}
	return "none"
}

// Tracker 记录上/下键是否按住，并按“变化才上报”输出方向。
//
// hold > 0 时用于不报告松开事件的终端：按下后保持 hold 时长，
// 期间再次按下（自动重复）则顺延；hold == 0 时必须显式 Release。
// 非并发安全，只在事件循环中使用。
type Tracker struct {
	hold time.Duration

	up, down         bool
	upUntil, dnUntil time.Time

	current protocol.Direction
}

func NewTracker(hold time.Duration) *Tracker {
	return &Tracker{hold: hold}
}

// Press 按下；只处理方向键，其他键忽略
func (t *Tracker) Press(k Key, now time.Time) {
	switch k {
	case KeyUp:
		t.up, t.upUntil = true, now.Add(t.hold)
	case KeyDown:
		t.down, t.dnUntil = true, now.Add(t.hold)
	}
}

// Release 松开
func (t *Tracker) Release(k Key) {
	switch k {
	case KeyUp:
		t.up = false
	case KeyDown:
		t.down = false
	}
}

// Held 当前方向（不区分是否已上报）
func (t *Tracker) Held(now time.Time) protocol.Direction {
	t.expire(now)
	switch {
	case t.up && !t.down:
		return protocol.DirUp
	case t.down && !t.up:
		return protocol.DirDown
	}
	return protocol.DirNone
}

// Update 计算当前方向；与上次结果不同时返回 changed=true
func (t *Tracker) Update(now time.Time) (dir protocol.Direction, changed bool) {
	dir = t.Held(now)
	if dir == t.current {
		return dir, false
	}
	t.current = dir
	return dir, true
}

// Current 最近一次 Update 得到的方向
func (t *Tracker) Current() protocol.Direction { return t.current }

// Reset 松开所有键并把已上报方向归零
func (t *Tracker) Reset() {
	t.up, t.down = false, false
	t.current = protocol.DirNone
}

func (t *Tracker) expire(now time.Time) {
	if t.hold <= 0 {
		return
	}
	if t.up && !now.Before(t.upUntil) {
		t.up = false
	}
	if t.down && !now.Before(t.dnUntil) {
		t.down = false
	}
}
