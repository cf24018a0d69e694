package session

import "pongview/protocol"

// Events 两个相邻快照之间检测出的离散事件
type Events struct {
	Collision bool
	Toward    protocol.Side // 碰撞后球飞向的一侧
	Scored    bool
}

// Diff 比较前后两个快照。任一侧缺少球时不做检测。
//
// 碰撞：vx 的符号（0 单独算一种）发生变化且新速度非零，发球（0 → ±v）同样触发。
// 得分：任一比分发生变化，与是否碰撞无关。
func Diff(prev, cur *protocol.Snapshot) Events {
	var ev Events
	if prev == nil || cur == nil || prev.Ball == nil || cur.Ball == nil {
		return ev
	}
	pv, cv := prev.Ball.VX, cur.Ball.VX
	if cv != 0 && sign(pv) != sign(cv) {
		ev.Collision = true
		ev.Toward = protocol.SidePlayer1
		if cv > 0 {
			ev.Toward = protocol.SidePlayer2
		}
	}
	ev.Scored = cur.ScoreChanged(prev)
	return ev
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
