package session

import "sync/atomic"

// Metrics 会话层运行指标
type Metrics struct {
	Snapshots       int64 // 处理的 game_state 数
	Collisions      int64 // 检测到的碰撞
	Scores          int64 // 检测到的得分
	IntentsSent     int64 // 成功入队的方向/开始/重置消息
	IntentsRejected int64 // 因未连接或队列满而失败的发送
	InboxDiscarded  int64 // 因收件箱满被丢弃的入站消息或事件
	KeysDiscarded   int64 // 因按键通道满被丢弃的按键
	FrameErrors     int64 // Present 失败的帧
	FrameCount      int64 // 统计的帧数
	TotalFrameNs    int64 // 帧累计耗时（纳秒）
}

func (m *Metrics) IncSnapshot() { atomic.AddInt64(&m.Snapshots, 1) }
func (m *Metrics) IncCollision() { atomic.AddInt64(&m.Collisions, 1) }
func (m *Metrics) IncScore() { atomic.AddInt64(&m.Scores, 1) }
func (m *Metrics) IncSent() { atomic.AddInt64(&m.IntentsSent, 1) }
func (m *Metrics) IncRejected() { atomic.AddInt64(&m.IntentsRejected, 1) }
func (m *Metrics) IncInboxDiscarded() { atomic.AddInt64(&m.InboxDiscarded, 1) }
func (m *Metrics) IncKeysDiscarded() { atomic.AddInt64(&m.KeysDiscarded, 1) }
func (m *Metrics) IncFrameError() { atomic.AddInt64(&m.FrameErrors, 1) }
func (m *Metrics) AddFrame(ns int64) {
	atomic.AddInt64(&m.FrameCount, 1)
	atomic.AddInt64(&m.TotalFrameNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	frames := atomic.LoadInt64(&m.FrameCount)
	total := atomic.LoadInt64(&m.TotalFrameNs)
	var avgMs float64
	if frames > 0 {
		avgMs = float64(total) / float64(frames) / 1e6
	}
	return map[string]any{
		"snapshots":        atomic.LoadInt64(&m.Snapshots),
		"collisions":       atomic.LoadInt64(&m.Collisions),
		"scores":           atomic.LoadInt64(&m.Scores),
		"intents_sent":     atomic.LoadInt64(&m.IntentsSent),
		"intents_rejected": atomic.LoadInt64(&m.IntentsRejected),
		"inbox_discarded":  atomic.LoadInt64(&m.InboxDiscarded),
		"keys_discarded":   atomic.LoadInt64(&m.KeysDiscarded),
		"frame_errors":     atomic.LoadInt64(&m.FrameErrors),
		"frame_count":      frames,
		"avg_frame_ms":     avgMs,
	}
}
