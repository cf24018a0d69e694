package wsclient

import (
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Metrics 记录连接运行期的关键指标（用于 /metrics 与调试）
type Metrics struct {
	DialAttempts   int64 // 拨号次数（含重连）
	Connects       int64 // 成功建立连接次数
	Reconnects     int64 // 已安排的自动重连次数
	Exhausted      int64 // 重连预算耗尽次数
	MessagesIn     int64 // 成功解码并分发的入站消息
	DecodeFailures int64 // 无法解码而被丢弃的入站帧
	BytesIn        int64 // 入站字节数
	MessagesOut    int64 // 入队发送的消息
	SendRejected   int64 // 未连接时被拒绝的发送
	SendQueueFull  int64 // 因发送队列满被拒绝的发送
}

func (m *Metrics) IncDial() { atomic.AddInt64(&m.DialAttempts, 1) }
func (m *Metrics) IncConnect() { atomic.AddInt64(&m.Connects, 1) }
func (m *Metrics) IncReconnect() { atomic.AddInt64(&m.Reconnects, 1) }
func (m *Metrics) IncExhausted() { atomic.AddInt64(&m.Exhausted, 1) }
func (m *Metrics) IncDecodeFailure() { atomic.AddInt64(&m.DecodeFailures, 1) }
func (m *Metrics) IncSendRejected() { atomic.AddInt64(&m.SendRejected, 1) }
func (m *Metrics) IncSendQueueFull() { atomic.AddInt64(&m.SendQueueFull, 1) }
func (m *Metrics) IncOut() { atomic.AddInt64(&m.MessagesOut, 1) }
func (m *Metrics) AddIn(n int) {
	atomic.AddInt64(&m.MessagesIn, 1)
	atomic.AddInt64(&m.BytesIn, int64(n))
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	bytesIn := atomic.LoadInt64(&m.BytesIn)
	return map[string]any{
		"dial_attempts":   atomic.LoadInt64(&m.DialAttempts),
		"connects":        atomic.LoadInt64(&m.Connects),
		"reconnects":      atomic.LoadInt64(&m.Reconnects),
		"exhausted":       atomic.LoadInt64(&m.Exhausted),
		"messages_in":     atomic.LoadInt64(&m.MessagesIn),
		"decode_failures": atomic.LoadInt64(&m.DecodeFailures),
		"bytes_in":        bytesIn,
		"bytes_in_human":  humanize.Bytes(uint64(bytesIn)),
		"messages_out":    atomic.LoadInt64(&m.MessagesOut),
		"send_rejected":   atomic.LoadInt64(&m.SendRejected),
		"send_queue_full": atomic.LoadInt64(&m.SendQueueFull),
	}
}
