package session

import (
	"sync"

	"pongview/wsclient"
)

// inbox 网络回调到事件循环的有序队列。
// 游戏消息超过上限时丢弃；连接事件从不丢弃，否则状态指示会停在旧状态。
type inbox struct {
	mu    sync.Mutex
	items []any // protocol.Message 或 wsclient.Event，保持到达顺序
	msgs  int
	limit int
	ready chan struct{}
}

func newInbox(limit int) *inbox {
	return &inbox{limit: limit, ready: make(chan struct{}, 1)}
}

// push 不阻塞；返回 false 表示消息被丢弃
func (q *inbox) push(v any) bool {
	_, isEvent := v.(wsclient.Event)
	q.mu.Lock()
	if !isEvent && q.msgs >= q.limit {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	if !isEvent {
		q.msgs++
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// drain 取走当前全部条目
func (q *inbox) drain() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items, q.msgs = nil, 0
	return items
}
