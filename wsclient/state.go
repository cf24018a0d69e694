package wsclient

import "time"

// State 连接生命周期状态
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Event 状态变化通知。Reconnecting 表示已安排第 Attempt 次重连，
// Exhausted 表示重连预算耗尽，之后只有显式 Connect 才会再次拨号。
type Event struct {
	State        State
	Reconnecting bool
	Exhausted    bool
	Attempt      int
	MaxAttempts  int
	Delay        time.Duration
	Err          error
}
