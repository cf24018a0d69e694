package wsclient

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn 是 Manager 使用的 websocket 连接能力子集，*websocket.Conn 直接满足
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer 建立一条到 url 的连接；ctx 取消时应尽快返回
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// Timer 可取消的延迟回调
type Timer interface {
	Stop() bool
}

// Scheduler 提供延迟回调（重连退避），测试中替换为手动触发
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wsDialer struct {
	d *websocket.Dialer
}

// NewDialer 基于 gorilla/websocket 的拨号器
func NewDialer(handshakeTimeout time.Duration) Dialer {
	return &wsDialer{d: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}}
}

func (w *wsDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := w.d.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type clock struct{}

func (clock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
