package wsclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pongview/logging"
	"pongview/protocol"
)

var (
	ErrNotConnected  = errors.New("wsclient: not connected")
	ErrSendQueueFull = errors.New("wsclient: send queue full")
)

// Config 连接与重连参数
type Config struct {
	URL                  string
	ReconnectDelay       time.Duration // 固定延迟，不做指数退避
	MaxReconnectAttempts int
	ConnectTimeout       time.Duration
	ReadTimeout          time.Duration // 0 表示不设读超时
	WriteTimeout         time.Duration
	PingPeriod           time.Duration // 0 表示不发 ping
	SendQueue            int
	Greeting             string // 连接建立后发送的 hello 文本，空则不发
}

// Option 可选依赖注入
type Option func(*Manager)

// WithDialer 替换拨号器
func WithDialer(d Dialer) Option { return func(m *Manager) { m.dialer = d } }

// WithScheduler 替换重连定时器
func WithScheduler(s Scheduler) Option { return func(m *Manager) { m.sched = s } }

// WithMetrics 共享外部指标
func WithMetrics(mt *Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// link 一条已建立的物理连接及其写协程
type link struct {
	conn    Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	bytesIn atomic.Int64
}

func (l *link) close() {
	l.once.Do(func() {
		close(l.done)
		_ = l.conn.Close()
	})
}

// Manager 维护到服务端的唯一逻辑连接：
// Idle → Connecting → Open → (Closing) → Closed，非主动断开时按固定延迟重连，
// 连续失败达到 MaxReconnectAttempts 后停在 Closed，等待外部再次 Connect。
//
// 观察者与消息监听器在内部 goroutine 中同步调用：回调内不得调用 Manager 的方法，也不应长时间阻塞。
type Manager struct {
	cfg     Config
	dialer  Dialer
	sched   Scheduler
	metrics *Metrics
	log     *zap.SugaredLogger
	warn    *rate.Limiter

	mu         sync.Mutex
	state      State
	attempts   int
	userClosed bool
	gen        uint64 // 每次发起连接或主动断开时递增，用于识别过期回调
	cancel     context.CancelFunc
	timer      Timer
	link       *link
	listeners  []func(protocol.Message)
	observers  []func(Event)

	emitMu sync.Mutex // 保证事件按状态变化顺序送达
}

// New 创建连接管理器，初始状态 Idle
func New(cfg Config, opts ...Option) *Manager {
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	m := &Manager{
		cfg:     cfg,
		state:   StateIdle,
		metrics: &Metrics{},
		log:     logging.Named("net"),
		warn:    rate.NewLimiter(rate.Every(time.Second), 3),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = NewDialer(cfg.ConnectTimeout)
	}
	if m.sched == nil {
		m.sched = clock{}
	}
	return m
}

// OnMessage 注册入站消息监听器；每条成功解码的消息按到达顺序送给所有监听器
func (m *Manager) OnMessage(fn func(protocol.Message)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// OnEvent 注册状态观察者
func (m *Manager) OnEvent(fn func(Event)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// State 当前状态
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts 当前连续重连次数（连接成功后清零）
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Metrics 连接指标
func (m *Manager) Metrics() *Metrics { return m.metrics }

// Connect 发起一次新的连接；仅在 Idle/Closed 时生效，其余状态为空操作。
// 显式调用会重置重连预算。
func (m *Manager) Connect() {
	m.mu.Lock()
	if st := m.state; st != StateIdle && st != StateClosed {
		m.mu.Unlock()
		m.log.Debugw("connect ignored", "state", st)
		return
	}
	m.userClosed = false
	m.attempts = 0
	m.stopTimerLocked()
	ev := m.startAttemptLocked()
	m.emitUnlock(ev)
}

// Disconnect 用户主动断开：取消拨号与待执行的重连，关闭现有连接，且不触发自动重连
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.userClosed = true
	m.gen++
	m.stopTimerLocked()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	l := m.link
	m.link = nil
	switch m.state {
	case StateIdle, StateClosing, StateClosed:
		m.mu.Unlock()
		return
	case StateOpen:
		m.state = StateClosing
		m.emitUnlock(Event{State: StateClosing})

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
		_ = l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(m.cfg.WriteTimeout))
		l.close()
		m.log.Infow("disconnected", "received", humanize.Bytes(uint64(l.bytesIn.Load())))
		m.mu.Lock()
	}
	m.state = StateClosed
	m.emitUnlock(Event{State: StateClosed})
}

// Send 序列化并入队发送；非 Open 状态返回 ErrNotConnected，不会抛出
func (m *Manager) Send(msg protocol.Message) error {
	b, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateOpen || m.link == nil {
		m.metrics.IncSendRejected()
		return ErrNotConnected
	}
	select {
	case m.link.send <- b:
		m.metrics.IncOut()
		return nil
	default:
		m.metrics.IncSendQueueFull()
		return ErrSendQueueFull
	}
}

// startAttemptLocked 进入 Connecting 并异步拨号，调用方持有 mu
func (m *Manager) startAttemptLocked() Event {
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.state = StateConnecting
	m.log.Infow("connecting", "url", m.cfg.URL, "attempt", m.attempts)
	go m.dial(ctx, gen)
	return Event{State: StateConnecting, Attempt: m.attempts, MaxAttempts: m.cfg.MaxReconnectAttempts}
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	m.metrics.IncDial()
	conn, err := m.dialer.DialContext(ctx, m.cfg.URL)

	m.mu.Lock()
	if gen != m.gen {
		// 已被 Disconnect 或新的 Connect 取代
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if err != nil {
		m.log.Warnw("connect failed", "url", m.cfg.URL, "err", err)
		m.state = StateClosed
		m.emitUnlock(m.scheduleReconnectLocked(err))
		return
	}

	l := &link{
		conn: conn,
		send: make(chan []byte, m.cfg.SendQueue),
		done: make(chan struct{}),
	}
	m.link = l
	m.state = StateOpen
	m.attempts = 0
	m.metrics.IncConnect()
	m.log.Infow("connected", "url", m.cfg.URL)
	m.emitUnlock(Event{State: StateOpen})

	go m.writePump(l)
	if m.cfg.Greeting != "" {
		if err := m.Send(protocol.Hello{Text: m.cfg.Greeting}); err != nil {
			m.log.Debugw("greeting not sent", "err", err)
		}
	}
	m.readPump(l, gen)
}

// scheduleReconnectLocked 在 Closed 状态下决定是否安排重连，调用方持有 mu
func (m *Manager) scheduleReconnectLocked(cause error) Event {
	if m.userClosed {
		return Event{State: StateClosed, Err: cause}
	}
	limit := m.cfg.MaxReconnectAttempts
	if m.attempts >= limit {
		m.metrics.IncExhausted()
		m.log.Errorw("max reconnection attempts reached", "max", limit)
		return Event{State: StateClosed, Exhausted: true, Attempt: m.attempts, MaxAttempts: limit, Err: cause}
	}
	m.attempts++
	m.metrics.IncReconnect()
	gen := m.gen
	delay := m.cfg.ReconnectDelay
	m.timer = m.sched.AfterFunc(delay, func() { m.retry(gen) })
	m.log.Infow("reconnect scheduled", "delay", delay, "attempt", m.attempts, "max", limit)
	return Event{
		State:        StateClosed,
		Reconnecting: true,
		Attempt:      m.attempts,
		MaxAttempts:  limit,
		Delay:        delay,
		Err:          cause,
	}
}

func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.userClosed || m.state != StateClosed {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	ev := m.startAttemptLocked()
	m.emitUnlock(ev)
}

// readPump 读取服务端消息并分发；退出时按关闭是否干净决定是否重连
func (m *Manager) readPump(l *link, gen uint64) {
	defer l.close()
	l.conn.SetReadLimit(1 << 20) // 1MB
	if m.cfg.ReadTimeout > 0 {
		_ = l.conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
		l.conn.SetPongHandler(func(string) error {
			return l.conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
		})
	}

	for {
		_, payload, err := l.conn.ReadMessage()
		if err != nil {
			m.handleClose(l, gen, err)
			return
		}
		if m.cfg.ReadTimeout > 0 {
			_ = l.conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
		}
		l.bytesIn.Add(int64(len(payload)))
		msg, err := protocol.Decode(payload)
		if err != nil {
			m.metrics.IncDecodeFailure()
			if m.warn.Allow() {
				m.log.Warnw("inbound message discarded", "err", err, "size", len(payload))
			}
			continue
		}
		m.metrics.AddIn(len(payload))

		m.mu.Lock()
		listeners := make([]func(protocol.Message), len(m.listeners))
		copy(listeners, m.listeners)
		m.mu.Unlock()
		for _, fn := range listeners {
			fn(msg)
		}
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (m *Manager) writePump(l *link) {
	var ping <-chan time.Time
	if m.cfg.PingPeriod > 0 {
		t := time.NewTicker(m.cfg.PingPeriod)
		defer t.Stop()
		ping = t.C
	}
	for {
		select {
		case <-l.done:
			return
		case msg := <-l.send:
			_ = l.conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
			if err := l.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				m.log.Debugw("write failed", "err", err)
				l.close()
				return
			}
		case <-ping:
			if err := l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.cfg.WriteTimeout)); err != nil {
				l.close()
				return
			}
		}
	}
}

func (m *Manager) handleClose(l *link, gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || m.link != l {
		m.mu.Unlock()
		return
	}
	m.link = nil
	m.state = StateClosed
	clean := cleanClose(err)
	m.log.Infow("connection closed", "clean", clean, "err", err, "received", humanize.Bytes(uint64(l.bytesIn.Load())))
	if clean {
		m.emitUnlock(Event{State: StateClosed, Err: err})
		return
	}
	m.emitUnlock(m.scheduleReconnectLocked(err))
}

// cleanClose 收到对端关闭帧（1006 除外）视为干净关闭，不自动重连
func cleanClose(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code != websocket.CloseAbnormalClosure
	}
	return false
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// emitUnlock 释放 mu 并按状态变化顺序通知观察者。调用方持有 mu。
func (m *Manager) emitUnlock(ev Event) {
	observers := make([]func(Event), len(m.observers))
	copy(observers, m.observers)
	m.emitMu.Lock()
	m.mu.Unlock()
	defer m.emitMu.Unlock()
	for _, fn := range observers {
		fn(ev)
	}
}
