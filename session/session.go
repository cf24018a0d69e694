// Package session 组合连接与渲染：接收快照、检测碰撞/得分、驱动每帧绘制、把按键转成意图。
//
// 所有状态只在 Run 所在的 goroutine 中修改；网络回调、按键与管理接口
// 都通过通道把工作投递进来，不直接触碰这些状态。
package session

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pongview/input"
	"pongview/logging"
	"pongview/protocol"
	"pongview/render"
	"pongview/wsclient"
)

var (
	ErrStopped = errors.New("session: stopped")
	ErrInvalid = errors.New("session: invalid effects")
)

// Transport 连接管理器（wsclient.Manager）
type Transport interface {
	Connect()
	Disconnect()
	Send(msg protocol.Message) error
	State() wsclient.State
	OnMessage(fn func(protocol.Message))
	OnEvent(fn func(wsclient.Event))
}

// View 帧渲染器（render.Renderer）
type View interface {
	Render(snap *protocol.Snapshot, st render.Status, now time.Time) error
	Burst(x, y float64, c color.NRGBA, count int)
	SideColor(side protocol.Side) color.NRGBA
	BallColor() color.NRGBA
	Effects() render.Effects
	SetEffects(e render.Effects)
	Reset()
	Frames() int64
	LiveParticles() int64
}

// Sounder 碰撞/得分音效，可为空
type Sounder interface {
	Collision()
	Score()
}

type Options struct {
	FrameInterval   time.Duration
	BurstCount      int
	ScoreBurstCount int
	HoldWindow      time.Duration // 终端无松开事件时的按键保持时长
	Sound           Sounder
}

type keyEvent struct {
	key     input.Key
	release bool
	at      time.Time
}

// Controller 会话控制器
type Controller struct {
	tr      Transport
	view    View
	opts    Options
	keys    *input.Tracker
	metrics *Metrics
	log     *zap.SugaredLogger
	warn    *rate.Limiter

	inbox *inbox
	keyCh chan keyEvent
	ctlCh chan func()

	done     chan struct{}
	stopOnce sync.Once

	// 以下只在 Run 中访问
	prev, cur *protocol.Snapshot
	state     wsclient.State
	status    string
	clients   int

	// 对外发布的只读副本
	pubMu      sync.RWMutex
	pubState   wsclient.State
	pubStatus  string
	pubClients int
	pubEffects render.Effects
}

func New(tr Transport, view View, opts Options) *Controller {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second / 60
	}
	c := &Controller{
		tr:      tr,
		view:    view,
		opts:    opts,
		keys:    input.NewTracker(opts.HoldWindow),
		metrics: &Metrics{},
		log:     logging.Named("session"),
		warn:    rate.NewLimiter(rate.Every(time.Second), 3),
		inbox:   newInbox(256),
		keyCh:   make(chan keyEvent, 64),
		ctlCh:   make(chan func()),
		done:    make(chan struct{}),
		state:   wsclient.StateIdle,
		status:  "Connecting...",
	}
	c.pubEffects = view.Effects()
	c.publish()

	tr.OnMessage(func(m protocol.Message) { c.post(m) })
	tr.OnEvent(func(ev wsclient.Event) { c.post(ev) })
	return c
}

// post 网络回调入口：不阻塞，收件箱满时丢弃游戏消息
func (c *Controller) post(v any) {
	if !c.inbox.push(v) {
		c.metrics.IncInboxDiscarded()
	}
}

// Metrics 会话指标
func (c *Controller) Metrics() *Metrics { return c.metrics }

// Done 会话结束后关闭
func (c *Controller) Done() <-chan struct{} { return c.done }

// Run 连接服务器并运行事件循环，直到 ctx 结束或 Stop
func (c *Controller) Run(ctx context.Context) error {
	defer c.Stop()
	c.tr.Connect()

	ticker := time.NewTicker(c.opts.FrameInterval)
	defer ticker.Stop()
	c.log.Infof("session started: frame interval %s", c.opts.FrameInterval)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("session context done")
			return nil
		case <-c.done:
			return nil
		case <-c.inbox.ready:
			for _, v := range c.inbox.drain() {
				c.dispatch(v)
			}
		case k := <-c.keyCh:
			c.handleKey(k)
		case fn := <-c.ctlCh:
			fn()
		case now := <-ticker.C:
			c.frame(now)
		}
	}
}

// Stop 结束循环并显式断开（不触发自动重连）；可重复调用
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.tr.Disconnect()
		c.log.Info("session stopped")
	})
}

// Press 投递按键按下
func (c *Controller) Press(k input.Key, at time.Time) { c.postKey(keyEvent{key: k, at: at}) }

// Release 投递按键松开（终端不会报告，窗口环境可用）
func (c *Controller) Release(k input.Key, at time.Time) {
	c.postKey(keyEvent{key: k, release: true, at: at})
}

func (c *Controller) postKey(k keyEvent) {
	select {
	case c.keyCh <- k:
	default:
		c.metrics.IncKeysDiscarded()
	}
}

// Do 在事件循环中执行 fn 并等待其完成
func (c *Controller) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case c.ctlCh <- wrapped:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// Effects 当前视觉开关
func (c *Controller) Effects() render.Effects {
	c.pubMu.RLock()
	defer c.pubMu.RUnlock()
	return c.pubEffects
}

// UpdateEffects 热更新视觉开关，在事件循环中生效
func (c *Controller) UpdateEffects(ctx context.Context, e render.Effects) error {
	if e.TrailLength < 0 || e.TrailCount < 0 {
		return fmt.Errorf("%w: negative trail length or count", ErrInvalid)
	}
	return c.Do(ctx, func() {
		c.view.SetEffects(e)
		c.pubMu.Lock()
		c.pubEffects = c.view.Effects()
		c.pubMu.Unlock()
		c.log.Infof("effects updated: trail=%v glow=%v particles=%v trailLength=%d trailCount=%d",
			e.Trail, e.Glow, e.Particles, e.TrailLength, e.TrailCount)
	})
}

// Stats 连接状态与渲染概况，供 /metrics 输出
func (c *Controller) Stats() map[string]any {
	c.pubMu.RLock()
	defer c.pubMu.RUnlock()
	out := c.metrics.Snapshot()
	out["state"] = c.pubState.String()
	out["status"] = c.pubStatus
	out["clients"] = c.pubClients
	out["frames"] = c.view.Frames()
	out["particles"] = c.view.LiveParticles()
	return out
}

func (c *Controller) publish() {
	c.pubMu.Lock()
	c.pubState, c.pubStatus, c.pubClients = c.state, c.status, c.clients
	c.pubMu.Unlock()
}

func (c *Controller) dispatch(v any) {
	switch v := v.(type) {
	case wsclient.Event:
		c.handleEvent(v)
	case *protocol.Snapshot:
		c.applySnapshot(v)
	case protocol.ClientCount:
		c.clients = v.Count
		c.publish()
	default:
		c.log.Debugf("ignored inbound %T", v)
	}
}

func (c *Controller) handleEvent(ev wsclient.Event) {
	c.state = ev.State
	c.status = statusText(ev)
	switch ev.State {
	case wsclient.StateOpen:
		// 新连接从头开始：旧快照不参与比较
		c.prev, c.cur = nil, nil
		c.view.Reset()
		c.keys.Reset()
	case wsclient.StateClosed:
		c.clients = 0
		c.keys.Reset()
		if ev.Exhausted {
			c.log.Warnf("reconnect budget exhausted after %d attempts", ev.Attempt)
		}
	}
	c.publish()
}

// applySnapshot 替换当前快照并与上一帧比较，生成碰撞/得分粒子
func (c *Controller) applySnapshot(s *protocol.Snapshot) {
	c.prev, c.cur = c.cur, s
	c.metrics.IncSnapshot()

	ev := Diff(c.prev, c.cur)
	if ev.Collision {
		c.metrics.IncCollision()
		c.view.Burst(s.Ball.X, s.Ball.Y, c.view.SideColor(ev.Toward), c.opts.BurstCount)
		if c.opts.Sound != nil {
			c.opts.Sound.Collision()
		}
	}
	if ev.Scored {
		c.metrics.IncScore()
		c.view.Burst(s.Ball.X, s.Ball.Y, c.view.BallColor(), c.opts.ScoreBurstCount)
		if c.opts.Sound != nil {
			c.opts.Sound.Score()
		}
		c.log.Infof("score %d - %d", s.Player1Score, s.Player2Score)
	}
}

func (c *Controller) handleKey(k keyEvent) {
	if k.release {
		c.keys.Release(k.key)
		c.updateDirection(k.at)
		return
	}
	switch k.key {
	case input.KeyUp, input.KeyDown:
		c.keys.Press(k.key, k.at)
		c.updateDirection(k.at)
	case input.KeyAction:
		c.action()
	case input.KeyReconnect:
		switch c.tr.State() {
		case wsclient.StateIdle, wsclient.StateClosed:
			c.log.Info("manual reconnect")
			c.tr.Connect()
		}
	case input.KeyQuit:
		c.Stop()
	}
}

// action 等待中发送开始，结束后发送重置，其余状态忽略
func (c *Controller) action() {
	if c.cur == nil {
		return
	}
	var msg protocol.Message
	switch c.cur.State {
	case protocol.PhaseWaiting:
		msg = protocol.StartGame{}
	case protocol.PhaseGameOver:
		msg = protocol.ResetGame{}
	default:
		return
	}
	c.send(msg)
}

// updateDirection 方向变化且已连接时发送
func (c *Controller) updateDirection(now time.Time) {
	dir, changed := c.keys.Update(now)
	if !changed || c.tr.State() != wsclient.StateOpen {
		return
	}
	c.send(protocol.PlayerInput{Direction: dir})
}

func (c *Controller) send(msg protocol.Message) {
	if err := c.tr.Send(msg); err != nil {
		c.metrics.IncRejected()
		c.log.Debugf("send %s: %v", msg.MessageType(), err)
		return
	}
	c.metrics.IncSent()
}

func (c *Controller) frame(now time.Time) {
	c.updateDirection(now)
	start := time.Now()
	st := render.Status{Text: c.status, Online: c.state == wsclient.StateOpen, Clients: c.clients}
	if err := c.view.Render(c.cur, st, now); err != nil {
		c.metrics.IncFrameError()
		if c.warn.Allow() {
			c.log.Warnf("render frame: %v", err)
		}
	}
	c.metrics.AddFrame(time.Since(start).Nanoseconds())
}
