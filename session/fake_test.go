package session

import (
	"image/color"
	"sync"
	"testing"
	"time"

	"pongview/protocol"
	"pongview/render"
	"pongview/wsclient"
)

type fakeTransport struct {
	mu          sync.Mutex
	state       wsclient.State
	sent        []protocol.Message
	connects    int
	disconnects int
	sendErr     error
	onMsg       []func(protocol.Message)
	onEvent     []func(wsclient.Event)
}

func (f *fakeTransport) Connect() {
	f.mu.Lock()
	f.connects++
	f.mu.Unlock()
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.state = wsclient.StateClosed
	f.mu.Unlock()
}

func (f *fakeTransport) Send(m protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != wsclient.StateOpen {
		return wsclient.ErrNotConnected
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeTransport) State() wsclient.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) setState(s wsclient.State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeTransport) OnMessage(fn func(protocol.Message)) { f.onMsg = append(f.onMsg, fn) }

func (f *fakeTransport) OnEvent(fn func(wsclient.Event)) { f.onEvent = append(f.onEvent, fn) }

func (f *fakeTransport) deliver(m protocol.Message) {
	for _, fn := range f.onMsg {
		fn(m)
	}
}

func (f *fakeTransport) emit(ev wsclient.Event) {
	f.setState(ev.State)
	for _, fn := range f.onEvent {
		fn(ev)
	}
}

func (f *fakeTransport) messages() []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Message(nil), f.sent...)
}

func (f *fakeTransport) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects
}

type burst struct {
	x, y  float64
	c     color.NRGBA
	count int
}

type frame struct {
	snap   *protocol.Snapshot
	status render.Status
}

var (
	p1Color   = color.NRGBA{G: 255, A: 255}
	p2Color   = color.NRGBA{R: 255, A: 255}
	ballColor = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
)

type fakeView struct {
	mu      sync.Mutex
	bursts  []burst
	frames  []frame
	effects render.Effects
	resets  int
}

func (v *fakeView) Render(s *protocol.Snapshot, st render.Status, _ time.Time) error {
	v.mu.Lock()
	v.frames = append(v.frames, frame{s, st})
	v.mu.Unlock()
	return nil
}

func (v *fakeView) Burst(x, y float64, c color.NRGBA, count int) {
	v.mu.Lock()
	v.bursts = append(v.bursts, burst{x, y, c, count})
	v.mu.Unlock()
}

func (v *fakeView) SideColor(s protocol.Side) color.NRGBA {
	if s == protocol.SidePlayer1 {
		return p1Color
	}
	return p2Color
}

func (v *fakeView) BallColor() color.NRGBA { return ballColor }

func (v *fakeView) Effects() render.Effects { return v.effects }

func (v *fakeView) SetEffects(e render.Effects) { v.effects = e }

func (v *fakeView) Reset() { v.resets++ }

func (v *fakeView) Frames() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return int64(len(v.frames))
}

func (v *fakeView) LiveParticles() int64 { return 0 }

func (v *fakeView) lastFrame() (frame, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.frames) == 0 {
		return frame{}, false
	}
	return v.frames[len(v.frames)-1], true
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
