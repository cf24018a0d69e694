package wsclient

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pongview/protocol"
)

func newTestManager(maxAttempts int) (*Manager, *fakeDialer, *manualScheduler, chan Event) {
	d := newFakeDialer()
	s := &manualScheduler{}
	m := New(Config{
		URL:                  "ws://test/ws/game",
		ReconnectDelay:       3 * time.Second,
		MaxReconnectAttempts: maxAttempts,
		Greeting:             "Client connected",
	}, WithDialer(d), WithScheduler(s))
	events := make(chan Event, 64)
	m.OnEvent(func(ev Event) { events <- ev })
	return m, d, s, events
}

func TestSendWhileNotConnected(t *testing.T) {
	m, _, _, _ := newTestManager(2)
	err := m.Send(protocol.StartGame{})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if m.Metrics().SendRejected != 1 {
		t.Errorf("expected rejected send to be counted, got %d", m.Metrics().SendRejected)
	}
	if m.State() != StateIdle {
		t.Errorf("send must not change state, got %v", m.State())
	}
}

func TestOpenSendsGreetingAndFansOut(t *testing.T) {
	m, d, _, events := newTestManager(2)
	conn := newFakeConn()
	d.results <- dialResult{conn: conn}

	var mu sync.Mutex
	var order []string
	got := make(chan protocol.Message, 8)
	m.OnMessage(func(msg protocol.Message) {
		mu.Lock()
		order = append(order, "a")
		mu.Unlock()
		got <- msg
	})
	m.OnMessage(func(msg protocol.Message) {
		mu.Lock()
		order = append(order, "b")
		mu.Unlock()
	})

	m.Connect()
	waitEvent(t, events, isState(StateConnecting))
	waitEvent(t, events, isState(StateOpen))

	select {
	case b := <-conn.wrote:
		if string(b) != `{"type":"hello","data":"Client connected"}` {
			t.Errorf("unexpected greeting %s", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("greeting not written")
	}

	conn.in <- []byte(`{"type":"game_state","data":{"state":"waiting","playerCount":1}}`)
	conn.in <- []byte(`not json at all`)
	conn.in <- []byte(`{"type":"client_count","data":{"count":2}}`)

	first := <-got
	if s, ok := first.(*protocol.Snapshot); !ok || s.PlayerCount != 1 {
		t.Fatalf("first message = %#v", first)
	}
	second := <-got
	if cc, ok := second.(protocol.ClientCount); !ok || cc.Count != 2 {
		t.Fatalf("second message = %#v", second)
	}

	eventually(t, "decode failure counted", func() bool {
		return m.Metrics().Snapshot()["decode_failures"].(int64) == 1
	})
	eventually(t, "both listeners for both messages", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 4
	})
	mu.Lock()
	if order[0] != "a" || order[1] != "b" || order[2] != "a" || order[3] != "b" {
		t.Errorf("listeners should fire in registration order per message, got %v", order)
	}
	mu.Unlock()
	if m.State() != StateOpen {
		t.Errorf("malformed payload must not change state, got %v", m.State())
	}

	if err := m.Send(protocol.PlayerInput{Direction: protocol.DirDown}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case b := <-conn.wrote:
		if string(b) != `{"type":"player_input","data":{"direction":1}}` {
			t.Errorf("unexpected frame %s", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("input not written")
	}
}

func TestConnectIsNoOpWhileConnecting(t *testing.T) {
	m, d, _, events := newTestManager(2)
	m.Connect()
	waitEvent(t, events, isState(StateConnecting))
	m.Connect()
	m.Connect()

	eventually(t, "first dial", func() bool { return d.calls.Load() >= 1 })
	time.Sleep(20 * time.Millisecond)
	if n := d.calls.Load(); n != 1 {
		t.Fatalf("expected a single dial, got %d", n)
	}

	conn := newFakeConn()
	d.results <- dialResult{conn: conn}
	waitEvent(t, events, isState(StateOpen))
	m.Connect()
	time.Sleep(20 * time.Millisecond)
	if n := d.calls.Load(); n != 1 {
		t.Fatalf("connect while open must not dial again, got %d dials", n)
	}
}

func TestReconnectBudgetExhausted(t *testing.T) {
	m, d, s, events := newTestManager(2)
	for i := 0; i < 3; i++ {
		d.results <- dialResult{err: errors.New("connection refused")}
	}

	m.Connect()
	ev := waitEvent(t, events, func(ev Event) bool { return ev.Reconnecting || ev.Exhausted })
	if !ev.Reconnecting || ev.Attempt != 1 || ev.MaxAttempts != 2 {
		t.Fatalf("expected first reconnect scheduled, got %+v", ev)
	}
	if s.LastDelay() != 3*time.Second {
		t.Errorf("expected constant 3s delay, got %v", s.LastDelay())
	}

	if !s.FireNext() {
		t.Fatal("expected a pending reconnect")
	}
	ev = waitEvent(t, events, func(ev Event) bool { return ev.Reconnecting || ev.Exhausted })
	if !ev.Reconnecting || ev.Attempt != 2 {
		t.Fatalf("expected second reconnect scheduled, got %+v", ev)
	}
	if s.LastDelay() != 3*time.Second {
		t.Errorf("backoff must stay constant, got %v", s.LastDelay())
	}

	if !s.FireNext() {
		t.Fatal("expected a pending reconnect")
	}
	ev = waitEvent(t, events, func(ev Event) bool { return ev.Reconnecting || ev.Exhausted })
	if !ev.Exhausted {
		t.Fatalf("expected exhaustion, got %+v", ev)
	}

	if s.Pending() != 0 {
		t.Fatalf("no reconnect may be scheduled after exhaustion, %d pending", s.Pending())
	}
	if m.State() != StateClosed {
		t.Fatalf("expected Closed, got %v", m.State())
	}
	if n := d.calls.Load(); n != 3 {
		t.Fatalf("expected 3 dials, got %d", n)
	}

	// 显式 Connect 重新开始并重置预算
	d.results <- dialResult{conn: newFakeConn()}
	m.Connect()
	waitEvent(t, events, isState(StateOpen))
	if m.Attempts() != 0 {
		t.Errorf("attempts should reset after open, got %d", m.Attempts())
	}
}

func TestUncleanCloseReconnectsAndResetsAttempts(t *testing.T) {
	m, d, s, events := newTestManager(2)
	first := newFakeConn()
	d.results <- dialResult{conn: first}
	m.Connect()
	waitEvent(t, events, isState(StateOpen))

	first.fail <- io.ErrUnexpectedEOF
	ev := waitEvent(t, events, isState(StateClosed))
	if !ev.Reconnecting || ev.Attempt != 1 {
		t.Fatalf("unclean close should schedule reconnect, got %+v", ev)
	}
	if err := m.Send(protocol.StartGame{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("send while closed = %v", err)
	}

	second := newFakeConn()
	d.results <- dialResult{conn: second}
	s.FireNext()
	waitEvent(t, events, isState(StateOpen))
	if m.Attempts() != 0 {
		t.Errorf("attempts = %d after successful reconnect", m.Attempts())
	}

	// 异常关闭码 1006 同样视为非干净关闭
	second.fail <- &websocket.CloseError{Code: websocket.CloseAbnormalClosure}
	ev = waitEvent(t, events, isState(StateClosed))
	if !ev.Reconnecting || ev.Attempt != 1 {
		t.Fatalf("1006 should reconnect with a fresh budget, got %+v", ev)
	}
}

func TestCleanRemoteCloseDoesNotReconnect(t *testing.T) {
	m, d, s, events := newTestManager(2)
	conn := newFakeConn()
	d.results <- dialResult{conn: conn}
	m.Connect()
	waitEvent(t, events, isState(StateOpen))

	conn.fail <- &websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "bye"}
	ev := waitEvent(t, events, isState(StateClosed))
	if ev.Reconnecting || ev.Exhausted {
		t.Fatalf("clean close must not reconnect, got %+v", ev)
	}
	if s.Pending() != 0 {
		t.Fatalf("unexpected pending reconnect")
	}
}

func TestDisconnectWhileConnectingPreventsReconnect(t *testing.T) {
	m, d, s, events := newTestManager(2)
	m.Connect()
	waitEvent(t, events, isState(StateConnecting))
	eventually(t, "dial started", func() bool { return d.calls.Load() == 1 })

	m.Disconnect()
	waitEvent(t, events, isState(StateClosed))

	// 拨号协程因 ctx 取消返回后也不得安排重连
	time.Sleep(50 * time.Millisecond)
	if s.Pending() != 0 {
		t.Fatalf("disconnect while connecting must suppress reconnect, %d pending", s.Pending())
	}
	if m.State() != StateClosed {
		t.Fatalf("expected Closed, got %v", m.State())
	}
	if n := d.calls.Load(); n != 1 {
		t.Fatalf("expected no further dials, got %d", n)
	}
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	m, d, s, events := newTestManager(2)
	d.results <- dialResult{err: errors.New("refused")}
	m.Connect()
	waitEvent(t, events, func(ev Event) bool { return ev.Reconnecting })

	m.Disconnect()
	if s.Pending() != 0 {
		t.Fatalf("pending reconnect should be stopped")
	}
	if s.FireNext() {
		t.Fatal("stopped timer must not fire")
	}
	if n := d.calls.Load(); n != 1 {
		t.Fatalf("expected 1 dial, got %d", n)
	}
}

func TestDisconnectOpenSendsCloseFrame(t *testing.T) {
	m, d, s, events := newTestManager(2)
	conn := newFakeConn()
	d.results <- dialResult{conn: conn}
	m.Connect()
	waitEvent(t, events, isState(StateOpen))

	m.Disconnect()
	waitEvent(t, events, isState(StateClosing))
	ev := waitEvent(t, events, isState(StateClosed))
	if ev.Reconnecting {
		t.Fatalf("explicit disconnect must not reconnect")
	}
	controls := conn.sentControls()
	if len(controls) == 0 || controls[0] != websocket.CloseMessage {
		t.Errorf("expected a close frame, got %v", controls)
	}
	time.Sleep(20 * time.Millisecond)
	if s.Pending() != 0 || m.State() != StateClosed {
		t.Fatalf("state %v pending %d", m.State(), s.Pending())
	}

	// 重复断开是空操作
	m.Disconnect()
	if m.State() != StateClosed {
		t.Fatalf("expected Closed, got %v", m.State())
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateIdle: "idle", StateConnecting: "connecting", StateOpen: "open",
		StateClosing: "closing", StateClosed: "closed", State(42): "unknown",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestEveryObserverSeesEachTransition(t *testing.T) {
	m, d, _, events := newTestManager(2)
	second := make(chan Event, 64)
	m.OnEvent(func(ev Event) { second <- ev })
	d.results <- dialResult{conn: newFakeConn()}

	m.Connect()
	for _, ch := range []chan Event{events, second} {
		waitEvent(t, ch, isState(StateConnecting))
		waitEvent(t, ch, isState(StateOpen))
	}
}
