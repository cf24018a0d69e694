package render

import "pongview/particle"

// Trail 固定容量的球位置历史：新位置入队，超出容量时淘汰最旧的
type Trail struct {
	buf   []particle.Vec
	start int
	n     int
}

func NewTrail(capacity int) *Trail {
	if capacity < 0 {
		capacity = 0
	}
	return &Trail{buf: make([]particle.Vec, capacity)}
}

// Push 追加最新位置
func (t *Trail) Push(v particle.Vec) {
	if len(t.buf) == 0 {
		return
	}
	if t.n < len(t.buf) {
		t.buf[(t.start+t.n)%len(t.buf)] = v
		t.n++
		return
	}
	t.buf[t.start] = v
	t.start = (t.start + 1) % len(t.buf)
}

// Points 从旧到新返回当前历史
func (t *Trail) Points() []particle.Vec {
	out := make([]particle.Vec, t.n)
	for i := 0; i < t.n; i++ {
		out[i] = t.buf[(t.start+i)%len(t.buf)]
	}
	return out
}

func (t *Trail) Len() int { return t.n }

func (t *Trail) Cap() int { return len(t.buf) }

func (t *Trail) Reset() {
	t.start, t.n = 0, 0
}
