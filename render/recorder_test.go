package render

import (
	"image/color"
	"strings"
)

type op struct {
	kind       string
	x, y, w, h float64
	r          float64
	text       string
	st         TextStyle
	c          color.NRGBA
}

// recorder 记录每帧的绘制调用
type recorder struct {
	w, h     int
	ops      []op
	presents int
}

func newRecorder(w, h int) *recorder { return &recorder{w: w, h: h} }

func (s *recorder) Size() (int, int) { return s.w, s.h }

func (s *recorder) Clear(c color.NRGBA) {
	s.ops = s.ops[:0]
	s.ops = append(s.ops, op{kind: "clear", c: c})
}

func (s *recorder) FillRect(x, y, w, h float64, c color.NRGBA) {
	s.ops = append(s.ops, op{kind: "rect", x: x, y: y, w: w, h: h, c: c})
}

func (s *recorder) FillCircle(cx, cy, r float64, c color.NRGBA) {
	s.ops = append(s.ops, op{kind: "circle", x: cx, y: cy, r: r, c: c})
}

func (s *recorder) DrawText(x, y float64, text string, st TextStyle) {
	s.ops = append(s.ops, op{kind: "text", x: x, y: y, text: text, st: st, c: st.Color})
}

func (s *recorder) Present() error {
	s.presents++
	return nil
}

func (s *recorder) texts() []string {
	var out []string
	for _, o := range s.ops {
		if o.kind == "text" {
			out = append(out, o.text)
		}
	}
	return out
}

func (s *recorder) findText(sub string) (op, bool) {
	for _, o := range s.ops {
		if o.kind == "text" && strings.Contains(o.text, sub) {
			return o, true
		}
	}
	return op{}, false
}

func (s *recorder) count(kind string) int {
	n := 0
	for _, o := range s.ops {
		if o.kind == kind {
			n++
		}
	}
	return n
}
