package render

import (
	"fmt"
	"image/color"
	"math"

	"pongview/protocol"
)

const (
	dashLength = 10
	lineWidth  = 2

	// 文字层按 800x600 画布排版，其他尺寸按比例缩放
	designWidth  = 800
	designHeight = 600
	minTextSize  = 8
)

var gameOverShade = color.NRGBA{A: 179} // rgba(0,0,0,0.7)

// drawField 中线（虚线）
func (r *Renderer) drawField() {
	w, h := float64(r.layout.Width), float64(r.layout.Height)
	x := w/2 - lineWidth/2
	for y := 0.0; y < h; y += 2 * dashLength {
		r.surface.FillRect(x, y, lineWidth, math.Min(dashLength, h-y), r.opts.Palette.Foreground)
	}
}

func (r *Renderer) drawPaddle(p *protocol.Paddle, c color.NRGBA) {
	x, y := r.layout.Point(p.X, p.Y)
	w, h := r.layout.Point(p.Width, p.Height)
	r.surface.FillRect(x, y, w, h, c)
}

func (r *Renderer) drawBall(b *protocol.Ball) {
	x, y := r.layout.Point(b.X, b.Y)
	radius := r.layout.Length(b.Radius)
	c := r.opts.Palette.Ball
	if r.opts.Effects.Glow {
		halo := c
		halo.A = 64
		r.surface.FillCircle(x, y, radius*2, halo)
	}
	r.surface.FillCircle(x, y, radius, c)
}

func (r *Renderer) drawScore(p1, p2 int) {
	cx, _ := r.layout.Center()
	_, y := r.offset(0, 20)
	r.surface.DrawText(cx, y, fmt.Sprintf("%d - %d", p1, p2), TextStyle{
		Size: r.textSize(48), Align: AlignCenter, VAlign: VAlignTop, Color: r.opts.Palette.Foreground,
	})
}

// drawWaiting 等待阶段：人数进度；满 2 人显示开始提示与操作说明
func (r *Renderer) drawWaiting(players int) {
	pal := r.opts.Palette
	cx, cy := r.layout.Center()
	center := TextStyle{Align: AlignCenter, VAlign: VAlignMiddle}

	if players < 2 {
		st := center
		st.Size, st.Color = r.textSize(32), pal.UI
		_, dy := r.offset(0, -20)
		r.surface.DrawText(cx, cy+dy, fmt.Sprintf("Waiting for players... (%d/2)", players), st)
		st.Size, st.Color = r.textSize(24), pal.Foreground
		_, dy = r.offset(0, 30)
		r.surface.DrawText(cx, cy+dy, "Need 2 players to start", st)
	} else {
		st := center
		st.Size, st.Color = r.textSize(32), r.pulse(pal.UI)
		r.surface.DrawText(cx, cy, "Press SPACE to start", st)
		st.Size, st.Color = r.textSize(20), pal.Foreground
		dx, dy := r.offset(150, 50)
		r.surface.DrawText(cx-dx, cy+dy, "Player 1 (Green): W/S", st)
		r.surface.DrawText(cx+dx, cy+dy, "Player 2 (Red): Arrow Keys", st)
	}

	// 进度点：已加入的玩家实心，空位半透明
	dx, dy := r.offset(16, 90)
	radius := 6 * r.uiScale()
	for i := 0; i < 2; i++ {
		c := pal.Player1
		if i == 1 {
			c = pal.Player2
		}
		if i >= players {
			c.A = 60
		}
		r.surface.FillCircle(cx+float64(i*2-1)*dx, cy+dy, radius, c)
	}
}

// drawGameOver 半透明遮罩 + 胜者 + 重新开始提示
func (r *Renderer) drawGameOver(winner protocol.Side) {
	pal := r.opts.Palette
	r.surface.FillRect(0, 0, float64(r.layout.Width), float64(r.layout.Height), gameOverShade)

	text, c := "GAME OVER", pal.UI
	switch winner {
	case protocol.SidePlayer1:
		text, c = "PLAYER 1 WINS!", pal.Player1
	case protocol.SidePlayer2:
		text, c = "PLAYER 2 WINS!", pal.Player2
	}
	cx, cy := r.layout.Center()
	_, dy := r.offset(0, 40)
	r.surface.DrawText(cx, cy-dy, text, TextStyle{Size: r.textSize(64), Align: AlignCenter, VAlign: VAlignMiddle, Color: c})
	r.surface.DrawText(cx, cy+dy, "Press SPACE to play again", TextStyle{
		Size: r.textSize(24), Align: AlignCenter, VAlign: VAlignMiddle, Color: r.pulse(pal.UI),
	})
}

// drawStatus 左上角连接指示
func (r *Renderer) drawStatus(st Status) {
	c := r.opts.Palette.Offline
	text := "Server: " + st.Text
	if st.Online {
		c = r.opts.Palette.Online
		if st.Clients > 0 {
			noun := "clients"
			if st.Clients == 1 {
				noun = "client"
			}
			text = fmt.Sprintf("%s (%d %s)", text, st.Clients, noun)
		}
	}
	x, y := r.offset(10, 10)
	r.surface.DrawText(x, y, text, TextStyle{Size: r.textSize(16), Align: AlignLeft, VAlign: VAlignTop, Color: c})
}

// offset 把设计画布上的偏移换算到当前画布。
// 非零的纵向偏移至少为一个文本行，避免小画布上多行文字挤到同一行。
func (r *Renderer) offset(dx, dy float64) (float64, float64) {
	x := dx * float64(r.layout.Width) / designWidth
	y := dy * float64(r.layout.Height) / designHeight
	step := 1.0
	if ls, ok := r.surface.(LineStepper); ok {
		step = ls.LineStep()
	}
	if dy != 0 && math.Abs(y) < step {
		y = math.Copysign(step, dy)
	}
	return x, y
}

func (r *Renderer) uiScale() float64 {
	return math.Min(float64(r.layout.Width)/designWidth, float64(r.layout.Height)/designHeight)
}

func (r *Renderer) textSize(size float64) float64 {
	return math.Max(size*r.uiScale(), minTextSize)
}
