// Package term 终端画布：每个字符格上下两个像素，用 ▀ 的前景/背景色表示。
package term

import (
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"pongview/render"
)

const upperHalf = '▀' // ▀

// textCell 叠加在像素之上的文字格
type textCell struct {
	r  rune
	fg color.NRGBA
}

// Surface 将渲染器的像素坐标映射到终端：宽 = 列数，高 = 行数 × 2。
// 只在渲染 goroutine 中使用。
type Surface struct {
	screen tcell.Screen
	cols   int
	rows   int
	pix    []colorful.Color
	text   map[int]textCell
}

var _ render.Surface = (*Surface)(nil)

func New(screen tcell.Screen) *Surface {
	s := &Surface{screen: screen, text: make(map[int]textCell)}
	s.Sync()
	return s
}

// Sync 按屏幕当前尺寸重建像素缓冲；收到 EventResize 后调用
func (s *Surface) Sync() {
	cols, rows := s.screen.Size()
	if cols == s.cols && rows == s.rows && s.pix != nil {
		return
	}
	s.cols, s.rows = cols, rows
	s.pix = make([]colorful.Color, cols*rows*2)
}

func (s *Surface) Size() (int, int) { return s.cols, s.rows * 2 }

// LineStep 一个字符行占两个像素行
func (s *Surface) LineStep() float64 { return 2 }

func (s *Surface) Clear(c color.NRGBA) {
	bg := toColorful(c)
	for i := range s.pix {
		s.pix[i] = bg
	}
	clear(s.text)
}

func (s *Surface) FillRect(x, y, w, h float64, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	x0, y0 := clampInt(int(math.Round(x)), 0, s.cols), clampInt(int(math.Round(y)), 0, s.rows*2)
	x1, y1 := clampInt(int(math.Round(x+w)), 0, s.cols), clampInt(int(math.Round(y+h)), 0, s.rows*2)
	// 细线至少占一个像素
	if x1 == x0 && w > 0 && x0 < s.cols {
		x1 = x0 + 1
	}
	if y1 == y0 && h > 0 && y0 < s.rows*2 {
		y1 = y0 + 1
	}
	src, a := toColorful(c), alpha(c)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			s.blend(px, py, src, a)
		}
	}
}

// FillCircle 以像素中心是否落在圆内判断覆盖；半径不足一个像素时仍点亮圆心
func (s *Surface) FillCircle(cx, cy, r float64, c color.NRGBA) {
	if c.A == 0 || r <= 0 {
		return
	}
	src, a := toColorful(c), alpha(c)
	if r < 0.5 {
		s.blend(int(cx), int(cy), src, a)
		return
	}
	y0, y1 := int(math.Floor(cy-r)), int(math.Ceil(cy+r))
	x0, x1 := int(math.Floor(cx-r)), int(math.Ceil(cx+r))
	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			dx, dy := float64(px)+0.5-cx, float64(py)+0.5-cy
			if dx*dx+dy*dy <= r*r {
				s.blend(px, py, src, a)
			}
		}
	}
}

// DrawText 文字按字符格放置，字号忽略
func (s *Surface) DrawText(x, y float64, text string, st render.TextStyle) {
	runes := []rune(text)
	col := int(math.Round(x))
	if st.Align == render.AlignCenter {
		col -= len(runes) / 2
	}
	row := int(y) / 2
	if row < 0 || row >= s.rows {
		return
	}
	for i, r := range runes {
		c := col + i
		if c < 0 || c >= s.cols {
			continue
		}
		s.text[row*s.cols+c] = textCell{r: r, fg: st.Color}
	}
}

// Present 把像素与文字写入屏幕并刷新
func (s *Surface) Present() error {
	for row := 0; row < s.rows; row++ {
		for col := 0; col < s.cols; col++ {
			top := s.pix[(row*2)*s.cols+col]
			bottom := s.pix[(row*2+1)*s.cols+col]
			if tc, ok := s.text[row*s.cols+col]; ok {
				bg := top.BlendRgb(bottom, 0.5)
				fg := bg.BlendRgb(toColorful(tc.fg), alpha(tc.fg))
				s.screen.SetContent(col, row, tc.r, nil, tcell.StyleDefault.Foreground(tcellColor(fg)).Background(tcellColor(bg)))
				continue
			}
			s.screen.SetContent(col, row, upperHalf, nil, tcell.StyleDefault.Foreground(tcellColor(top)).Background(tcellColor(bottom)))
		}
	}
	s.screen.Show()
	return nil
}

func (s *Surface) blend(px, py int, src colorful.Color, a float64) {
	if px < 0 || py < 0 || px >= s.cols || py >= s.rows*2 {
		return
	}
	i := py*s.cols + px
	if a >= 1 {
		s.pix[i] = src
		return
	}
	s.pix[i] = s.pix[i].BlendRgb(src, a)
}

func toColorful(c color.NRGBA) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func alpha(c color.NRGBA) float64 { return float64(c.A) / 255 }

func tcellColor(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
