package render

import "math"

// Layout 逻辑场地到画布像素的映射。x、y 分别按各自比例缩放，
// 半径按两者较小值缩放，避免圆被拉成椭圆。
type Layout struct {
	Width, Height  int
	ScaleX, ScaleY float64
}

// NewLayout 按画布与场地尺寸计算缩放
func NewLayout(width, height int, fieldW, fieldH float64) Layout {
	l := Layout{Width: width, Height: height}
	if fieldW > 0 {
		l.ScaleX = float64(width) / fieldW
	}
	if fieldH > 0 {
		l.ScaleY = float64(height) / fieldH
	}
	return l
}

// Point 逻辑坐标 → 画布坐标
func (l Layout) Point(x, y float64) (float64, float64) {
	return x * l.ScaleX, y * l.ScaleY
}

// Length 逻辑长度（半径、粒子尺寸）→ 画布长度
func (l Layout) Length(r float64) float64 {
	return r * math.Min(l.ScaleX, l.ScaleY)
}

// Center 画布中心
func (l Layout) Center() (float64, float64) {
	return float64(l.Width) / 2, float64(l.Height) / 2
}
