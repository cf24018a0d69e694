package render

import "image/color"

// Align 文本水平对齐
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// VAlign 文本垂直对齐：y 为文本顶部或中线
type VAlign int

const (
	VAlignTop VAlign = iota
	VAlignMiddle
)

// TextStyle 文本样式；Size 为像素字号，终端画布可忽略
type TextStyle struct {
	Size   float64
	Align  Align
	VAlign VAlign
	Color  color.NRGBA
}

// Surface 可绘制的矩形画布，尺寸由外部决定（窗口、终端、内存图像）。
// 所有坐标为画布像素；颜色的 A 分量参与混合。
type Surface interface {
	Size() (w, h int)
	Clear(c color.NRGBA)
	FillRect(x, y, w, h float64, c color.NRGBA)
	FillCircle(cx, cy, r float64, c color.NRGBA)
	DrawText(x, y float64, text string, st TextStyle)
	// Present 一帧绘制完成后提交
	Present() error
}

// LineStepper 可选：文本行之间的最小像素间距。
// 字符单元画布（终端）实现它，保证相邻文字行不重叠。
type LineStepper interface {
	LineStep() float64
}
