// Package raster 内存 RGBA 画布：无终端时渲染，/frame.png 从这里取最新帧。
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"pongview/render"
)

// Surface 双缓冲：绘制写入 back，Present 时拷贝到 front。
// 绘制方法只在渲染 goroutine 调用；Snapshot/WritePNG 可并发调用。
type Surface struct {
	back *image.RGBA
	ras  *vector.Rasterizer

	font  *opentype.Font
	faces map[float64]font.Face

	mu    sync.RWMutex
	front *image.RGBA
	seq   uint64
}

var _ render.Surface = (*Surface)(nil)

func New(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid size %dx%d", width, height)
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: parse font: %w", err)
	}
	s := &Surface{font: f, faces: make(map[float64]font.Face)}
	s.Resize(width, height)
	return s, nil
}

// Resize 更换画布尺寸，下一帧生效
func (s *Surface) Resize(width, height int) {
	s.back = image.NewRGBA(image.Rect(0, 0, width, height))
	s.ras = vector.NewRasterizer(width, height)
	s.ras.DrawOp = draw.Over
}

func (s *Surface) Size() (int, int) {
	b := s.back.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Surface) Clear(c color.NRGBA) {
	draw.Draw(s.back, s.back.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (s *Surface) FillRect(x, y, w, h float64, c color.NRGBA) {
	r := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	).Intersect(s.back.Bounds())
	if r.Empty() || c.A == 0 {
		return
	}
	draw.Draw(s.back, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// FillCircle 以多边形逼近圆，边数随半径增加
func (s *Surface) FillCircle(cx, cy, r float64, c color.NRGBA) {
	if r <= 0 || c.A == 0 {
		return
	}
	n := int(math.Ceil(r * 2))
	if n < 12 {
		n = 12
	}
	if n > 96 {
		n = 96
	}
	s.ras.Reset(s.back.Bounds().Dx(), s.back.Bounds().Dy())
	s.ras.DrawOp = draw.Over
	s.ras.MoveTo(float32(cx+r), float32(cy))
	for i := 1; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		s.ras.LineTo(float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a)))
	}
	s.ras.ClosePath()
	s.ras.Draw(s.back, s.back.Bounds(), image.NewUniform(c), image.Point{})
}

func (s *Surface) DrawText(x, y float64, text string, st render.TextStyle) {
	if text == "" || st.Color.A == 0 {
		return
	}
	face, err := s.face(st.Size)
	if err != nil {
		return
	}
	d := font.Drawer{Dst: s.back, Src: image.NewUniform(st.Color), Face: face}
	m := face.Metrics()

	px := x
	if st.Align == render.AlignCenter {
		px -= float64(d.MeasureString(text).Ceil()) / 2
	}
	base := y + float64(m.Ascent.Ceil())
	if st.VAlign == render.VAlignMiddle {
		base = y + float64(m.Ascent.Ceil()-m.Descent.Ceil())/2
	}
	d.Dot = fixed.P(int(math.Round(px)), int(math.Round(base)))
	d.DrawString(text)
}

// face 按字号缓存字体
func (s *Surface) face(size float64) (font.Face, error) {
	if size <= 0 {
		size = 16
	}
	if f, ok := s.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(s.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	s.faces[size] = f
	return f, nil
}

// Present 发布当前帧
func (s *Surface) Present() error {
	s.mu.Lock()
	if s.front == nil || s.front.Bounds() != s.back.Bounds() {
		s.front = image.NewRGBA(s.back.Bounds())
	}
	copy(s.front.Pix, s.back.Pix)
	s.seq++
	s.mu.Unlock()
	return nil
}

// Snapshot 最近一次发布的帧（副本）与帧序号；尚未发布时返回 nil
func (s *Surface) Snapshot() (*image.RGBA, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.front == nil {
		return nil, 0
	}
	img := image.NewRGBA(s.front.Bounds())
	copy(img.Pix, s.front.Pix)
	return img, s.seq
}

// ErrNoFrame 尚未发布任何帧
var ErrNoFrame = errors.New("raster: no frame presented yet")

// WritePNG 将最近一帧编码为 PNG
func (s *Surface) WritePNG(w io.Writer) error {
	img, _ := s.Snapshot()
	if img == nil {
		return ErrNoFrame
	}
	return png.Encode(w, img)
}
