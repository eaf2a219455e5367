package matte

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Mask 与图像同尺寸的单通道浮点掩码，1 表示背景，0 表示前景
type Mask struct {
	Width  int
	Height int
	Pix    []float64
}

// NewMask 创建全 0（全前景）掩码
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// At 越界返回 0
// checkMask 检查掩码尺寸与缓冲区一致
func checkMask(m *Mask) error {
	if m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Pix) != m.Width*m.Height {
		return fmt.Errorf("%w: malformed mask", ErrInvalidInput)
	}
	return nil
}

func (m *Mask) At(x, y int) float64 {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

func (m *Mask) set(x, y int, v float64) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

func (m *Mask) Clone() *Mask {
	c := NewMask(m.Width, m.Height)
	copy(c.Pix, m.Pix)
	return c
}

// Gray 转为 8 位灰度图，背景为白色，用于调试输出
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g.SetGray(x, y, color.Gray{Y: unitToByte(m.Pix[y*m.Width+x])})
		}
	}
	return g
}

// unitToByte [0,1] -> round(v*255)，超出范围时截断
func unitToByte(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
