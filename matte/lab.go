package matte

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// labPixel sRGB -> CIE L*a*b* (D65)，量化到 8 位：
// L 映射到 0-255，a、b 加 128 偏移
func labPixel(r, g, b uint8) (uint8, uint8, uint8) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	l, a, bb := c.Lab()
	return clampByte(l * 255), clampByte(a*100 + 128), clampByte(bb*100 + 128)
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// toLab 按行转换 [y0, y1)，结果写入 dst（每像素 3 字节）
func toLab(img *image.NRGBA, dst []uint8, y0, y1 int) {
	w := img.Bounds().Dx()
	for y := y0; y < y1; y++ {
		row := img.Pix[y*img.Stride:]
		out := dst[y*w*3:]
		// 相邻像素常常同色，复用上一次的结果
		var lr, lg, lb, l0, l1, l2 uint8
		cached := false
		for x := 0; x < w; x++ {
			r, g, b := row[x*4], row[x*4+1], row[x*4+2]
			if !cached || r != lr || g != lg || b != lb {
				l0, l1, l2 = labPixel(r, g, b)
				lr, lg, lb = r, g, b
				cached = true
			}
			out[x*3], out[x*3+1], out[x*3+2] = l0, l1, l2
		}
	}
}
