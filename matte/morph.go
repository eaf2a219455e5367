package matte

import (
	"fmt"
	"image"
)

// Refine 用 3x3 方形结构元素细化 alpha 通道：
// 先开运算（腐蚀再膨胀）iterations 次，再闭运算（膨胀再腐蚀）iterations 次。
// 开运算去掉孤立的小斑点，闭运算填补小孔，顺序不能交换。
// iterations 为 0 时返回副本。
func (e *Engine) Refine(img *image.NRGBA, iterations int) (*image.NRGBA, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if iterations < 0 || iterations > MaxRefineIterations {
		return nil, fmt.Errorf("%w: refine iterations %d out of range 0-%d", ErrInvalidParameter, iterations, MaxRefineIterations)
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	Logger().Debug("refine alpha", "backend", e.name, "iterations", iterations)

	alpha := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			alpha[y*w+x] = img.Pix[y*img.Stride+x*4+3]
		}
	}

	steps := make([]bool, 0, 4*iterations) // true 为腐蚀
	for i := 0; i < iterations; i++ {
		steps = append(steps, true)
	}
	for i := 0; i < iterations; i++ {
		steps = append(steps, false)
	}
	for i := 0; i < iterations; i++ {
		steps = append(steps, false)
	}
	for i := 0; i < iterations; i++ {
		steps = append(steps, true)
	}

	src, dst := alpha, make([]uint8, w*h)
	for _, erode := range steps {
		err := e.run.rows(h, func(y0, y1 int) {
			morphRows(src, dst, w, h, y0, y1, erode)
		})
		if err != nil {
			return nil, fmt.Errorf("morphology: %w", err)
		}
		src, dst = dst, src
	}

	out := cloneNRGBA(img)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x*4+3] = src[y*w+x]
		}
	}
	return out, nil
}

// morphRows 3x3 腐蚀（取最小）或膨胀（取最大），图像外的邻居不参与
func morphRows(src, dst []uint8, w, h, y0, y1 int, erode bool) {
	for y := y0; y < y1; y++ {
		ya, yb := max(y-1, 0), min(y+1, h-1)
		for x := 0; x < w; x++ {
			xa, xb := max(x-1, 0), min(x+1, w-1)
			v := src[y*w+x]
			for ny := ya; ny <= yb; ny++ {
				for nx := xa; nx <= xb; nx++ {
					n := src[ny*w+nx]
					if erode && n < v || !erode && n > v {
						v = n
					}
				}
			}
			dst[y*w+x] = v
		}
	}
}
