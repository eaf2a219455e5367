package matte

import (
	"fmt"
	"math"
)

const (
	// 自适应阈值的邻域大小和偏移常数
	adaptiveBlock = 11
	adaptiveC     = 2
)

// Smooth 对掩码做高斯模糊（标准差为 blurRadius），得到 [0,1] 的柔和边缘。
// blurRadius 为 0 时原样返回副本。
// Advanced 模式在模糊后再做局部自适应二值化，边缘更锐利但不再保留抗锯齿。
func (e *Engine) Smooth(mask *Mask, blurRadius float64, mode Mode) (*Mask, error) {
	if err := checkMask(mask); err != nil {
		return nil, err
	}
	if err := validateBlurRadius(blurRadius); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidParameter, int(mode))
	}

	Logger().Debug("smooth mask", "backend", e.name, "mode", mode.String(), "sigma", blurRadius)

	out := mask.Clone()
	if blurRadius > 0 {
		blurred, err := e.gaussian(mask, blurRadius)
		if err != nil {
			return nil, fmt.Errorf("gaussian blur: %w", err)
		}
		out = blurred
	}
	if mode == Advanced {
		bin, err := e.adaptiveThreshold(out)
		if err != nil {
			return nil, fmt.Errorf("adaptive threshold: %w", err)
		}
		out = bin
	}
	return out, nil
}

// gaussianKernel 一维高斯核，半宽 int(4*sigma+0.5)，归一化
func gaussianKernel(sigma float64, radius int) []float64 {
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// reflectIndex 镜像边界 (d c b a | a b c d | d c b a)
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

// adaptiveSigma 与 getGaussianKernel(11, 0) 一致: 0.3*((ksize-1)*0.5-1)+0.8 = 2.0
func adaptiveSigma() float64 {
	return 0.3*(float64(adaptiveBlock-1)*0.5-1) + 0.8
}

func clampIndex(i, n int) int {
	return min(max(i, 0), n-1)
}

// gaussian 可分离高斯模糊：先水平后垂直，每一遍读旧缓冲区写新缓冲区
func (e *Engine) gaussian(src *Mask, sigma float64) (*Mask, error) {
	radius := int(4*sigma + 0.5)
	kernel := gaussianKernel(sigma, radius)
	w, h := src.Width, src.Height

	tmp := NewMask(w, h)
	err := e.run.rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := src.Pix[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				var sum float64
				for k, wt := range kernel {
					sum += row[reflectIndex(x+k-radius, w)] * wt
				}
				tmp.Pix[y*w+x] = sum
			}
		}
	})
	if err != nil {
		return nil, err
	}

	dst := NewMask(w, h)
	err = e.run.rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				var sum float64
				for k, wt := range kernel {
					sum += tmp.Pix[reflectIndex(y+k-radius, h)*w+x] * wt
				}
				dst.Pix[y*w+x] = sum
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// adaptiveThreshold 8 位量化后与 11x11 高斯加权局部均值比较：
// value > mean - C 为 1，否则为 0。边界复制。
func (e *Engine) adaptiveThreshold(src *Mask) (*Mask, error) {
	w, h := src.Width, src.Height
	radius := adaptiveBlock / 2
	kernel := gaussianKernel(adaptiveSigma(), radius)

	quant := make([]uint8, w*h)
	for i, v := range src.Pix {
		v = math.Min(math.Max(v*255, 0), 255)
		quant[i] = uint8(v)
	}

	tmp := make([]float64, w*h)
	err := e.run.rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				var sum float64
				for k, wt := range kernel {
					sum += float64(quant[y*w+clampIndex(x+k-radius, w)]) * wt
				}
				tmp[y*w+x] = sum
			}
		}
	})
	if err != nil {
		return nil, err
	}

	dst := NewMask(w, h)
	err = e.run.rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				var sum float64
				for k, wt := range kernel {
					sum += tmp[clampIndex(y+k-radius, h)*w+x] * wt
				}
				mean := int(clampByte(sum))
				if int(quant[y*w+x])-mean > -adaptiveC {
					dst.Pix[y*w+x] = 1
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}
