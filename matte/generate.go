package matte

import (
	"fmt"
	"image"
)

// matchFunc 判断三个通道值是否算作背景
type matchFunc func(c0, c1, c2 uint8) bool

// selectMatcher 选择比较方向。
// 参考色三个分量都小于容差（很暗的颜色）时，减去容差会变成负数，
// 因此改为 "不大于 参考色+容差"；否则为 "不小于 max(参考色-容差, 0)"。
func selectMatcher(key ColorKey, tolerance int) (matchFunc, bool) {
	k := [3]int{int(key.R), int(key.G), int(key.B)}
	if max(k[0], k[1], k[2]) < tolerance {
		hi := [3]int{k[0] + tolerance, k[1] + tolerance, k[2] + tolerance}
		return func(c0, c1, c2 uint8) bool {
			return int(c0) <= hi[0] && int(c1) <= hi[1] && int(c2) <= hi[2]
		}, true
	}
	lo := [3]int{max(k[0]-tolerance, 0), max(k[1]-tolerance, 0), max(k[2]-tolerance, 0)}
	return func(c0, c1, c2 uint8) bool {
		return int(c0) >= lo[0] && int(c1) >= lo[1] && int(c2) >= lo[2]
	}, false
}

// GenerateMask 按参考色生成二值掩码（1 为背景）。
//
// Advanced 模式先把像素转换到 Lab 空间，再用同样的参考色数值作为 Lab 阈值比较，
// 并把 Canny 检测到的边缘像素强制设为前景，防止背景沿物体边界渗入。
func (e *Engine) GenerateMask(img *image.NRGBA, key ColorKey, tolerance int, mode Mode) (*Mask, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if err := validateTolerance(tolerance); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidParameter, int(mode))
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	match, darkKey := selectMatcher(key, tolerance)

	Logger().Debug("generate mask",
		"backend", e.name, "mode", mode.String(), "width", w, "height", h,
		"key", key.String(), "tolerance", tolerance, "dark_key", darkKey)

	mask := NewMask(w, h)
	switch mode {
	case Simple:
		err := e.run.rows(h, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				row := img.Pix[y*img.Stride:]
				out := mask.Pix[y*w:]
				for x := 0; x < w; x++ {
					if match(row[x*4], row[x*4+1], row[x*4+2]) {
						out[x] = 1
					}
				}
			}
		})
		if err != nil {
			return nil, err
		}
	case Advanced:
		lab := make([]uint8, w*h*3)
		if err := e.run.rows(h, func(y0, y1 int) { toLab(img, lab, y0, y1) }); err != nil {
			return nil, fmt.Errorf("lab conversion: %w", err)
		}
		edges, err := detectEdges(img, e.run)
		if err != nil {
			return nil, fmt.Errorf("edge detection: %w", err)
		}
		err = e.run.rows(h, func(y0, y1 int) {
			for i := y0 * w; i < y1*w; i++ {
				if !edges[i] && match(lab[i*3], lab[i*3+1], lab[i*3+2]) {
					mask.Pix[i] = 1
				}
			}
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidParameter, int(mode))
	}
	return mask, nil
}
