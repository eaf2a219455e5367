package matte

import (
	"fmt"
	"image"
)

// Composite 返回新图像：alpha = round((1 - mask) * 255)，RGB 不变。
// 不修改传入的 img。
func (e *Engine) Composite(img *image.NRGBA, mask *Mask) (*image.NRGBA, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if mask == nil || mask.Width != w || mask.Height != h || len(mask.Pix) != w*h {
		return nil, fmt.Errorf("%w: mask does not match %dx%d image", ErrInvalidInput, w, h)
	}

	out := cloneNRGBA(img)
	err := e.run.rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := out.Pix[y*out.Stride:]
			m := mask.Pix[y*w:]
			for x := 0; x < w; x++ {
				row[x*4+3] = unitToByte(1 - m[x])
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
