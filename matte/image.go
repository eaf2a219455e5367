package matte

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ToNRGBA 把任意图像转为原点在 (0,0) 的 8 位非预乘 RGBA。
// 已经是这种格式时直接返回，不复制。
func ToNRGBA(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrInvalidInput, b.Dx(), b.Dy())
	}
	if nrgba, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		if len(nrgba.Pix) < nrgba.Stride*(b.Dy()-1)+b.Dx()*4 {
			return nil, fmt.Errorf("%w: pixel buffer too short", ErrInvalidInput)
		}
		return nrgba, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}

// ColorAt 取 (x, y) 处像素颜色作为背景参考色，坐标相对于图像 Bounds().Min
func ColorAt(img image.Image, x, y int) (ColorKey, error) {
	if img == nil {
		return ColorKey{}, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	b := img.Bounds()
	p := image.Pt(b.Min.X+x, b.Min.Y+y)
	if !p.In(b) {
		return ColorKey{}, fmt.Errorf("%w: point (%d,%d) outside %dx%d image", ErrInvalidParameter, x, y, b.Dx(), b.Dy())
	}
	c := color.NRGBAModel.Convert(img.At(p.X, p.Y)).(color.NRGBA)
	return ColorKey{R: c.R, G: c.G, B: c.B}, nil
}

func checkImage(img *image.NRGBA) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("%w: empty image %dx%d", ErrInvalidInput, b.Dx(), b.Dy())
	}
	if b.Min != (image.Point{}) {
		return fmt.Errorf("%w: image origin must be (0,0), got %v", ErrInvalidInput, b.Min)
	}
	return nil
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	w := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], img.Pix[y*img.Stride:y*img.Stride+w])
	}
	return dst
}
