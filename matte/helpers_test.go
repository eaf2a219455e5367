package matte

import (
	"image"
	"image/color"
	"math/rand/v2"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func gray(v uint8) color.NRGBA {
	return color.NRGBA{R: v, G: v, B: v, A: 255}
}

// noisy 固定种子的伪随机图像，半数像素接近白色
func noisy(w, h int, seed uint64) *image.NRGBA {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		if r.IntN(2) == 0 {
			img.Pix[i] = uint8(220 + r.IntN(36))
			img.Pix[i+1] = uint8(220 + r.IntN(36))
			img.Pix[i+2] = uint8(220 + r.IntN(36))
		} else {
			img.Pix[i] = uint8(r.IntN(256))
			img.Pix[i+1] = uint8(r.IntN(256))
			img.Pix[i+2] = uint8(r.IntN(256))
		}
		img.Pix[i+3] = uint8(r.IntN(256))
	}
	return img
}

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.Pix[y*img.Stride+x*4+3]
}

func backends() []*Engine {
	return []*Engine{NewSerialBackend(), NewParallelBackend(3)}
}
