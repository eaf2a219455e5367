package matte

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withAlpha(w, h int, alpha func(x, y int) uint8) *image.NRGBA {
	img := solid(w, h, gray(90))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x*4+3] = alpha(x, y)
		}
	}
	return img
}

func TestRefine_FillsIsolatedTransparentPixel(t *testing.T) {
	for _, e := range backends() {
		for _, it := range []int{1, 3} {
			img := withAlpha(9, 9, func(x, y int) uint8 {
				if x == 4 && y == 4 {
					return 0
				}
				return 255
			})
			out, err := e.Refine(img, it)
			require.NoError(t, err)
			assert.Equal(t, uint8(255), alphaAt(out, 4, 4), "%s iterations=%d", e.Name(), it)
			assert.Equal(t, uint8(0), alphaAt(img, 4, 4), "input must not be modified")
		}
	}
}

func TestRefine_RemovesIsolatedOpaquePixel(t *testing.T) {
	img := withAlpha(9, 9, func(x, y int) uint8 {
		if x == 4 && y == 4 {
			return 255
		}
		return 0
	})
	out, err := NewSerialBackend().Refine(img, 3)
	require.NoError(t, err)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			assert.Equal(t, uint8(0), alphaAt(out, x, y))
		}
	}
}

func TestRefine_OpeningBeforeClosing(t *testing.T) {
	// 单像素宽的竖条纹：先开后闭全部透明，先闭后开全部不透明
	const w, h = 6, 6
	img := withAlpha(w, h, func(x, y int) uint8 {
		if x%2 == 0 {
			return 255
		}
		return 0
	})
	out, err := NewSerialBackend().Refine(img, 1)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			assert.Equal(t, uint8(0), alphaAt(out, x, y))
		}
	}

	alpha := make([]uint8, w*h)
	for i := range alpha {
		alpha[i] = img.Pix[i*4+3]
	}
	buf := make([]uint8, w*h)
	for _, erode := range []bool{false, true, true, false} {
		morphRows(alpha, buf, w, h, 0, h, erode)
		alpha, buf = buf, alpha
	}
	for _, v := range alpha {
		assert.Equal(t, uint8(255), v, "reversed order gives a different result")
	}
}

func TestRefine_KeepsColorAndHandlesZeroIterations(t *testing.T) {
	img := noisy(5, 4, 11)
	out, err := NewParallelBackend(2).Refine(img, 0)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, out.Pix)

	out, err = NewParallelBackend(2).Refine(img, 2)
	require.NoError(t, err)
	for i := 0; i < len(img.Pix); i += 4 {
		assert.Equal(t, img.Pix[i:i+3], out.Pix[i:i+3])
	}
}

func TestRefine_Errors(t *testing.T) {
	e := NewSerialBackend()
	_, err := e.Refine(solid(2, 2, gray(0)), -1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = e.Refine(nil, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
