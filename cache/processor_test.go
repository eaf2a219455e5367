package cache

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/bgremover/matte"
)

func TestProcessor_Process(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	p := NewProcessor(matte.New(matte.WithBackend(matte.NewSerialBackend())), c)

	img := fill(6, 6, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	params := matte.DefaultParams()

	first, err := p.Process(img, params)
	require.NoError(t, err)
	second, err := p.Process(img, params)
	require.NoError(t, err)
	assert.Same(t, first, second)

	want, err := matte.New().Process(img, params)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, first.Pix)

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, 1, st.Size)

	// 同一图像不同参数是不同条目
	params.Tolerance = 0
	third, err := p.Process(img, params)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, c.Len())
}

func TestProcessor_InvalidParamsNotCached(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	p := NewProcessor(nil, c)

	img := fill(2, 2, color.NRGBA{A: 255})
	_, err = p.Process(img, matte.Params{Tolerance: -1})
	assert.ErrorIs(t, err, matte.ErrInvalidParameter)

	_, err = p.Process(nil, matte.DefaultParams())
	assert.ErrorIs(t, err, matte.ErrInvalidInput)

	_, err = p.Process(image.NewNRGBA(image.Rect(0, 0, 0, 0)), matte.DefaultParams())
	assert.ErrorIs(t, err, matte.ErrInvalidInput)
	assert.Equal(t, 0, c.Len())
}

func TestProcessor_WithoutCache(t *testing.T) {
	p := NewProcessor(nil, nil)
	img := fill(3, 3, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	out, err := p.Process(img, matte.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.NRGBAAt(1, 1).A)

	out2, err := p.ProcessHashed(img, HashImage(img), matte.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, out.Pix, out2.Pix)
}
