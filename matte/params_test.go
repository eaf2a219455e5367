package matte

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("simple")
	require.NoError(t, err)
	assert.Equal(t, Simple, m)

	m, err = ParseMode(" Advanced ")
	require.NoError(t, err)
	assert.Equal(t, Advanced, m)

	for _, s := range []string{"", "fancy", "gpu"} {
		_, err = ParseMode(s)
		assert.ErrorIs(t, err, ErrInvalidParameter, s)
	}

	var mode Mode
	require.NoError(t, mode.UnmarshalText([]byte("advanced")))
	text, err := mode.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "advanced", string(text))

	_, err = Mode(8).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestParseColorKey(t *testing.T) {
	tests := []struct {
		in      string
		want    ColorKey
		wantErr bool
	}{
		{"255,255,255", ColorKey{255, 255, 255}, false},
		{" 10, 20 ,30", ColorKey{10, 20, 30}, false},
		{"0,0,0", ColorKey{}, false},
		{"256,0,0", ColorKey{}, true},
		{"-1,0,0", ColorKey{}, true},
		{"1,2", ColorKey{}, true},
		{"a,b,c", ColorKey{}, true},
		{"", ColorKey{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColorKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) ColorKey {
	t.Helper()
	k, err := ParseColorKey(s)
	require.NoError(t, err)
	return k
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(p *Params)
		wantErr bool
	}{
		{"默认参数", func(p *Params) {}, false},
		{"容差为 0", func(p *Params) { p.Tolerance = 0 }, false},
		{"容差最大值", func(p *Params) { p.Tolerance = MaxTolerance }, false},
		{"容差为负", func(p *Params) { p.Tolerance = -1 }, true},
		{"容差过大", func(p *Params) { p.Tolerance = MaxTolerance + 1 }, true},
		{"模糊半径为负", func(p *Params) { p.BlurRadius = -0.1 }, true},
		{"模糊半径 NaN", func(p *Params) { p.BlurRadius = math.NaN() }, true},
		{"模糊半径过大", func(p *Params) { p.BlurRadius = MaxBlurRadius + 1 }, true},
		{"未知模式", func(p *Params) { p.Mode = Mode(2) }, true},
		{"迭代次数为负", func(p *Params) { p.RefineIterations = -1 }, true},
		{"迭代次数过大", func(p *Params) { p.RefineIterations = MaxRefineIterations + 1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParams_Iterations(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, DefaultRefineIterations, p.Iterations())
	p.RefineIterations = 5
	assert.Equal(t, 5, p.Iterations())
}

func TestColorAt(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 8, 8))
	img.Set(6, 7, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	k, err := ColorAt(img, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, ColorKey{1, 2, 3}, k)

	_, err = ColorAt(img, 3, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = ColorAt(nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestToNRGBA(t *testing.T) {
	img := solid(2, 2, gray(3))
	got, err := ToNRGBA(img)
	require.NoError(t, err)
	assert.Same(t, img, got)

	_, err = ToNRGBA(&image.NRGBA{Rect: image.Rect(0, 0, 4, 4), Stride: 16, Pix: make([]uint8, 8)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	g := image.NewGray(image.Rect(0, 0, 2, 1))
	g.SetGray(1, 0, color.Gray{Y: 200})
	got, err = ToNRGBA(g)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, got.NRGBAAt(1, 0))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "invalid_input", Kind(fmt.Errorf("x: %w", ErrInvalidInput)))
	assert.Equal(t, "invalid_parameter", Kind(ErrInvalidParameter))
	assert.Equal(t, "processing_failure", Kind(fmt.Errorf("a: %w", fmt.Errorf("b: %w", ErrProcessingFailure))))
	assert.Equal(t, "unknown", Kind(errors.New("boom")))
}

func TestMask_Gray(t *testing.T) {
	m := NewMask(3, 1)
	copy(m.Pix, []float64{0, 0.5, 1})
	g := m.Gray()
	assert.Equal(t, []uint8{0, 128, 255}, g.Pix)
	assert.Equal(t, 0.0, m.At(-1, 0))
}
