//go:build gocv

package matte

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agreement(a, b []uint8) float64 {
	same := 0
	for i := range a {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(len(a))
}

func TestNewBackend_OpenCV(t *testing.T) {
	b, err := NewBackend("opencv", 0)
	require.NoError(t, err)
	assert.Equal(t, "opencv", b.Name())
}

func TestOpenCVBackend_MatchesSerial(t *testing.T) {
	cv, serial := NewOpenCVBackend(), NewSerialBackend()
	img := noisy(37, 23, 11)

	for _, tt := range []struct {
		key ColorKey
		tol int
	}{
		{ColorKey{230, 230, 230}, 30},
		{ColorKey{10, 10, 10}, 40},
		{ColorKey{255, 255, 255}, 0},
	} {
		want, err := serial.GenerateMask(img, tt.key, tt.tol, Simple)
		require.NoError(t, err)
		got, err := cv.GenerateMask(img, tt.key, tt.tol, Simple)
		require.NoError(t, err)
		assert.Equal(t, want.Pix, got.Pix, "key %v tolerance %d", tt.key, tt.tol)
	}

	mask, err := serial.GenerateMask(img, ColorKey{230, 230, 230}, 30, Simple)
	require.NoError(t, err)
	for _, sigma := range []float64{0, 0.7, 1.5, 3} {
		want, err := serial.Smooth(mask, sigma, Simple)
		require.NoError(t, err)
		got, err := cv.Smooth(mask, sigma, Simple)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want.Pix, got.Pix, 1e-9, "sigma %v", sigma)
	}

	for _, n := range []int{0, 1, 3} {
		want, err := serial.Refine(img, n)
		require.NoError(t, err)
		got, err := cv.Refine(img, n)
		require.NoError(t, err)
		assert.Equal(t, want.Pix, got.Pix, "iterations %d", n)
	}
}

func TestOpenCVBackend_AdvancedAgreesWithSerial(t *testing.T) {
	img := noisy(40, 40, 21)
	params := Params{Key: ColorKey{230, 128, 128}, Tolerance: 30, BlurRadius: 1, Mode: Advanced, Refine: true}

	want, err := New(WithBackend(NewSerialBackend())).Process(img, params)
	require.NoError(t, err)
	got, err := New(WithBackend(NewOpenCVBackend())).Process(img, params)
	require.NoError(t, err)

	// OpenCV 的 8 位 Lab 查表和定点高斯与浮点实现在个别像素上相差 1
	alpha := func(p []uint8) []uint8 {
		a := make([]uint8, 0, len(p)/4)
		for i := 3; i < len(p); i += 4 {
			a = append(a, p[i])
		}
		return a
	}
	assert.GreaterOrEqual(t, agreement(alpha(want.Pix), alpha(got.Pix)), 0.95)
}

func TestOpenCVBackend_Errors(t *testing.T) {
	cv := NewOpenCVBackend()
	_, err := cv.GenerateMask(nil, ColorKey{}, 0, Simple)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = cv.GenerateMask(solid(2, 2, gray(0)), ColorKey{}, 300, Simple)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = cv.Smooth(&Mask{Width: 2, Height: 2}, 1, Simple)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = cv.Refine(solid(2, 2, gray(0)), -1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
