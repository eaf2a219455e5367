//go:build gocv

package matte

import (
	"fmt"
	"image"
	"runtime"

	"gocv.io/x/gocv"
)

func init() {
	newOpenCVBackend = func() Backend { return NewOpenCVBackend() }
}

// OpenCVBackend 用 OpenCV 实现颜色转换、Canny、高斯模糊、自适应阈值和形态学运算。
// 需要 cgo 和系统安装的 OpenCV，使用 -tags gocv 构建。
// alpha 合成是逐像素算术，沿用纯 Go 实现。
type OpenCVBackend struct {
	engine *Engine
}

func NewOpenCVBackend() *OpenCVBackend {
	return &OpenCVBackend{engine: NewSerialBackend()}
}

func (b *OpenCVBackend) Name() string {
	return "opencv"
}

// matFromBytes 复制 buf 得到独立的 Mat
func matFromBytes(rows, cols int, typ gocv.MatType, buf []byte) (gocv.Mat, error) {
	m, err := gocv.NewMatFromBytes(rows, cols, typ, buf)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: new mat: %v", ErrProcessingFailure, err)
	}
	defer m.Close()
	c := m.Clone()
	runtime.KeepAlive(buf)
	return c, nil
}

func rgbMat(img *image.NRGBA) (gocv.Mat, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	buf := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			copy(buf[(y*w+x)*3:], row[x*4:x*4+3])
		}
	}
	return matFromBytes(h, w, gocv.MatTypeCV8UC3, buf)
}

// keyRange 与 selectMatcher 相同的比较方向，转换为 InRange 的闭区间
func keyRange(key ColorKey, tolerance int) (lb, ub gocv.Scalar) {
	k := [3]int{int(key.R), int(key.G), int(key.B)}
	t := float64(tolerance)
	if max(k[0], k[1], k[2]) < tolerance {
		return gocv.NewScalar(0, 0, 0, 0),
			gocv.NewScalar(float64(k[0])+t, float64(k[1])+t, float64(k[2])+t, 0)
	}
	lo := func(v int) float64 { return float64(max(v-tolerance, 0)) }
	return gocv.NewScalar(lo(k[0]), lo(k[1]), lo(k[2]), 0), gocv.NewScalar(255, 255, 255, 0)
}

func maskFromMat(m gocv.Mat, w, h int) (*Mask, error) {
	data, err := m.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: read mat: %v", ErrProcessingFailure, err)
	}
	if len(data) != w*h {
		return nil, fmt.Errorf("%w: mat has %d bytes, want %d", ErrProcessingFailure, len(data), w*h)
	}
	mask := NewMask(w, h)
	for i, v := range data {
		if v != 0 {
			mask.Pix[i] = 1
		}
	}
	return mask, nil
}

func (b *OpenCVBackend) GenerateMask(img *image.NRGBA, key ColorKey, tolerance int, mode Mode) (mask *Mask, err error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if err := validateTolerance(tolerance); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidParameter, int(mode))
	}
	defer recoverStage(&err)

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	Logger().Debug("generate mask", "backend", b.Name(), "mode", mode.String(),
		"width", w, "height", h, "key", key.String(), "tolerance", tolerance)

	rgb, err := rgbMat(img)
	if err != nil {
		return nil, err
	}
	defer rgb.Close()

	lb, ub := keyRange(key, tolerance)
	bin := gocv.NewMat()
	defer bin.Close()

	switch mode {
	case Simple:
		gocv.InRangeWithScalar(rgb, lb, ub, &bin)
	case Advanced:
		lab := gocv.NewMat()
		defer lab.Close()
		gocv.CvtColor(rgb, &lab, gocv.ColorRGBToLab)
		inRange := gocv.NewMat()
		defer inRange.Close()
		gocv.InRangeWithScalar(lab, lb, ub, &inRange)

		// 边缘像素强制为前景
		edges := gocv.NewMat()
		defer edges.Close()
		gocv.Canny(rgb, &edges, 100, 200)
		notEdges := gocv.NewMat()
		defer notEdges.Close()
		gocv.BitwiseNot(edges, &notEdges)
		gocv.BitwiseAnd(inRange, notEdges, &bin)
	}
	return maskFromMat(bin, w, h)
}

func (b *OpenCVBackend) Smooth(mask *Mask, blurRadius float64, mode Mode) (out *Mask, err error) {
	if err := checkMask(mask); err != nil {
		return nil, err
	}
	if err := validateBlurRadius(blurRadius); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidParameter, int(mode))
	}
	defer recoverStage(&err)

	Logger().Debug("smooth mask", "backend", b.Name(), "mode", mode.String(), "sigma", blurRadius)

	w, h := mask.Width, mask.Height
	out = mask.Clone()
	if blurRadius > 0 {
		src := gocv.NewMatWithSize(h, w, gocv.MatTypeCV64FC1)
		defer src.Close()
		data, err := src.DataPtrFloat64()
		if err != nil {
			return nil, fmt.Errorf("%w: gaussian blur: %v", ErrProcessingFailure, err)
		}
		copy(data, mask.Pix)

		dst := gocv.NewMat()
		defer dst.Close()
		k := 2*int(4*blurRadius+0.5) + 1
		gocv.GaussianBlur(src, &dst, image.Pt(k, k), blurRadius, blurRadius, gocv.BorderReflect)
		blurred, err := dst.DataPtrFloat64()
		if err != nil {
			return nil, fmt.Errorf("%w: gaussian blur: %v", ErrProcessingFailure, err)
		}
		copy(out.Pix, blurred)
	}
	if mode == Advanced {
		quant := make([]byte, w*h)
		for i, v := range out.Pix {
			quant[i] = uint8(min(max(v*255, 0), 255))
		}
		src, err := matFromBytes(h, w, gocv.MatTypeCV8UC1, quant)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		dst := gocv.NewMat()
		defer dst.Close()
		gocv.AdaptiveThreshold(src, &dst, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, adaptiveBlock, adaptiveC)
		return maskFromMat(dst, w, h)
	}
	return out, nil
}

func (b *OpenCVBackend) Composite(img *image.NRGBA, mask *Mask) (*image.NRGBA, error) {
	return b.engine.Composite(img, mask)
}

// Refine 3x3 矩形结构元素，开运算 iterations 次后闭运算 iterations 次
func (b *OpenCVBackend) Refine(img *image.NRGBA, iterations int) (out *image.NRGBA, err error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if iterations < 0 || iterations > MaxRefineIterations {
		return nil, fmt.Errorf("%w: refine iterations %d out of range 0-%d", ErrInvalidParameter, iterations, MaxRefineIterations)
	}
	if iterations == 0 {
		return cloneNRGBA(img), nil
	}
	defer recoverStage(&err)

	Logger().Debug("refine alpha", "backend", b.Name(), "iterations", iterations)

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	alpha := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			alpha[y*w+x] = img.Pix[y*img.Stride+x*4+3]
		}
	}
	src, err := matFromBytes(h, w, gocv.MatTypeCV8UC1, alpha)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyExWithParams(src, &opened, gocv.MorphOpen, kernel, iterations, gocv.BorderConstant)
	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyExWithParams(opened, &closed, gocv.MorphClose, kernel, iterations, gocv.BorderConstant)

	refined, err := closed.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: morphology: %v", ErrProcessingFailure, err)
	}
	out = cloneNRGBA(img)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x*4+3] = refined[y*w+x]
		}
	}
	return out, nil
}
