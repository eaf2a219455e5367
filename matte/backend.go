package matte

import (
	"fmt"
	"image"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// Backend 掩码生成、平滑、合成、细化的执行策略。
// serial 与 parallel 对同样的输入给出相同的输出；opencv 仅在 Advanced 模式的个别像素上可能相差。
type Backend interface {
	Name() string
	GenerateMask(img *image.NRGBA, key ColorKey, tolerance int, mode Mode) (*Mask, error)
	Smooth(mask *Mask, blurRadius float64, mode Mode) (*Mask, error)
	Composite(img *image.NRGBA, mask *Mask) (*image.NRGBA, error)
	Refine(img *image.NRGBA, iterations int) (*image.NRGBA, error)
}

// runner 把 [0, height) 的行分给 fn 执行。
// fn 只能读不可变的源缓冲区，写独立的目标缓冲区。
type runner interface {
	rows(height int, fn func(y0, y1 int)) error
}

type serialRunner struct{}

func (serialRunner) rows(height int, fn func(y0, y1 int)) (err error) {
	defer recoverStage(&err)
	fn(0, height)
	return nil
}

type parallelRunner struct {
	workers int
}

func (r parallelRunner) rows(height int, fn func(y0, y1 int)) error {
	bands := r.workers * 4
	if bands > height {
		bands = height
	}
	step := (height + bands - 1) / bands

	var g errgroup.Group
	g.SetLimit(r.workers)
	for y0 := 0; y0 < height; y0 += step {
		y1 := min(y0+step, height)
		g.Go(func() (err error) {
			defer recoverStage(&err)
			fn(y0, y1)
			return nil
		})
	}
	return g.Wait()
}

func recoverStage(err *error) {
	if r := recover(); r != nil {
		Logger().Error("stage panicked", "panic", r, "stack", string(debug.Stack()))
		*err = fmt.Errorf("%w: %v", ErrProcessingFailure, r)
	}
}

// Engine 基于 runner 的 Backend 实现
type Engine struct {
	name string
	run  runner
}

// NewSerialBackend 单线程执行
func NewSerialBackend() *Engine {
	return &Engine{name: "serial", run: serialRunner{}}
}

// NewParallelBackend 按行分块并行执行，workers <= 0 时使用 GOMAXPROCS
func NewParallelBackend(workers int) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{name: "parallel", run: parallelRunner{workers: workers}}
}

// newOpenCVBackend 只在 gocv 构建标签下注册
var newOpenCVBackend func() Backend

// NewBackend 按名字创建 Backend: serial、parallel（默认）或 opencv（需要 -tags gocv）
func NewBackend(name string, workers int) (Backend, error) {
	switch name {
	case "serial":
		return NewSerialBackend(), nil
	case "parallel", "":
		return NewParallelBackend(workers), nil
	case "opencv":
		if newOpenCVBackend == nil {
			return nil, fmt.Errorf("%w: backend %q not compiled in, rebuild with -tags gocv", ErrInvalidParameter, name)
		}
		return newOpenCVBackend(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidParameter, name)
	}
}

func (e *Engine) Name() string {
	return e.name
}
