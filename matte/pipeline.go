package matte

import (
	"fmt"
	"image"
	"log/slog"
	"time"
)

// Pipeline 颜色键抠图流程：生成掩码 -> 平滑 -> 写入 alpha -> 可选细化。
// 无状态，可被多个 goroutine 同时调用。
type Pipeline struct {
	backend Backend
	logger  *slog.Logger
}

type Option func(*Pipeline)

// WithBackend 指定执行策略，默认并行
func WithBackend(b Backend) Option {
	return func(p *Pipeline) {
		if b != nil {
			p.backend = b
		}
	}
}

// WithLogger 指定该 Pipeline 的 logger，默认使用 SetLogger 设置的包级 logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{backend: NewParallelBackend(0)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Backend() Backend {
	return p.backend
}

// Process 对图像执行完整流程，返回新的 NRGBA 图像。
// 失败时不返回任何部分结果。
func (p *Pipeline) Process(img image.Image, params Params) (*image.NRGBA, error) {
	out, _, err := p.ProcessWithMask(img, params)
	return out, err
}

// ProcessWithMask 同 Process，同时返回写入 alpha 前的平滑掩码
func (p *Pipeline) ProcessWithMask(img image.Image, params Params) (*image.NRGBA, *Mask, error) {
	start := time.Now()
	mask, src, err := p.mask(img, params)
	if err != nil {
		return nil, nil, err
	}

	out, err := p.backend.Composite(src, mask)
	if err != nil {
		return nil, nil, fmt.Errorf("composite: %w", err)
	}
	if params.Refine {
		out, err = p.backend.Refine(out, params.Iterations())
		if err != nil {
			return nil, nil, fmt.Errorf("refine: %w", err)
		}
	}

	p.log().Info("background removed",
		"backend", p.backend.Name(), "mode", params.Mode.String(),
		"width", src.Bounds().Dx(), "height", src.Bounds().Dy(),
		"refine", params.Refine, "elapsed", time.Since(start))
	return out, mask, nil
}

// Mask 只生成并平滑掩码，不写 alpha
func (p *Pipeline) Mask(img image.Image, params Params) (*Mask, error) {
	mask, _, err := p.mask(img, params)
	return mask, err
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return Logger()
}

func (p *Pipeline) mask(img image.Image, params Params) (*Mask, *image.NRGBA, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	src, err := ToNRGBA(img)
	if err != nil {
		return nil, nil, err
	}
	mask, err := p.backend.GenerateMask(src, params.Key, params.Tolerance, params.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("generate mask: %w", err)
	}
	mask, err = p.backend.Smooth(mask, params.BlurRadius, params.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("smooth mask: %w", err)
	}
	return mask, src, nil
}
