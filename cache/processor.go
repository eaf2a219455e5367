package cache

import (
	"image"

	"github.com/chaos-io/bgremover/matte"
)

// Processor 带缓存的 Pipeline，相同图像和参数只计算一次
type Processor struct {
	Pipeline *matte.Pipeline
	Cache    *ResultCache
}

func NewProcessor(p *matte.Pipeline, c *ResultCache) *Processor {
	if p == nil {
		p = matte.New()
	}
	return &Processor{Pipeline: p, Cache: c}
}

// Process 与 matte.Pipeline.Process 语义相同，结果可能来自缓存，调用方不能修改
func (p *Processor) Process(img image.Image, params matte.Params) (*image.NRGBA, error) {
	src, err := matte.ToNRGBA(img)
	if err != nil {
		return nil, err
	}
	if p.Cache == nil {
		return p.Pipeline.Process(src, params)
	}
	// 参数错误不进入缓存
	if err := params.Validate(); err != nil {
		return nil, err
	}
	key := Key{Image: HashImage(src), Params: params}
	return p.Cache.GetOrCompute(key, func() (*image.NRGBA, error) {
		return p.Pipeline.Process(src, params)
	})
}

// ProcessHashed 已知图像哈希时跳过重新计算哈希
func (p *Processor) ProcessHashed(src *image.NRGBA, hash string, params matte.Params) (*image.NRGBA, error) {
	if p.Cache == nil {
		return p.Pipeline.Process(src, params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return p.Cache.GetOrCompute(Key{Image: hash, Params: params}, func() (*image.NRGBA, error) {
		return p.Pipeline.Process(src, params)
	})
}
