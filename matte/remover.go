package matte

import "image"

// BackgroundRemover 去除图像背景
type BackgroundRemover interface {
	Remove(img image.Image) (image.Image, error)
}

// ColorKeyRemover 用固定参数的 Pipeline 实现 BackgroundRemover
type ColorKeyRemover struct {
	Pipeline *Pipeline
	Params   Params
}

func NewColorKeyRemover(p *Pipeline, params Params) *ColorKeyRemover {
	if p == nil {
		p = New()
	}
	return &ColorKeyRemover{Pipeline: p, Params: params}
}

func (r *ColorKeyRemover) Remove(img image.Image) (image.Image, error) {
	out, err := r.Pipeline.Process(img, r.Params)
	if err != nil {
		return nil, err
	}
	return out, nil
}
