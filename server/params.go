package server

import (
	"github.com/chaos-io/bgremover/matte"
)

// ProcessRequest 前端提交的处理参数，字段缺省时使用默认值。
// 取值范围与前端滑块一致：容差 0-100，模糊半径 0-5。
type ProcessRequest struct {
	Tolerance  *int     `json:"tolerance" binding:"omitempty,min=0,max=100"`
	BlurRadius *float64 `json:"blur_radius" binding:"omitempty,min=0,max=5"`
	Mode       string   `json:"mode" binding:"omitempty,oneof=simple advanced"`
	Refine     bool     `json:"refine"`
	Iterations int      `json:"iterations" binding:"omitempty,min=1,max=32"`
	// Color "r,g,b"
	Color string `json:"color" binding:"required"`
}

func (r *ProcessRequest) Params() (matte.Params, error) {
	p := matte.DefaultParams()
	key, err := matte.ParseColorKey(r.Color)
	if err != nil {
		return p, err
	}
	p.Key = key
	if r.Tolerance != nil {
		p.Tolerance = *r.Tolerance
	}
	if r.BlurRadius != nil {
		p.BlurRadius = *r.BlurRadius
	}
	if r.Mode != "" {
		if p.Mode, err = matte.ParseMode(r.Mode); err != nil {
			return p, err
		}
	}
	p.Refine = r.Refine
	p.RefineIterations = r.Iterations
	return p, p.Validate()
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type uploadResponse struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Status string `json:"status"`
}
