package matte

import "errors"

// 错误类型，调用方用 errors.Is 判断
var (
	// ErrInvalidInput 图像为空或缓冲区不合法
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidParameter 容差/模糊半径越界、未知模式等
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrProcessingFailure 颜色空间转换、模糊或形态学运算内部失败
	ErrProcessingFailure = errors.New("processing failure")
)

// Kind 返回错误类型的名字，用于 HTTP / WebSocket 响应
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, ErrProcessingFailure):
		return "processing_failure"
	default:
		return "unknown"
	}
}
