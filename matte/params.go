package matte

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mode 选择生成掩码使用的颜色空间和边缘策略
type Mode int

const (
	// Simple RGB 逐通道阈值
	Simple Mode = iota
	// Advanced Lab 空间阈值 + 边缘抑制 + 自适应二值化
	Advanced
)

const (
	DefaultTolerance        = 30
	DefaultBlurRadius       = 2.0
	DefaultRefineIterations = 3

	MaxTolerance        = 255
	MaxBlurRadius       = 50.0
	MaxRefineIterations = 32
)

func (m Mode) String() string {
	switch m {
	case Simple:
		return "simple"
	case Advanced:
		return "advanced"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid 是否为已知模式
func (m Mode) Valid() bool {
	return m == Simple || m == Advanced
}

// ParseMode 解析 "simple" / "advanced"，大小写不敏感
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return Simple, nil
	case "advanced":
		return Advanced, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q, choose simple or advanced", ErrInvalidParameter, s)
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidParameter, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ColorKey 要去除的背景参考色
type ColorKey struct {
	R, G, B uint8
}

func (k ColorKey) String() string {
	return fmt.Sprintf("%d,%d,%d", k.R, k.G, k.B)
}

// ParseColorKey 解析 "r,g,b"，每个分量 0-255
func ParseColorKey(s string) (ColorKey, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return ColorKey{}, fmt.Errorf("%w: color %q must be r,g,b", ErrInvalidParameter, s)
	}
	var c [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return ColorKey{}, fmt.Errorf("%w: color component %q out of range 0-255", ErrInvalidParameter, p)
		}
		c[i] = uint8(v)
	}
	return ColorKey{R: c[0], G: c[1], B: c[2]}, nil
}

// Params 一次处理调用的全部参数。可比较，可直接用作缓存 key。
type Params struct {
	Key        ColorKey
	Tolerance  int
	BlurRadius float64
	Mode       Mode
	Refine     bool
	// RefineIterations 为 0 时使用 DefaultRefineIterations
	RefineIterations int
}

// DefaultParams 白色背景、容差 30、模糊半径 2、simple 模式、不做边缘细化
func DefaultParams() Params {
	return Params{
		Key:        ColorKey{R: 255, G: 255, B: 255},
		Tolerance:  DefaultTolerance,
		BlurRadius: DefaultBlurRadius,
		Mode:       Simple,
	}
}

// Validate 检查参数范围
func (p Params) Validate() error {
	if err := validateTolerance(p.Tolerance); err != nil {
		return err
	}
	if err := validateBlurRadius(p.BlurRadius); err != nil {
		return err
	}
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidParameter, int(p.Mode))
	}
	if p.RefineIterations < 0 || p.RefineIterations > MaxRefineIterations {
		return fmt.Errorf("%w: refine iterations %d out of range 0-%d", ErrInvalidParameter, p.RefineIterations, MaxRefineIterations)
	}
	return nil
}

// Iterations 实际使用的细化迭代次数
func (p Params) Iterations() int {
	if p.RefineIterations == 0 {
		return DefaultRefineIterations
	}
	return p.RefineIterations
}

func validateTolerance(t int) error {
	if t < 0 || t > MaxTolerance {
		return fmt.Errorf("%w: tolerance %d out of range 0-%d", ErrInvalidParameter, t, MaxTolerance)
	}
	return nil
}

func validateBlurRadius(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 || r > MaxBlurRadius {
		return fmt.Errorf("%w: blur radius %v out of range 0-%v", ErrInvalidParameter, r, MaxBlurRadius)
	}
	return nil
}
