package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/chaos-io/bgremover/matte"
)

// DefaultSize 默认缓存条目数
const DefaultSize = 100

// Key 图像内容哈希 + 参数，两者都相同才命中
type Key struct {
	Image  string
	Params matte.Params
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%v", k.Image, k.Params)
}

// HashImage 对尺寸和像素计算 SHA-256，返回十六进制字符串。
// 只读取 Rect 内的像素，Stride 中的填充不参与计算。
func HashImage(img *image.NRGBA) string {
	h := sha256.New()
	w, ht := img.Rect.Dx(), img.Rect.Dy()
	var dim [16]byte
	binary.LittleEndian.PutUint64(dim[:8], uint64(w))
	binary.LittleEndian.PutUint64(dim[8:], uint64(ht))
	h.Write(dim[:])
	for y := 0; y < ht; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		h.Write(img.Pix[off : off+w*4])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Stats 缓存统计
type Stats struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// ResultCache 有界 LRU 结果缓存。返回的图像被多个调用方共享，不可修改。
type ResultCache struct {
	lru      *lru.Cache[Key, *image.NRGBA]
	group    singleflight.Group
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New size <= 0 时使用 DefaultSize
func New(size int) (*ResultCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[Key, *image.NRGBA](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &ResultCache{lru: l, capacity: size}, nil
}

// Get 查找缓存，更新命中统计
func (c *ResultCache) Get(key Key) (*image.NRGBA, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Add 写入缓存
func (c *ResultCache) Add(key Key, img *image.NRGBA) {
	if c.lru.Add(key, img) {
		c.evictions.Add(1)
	}
}

// GetOrCompute 未命中时调用 fn 计算并写入缓存。
// 同一 key 的并发调用只执行一次 fn；fn 返回错误时不缓存。
func (c *ResultCache) GetOrCompute(key Key, fn func() (*image.NRGBA, error)) (*image.NRGBA, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// 等待期间可能已被其他调用写入
		if v, ok := c.lru.Peek(key); ok {
			return v, nil
		}
		img, err := fn()
		if err != nil {
			return nil, err
		}
		c.Add(key, img)
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*image.NRGBA), nil
}

// Purge 清空缓存，统计计数保留
func (c *ResultCache) Purge() {
	c.lru.Purge()
}

func (c *ResultCache) Len() int {
	return c.lru.Len()
}

func (c *ResultCache) Stats() Stats {
	return Stats{
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
