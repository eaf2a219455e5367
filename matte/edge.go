package matte

import "image"

const (
	cannyLow  = 100
	cannyHigh = 200

	// tan(22.5°) << 15
	tan22 = 13573
)

const (
	edgeNone uint8 = iota
	edgeWeak
	edgeStrong
)

// detectEdges Canny 边缘检测。
// 每个像素取 Sobel 梯度 L1 幅值最大的颜色通道，边界复制，
// 非极大值抑制后按 low/high 双阈值做 8 邻域滞后连接。
func detectEdges(img *image.NRGBA, run runner) ([]bool, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	dx := make([]int32, w*h)
	dy := make([]int32, w*h)
	mag := make([]int32, w*h)

	err := run.rows(h, func(y0, y1 int) {
		sobel(img, dx, dy, mag, y0, y1)
	})
	if err != nil {
		return nil, err
	}

	state := make([]uint8, w*h)
	err = run.rows(h, func(y0, y1 int) {
		suppress(dx, dy, mag, state, w, h, y0, y1)
	})
	if err != nil {
		return nil, err
	}

	return hysteresis(state, w, h), nil
}

func sobel(img *image.NRGBA, dx, dy, mag []int32, y0, y1 int) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	px := func(x, y, c int) int32 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return int32(img.Pix[y*img.Stride+x*4+c])
	}
	for y := y0; y < y1; y++ {
		for x := 0; x < w; x++ {
			var bx, by, bm int32
			for c := 0; c < 3; c++ {
				gx := px(x+1, y-1, c) + 2*px(x+1, y, c) + px(x+1, y+1, c) -
					px(x-1, y-1, c) - 2*px(x-1, y, c) - px(x-1, y+1, c)
				gy := px(x-1, y+1, c) + 2*px(x, y+1, c) + px(x+1, y+1, c) -
					px(x-1, y-1, c) - 2*px(x, y-1, c) - px(x+1, y-1, c)
				m := abs32(gx) + abs32(gy)
				if c == 0 || m > bm {
					bx, by, bm = gx, gy, m
				}
			}
			i := y*w + x
			dx[i], dy[i], mag[i] = bx, by, bm
		}
	}
}

func suppress(dx, dy, mag []int32, state []uint8, w, h, y0, y1 int) {
	at := func(x, y int) int32 {
		if x < 0 || x >= w || y < 0 || y >= h {
			return 0
		}
		return mag[y*w+x]
	}
	for y := y0; y < y1; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= cannyLow {
				continue
			}
			xs, ys := dx[i], dy[i]
			ax := int64(abs32(xs))
			ay := int64(abs32(ys)) << 15
			tg22x := ax * tan22

			var local bool
			if ay < tg22x {
				// 水平方向梯度
				local = m > at(x-1, y) && m >= at(x+1, y)
			} else {
				tg67x := tg22x + ax<<16
				if ay > tg67x {
					local = m > at(x, y-1) && m >= at(x, y+1)
				} else {
					s := 1
					if (xs ^ ys) < 0 {
						s = -1
					}
					local = m > at(x-s, y-1) && m > at(x+s, y+1)
				}
			}
			if !local {
				continue
			}
			if m > cannyHigh {
				state[i] = edgeStrong
			} else {
				state[i] = edgeWeak
			}
		}
	}
}

func hysteresis(state []uint8, w, h int) []bool {
	edges := make([]bool, w*h)
	stack := make([]int, 0, 64)
	for i, s := range state {
		if s == edgeStrong && !edges[i] {
			edges[i] = true
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := j%w, j/w
			for ny := y - 1; ny <= y+1; ny++ {
				for nx := x - 1; nx <= x+1; nx++ {
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					k := ny*w + nx
					if state[k] != edgeNone && !edges[k] {
						edges[k] = true
						stack = append(stack, k)
					}
				}
			}
		}
	}
	return edges
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
