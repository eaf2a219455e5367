package util

import (
	"image"

	"github.com/nfnt/resize"
)

// Thumbnail 等比缩放到 maxWidth x maxHeight 以内，不放大
func Thumbnail(img image.Image, maxWidth, maxHeight int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxWidth && b.Dy() <= maxHeight {
		return img
	}
	return resize.Thumbnail(uint(maxWidth), uint(maxHeight), img, resize.Lanczos3)
}
