// Package debug provides frame dumps and chip state inspection.
package debug

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"nesppu/internal/ppu"
)

// FrameImage converts a frame buffer to an RGBA image
func FrameImage(frame *ppu.FrameBuffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight))
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			r, g, b := ppu.RGB(frame[y*ppu.ScreenWidth+x])
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xFF})
		}
	}
	return img
}

// ResizeImage scales src to width x height with nearest-neighbour sampling,
// which keeps pixel edges sharp.
func ResizeImage(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// EncodePNG writes frame as a PNG, enlarged by an integer scale
func EncodePNG(w io.Writer, frame *ppu.FrameBuffer, scale int) error {
	var img image.Image = FrameImage(frame)
	if scale > 1 {
		img = ResizeImage(img, ppu.ScreenWidth*scale, ppu.ScreenHeight*scale)
	}
	return png.Encode(w, img)
}

// ColorHistogram counts how many pixels of the frame use each color
func ColorHistogram(frame *ppu.FrameBuffer) map[uint32]int {
	freq := make(map[uint32]int)
	for _, pixel := range frame {
		freq[pixel]++
	}
	return freq
}
