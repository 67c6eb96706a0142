package graphics

import (
	"math"

	"nesppu/internal/ppu"
)

// VideoProcessor applies brightness, contrast and saturation adjustments
// to frames before presentation.
type VideoProcessor struct {
	brightness float32
	contrast   float32
	saturation float32

	out ppu.FrameBuffer
}

// NewVideoProcessor creates a new video processor
func NewVideoProcessor(brightness, contrast, saturation float32) *VideoProcessor {
	return &VideoProcessor{
		brightness: brightness,
		contrast:   contrast,
		saturation: saturation,
	}
}

// Identity reports whether processing leaves frames unchanged
func (vp *VideoProcessor) Identity() bool {
	return vp.brightness == 1 && vp.contrast == 1 && vp.saturation == 1
}

// ProcessFrame returns the adjusted frame. With neutral settings the input
// is returned as is; otherwise the result lives in a buffer owned by the
// processor and is overwritten by the next call.
func (vp *VideoProcessor) ProcessFrame(frame *ppu.FrameBuffer) *ppu.FrameBuffer {
	if vp.Identity() {
		return frame
	}
	for i, pixel := range frame {
		vp.out[i] = vp.adjust(pixel)
	}
	return &vp.out
}

func (vp *VideoProcessor) adjust(pixel uint32) uint32 {
	r8, g8, b8 := ppu.RGB(pixel)
	c := [3]float64{float64(r8) / 255, float64(g8) / 255, float64(b8) / 255}

	for i := range c {
		c[i] *= float64(vp.brightness)
		c[i] = (c[i]-0.5)*float64(vp.contrast) + 0.5
	}

	if vp.saturation != 1 {
		h, s, l := rgbToHSL(c[0], c[1], c[2])
		s = math.Min(s*float64(vp.saturation), 1)
		c[0], c[1], c[2] = hslToRGB(h, s, l)
	}

	var out uint32
	for _, v := range c {
		out = out<<8 | uint32(math.Round(math.Max(0, math.Min(1, v))*255))
	}
	return out
}

// rgbToHSL converts RGB in [0,1] to hue, saturation and lightness
func rgbToHSL(r, g, b float64) (h, s, l float64) {
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	l = (hi + lo) / 2
	if hi == lo {
		return 0, 0, l
	}

	d := hi - lo
	if l > 0.5 {
		s = d / (2 - hi - lo)
	} else {
		s = d / (hi + lo)
	}
	switch hi {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}

func hslToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return hueToRGB(p, q, h+1.0/3), hueToRGB(p, q, h), hueToRGB(p, q, h-1.0/3)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

// SetBrightness updates the brightness value
func (vp *VideoProcessor) SetBrightness(brightness float32) {
	vp.brightness = brightness
}

// SetContrast updates the contrast value
func (vp *VideoProcessor) SetContrast(contrast float32) {
	vp.contrast = contrast
}

// SetSaturation updates the saturation value
func (vp *VideoProcessor) SetSaturation(saturation float32) {
	vp.saturation = saturation
}
