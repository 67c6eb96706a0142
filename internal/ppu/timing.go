package ppu

import (
	"fmt"
	"strings"
)

// Standard identifies a video timing standard
type Standard uint8

const (
	NTSC Standard = iota
	PAL
	Dendy
)

func (s Standard) String() string {
	switch s {
	case NTSC:
		return "NTSC"
	case PAL:
		return "PAL"
	case Dendy:
		return "Dendy"
	}
	return fmt.Sprintf("standard(%d)", uint8(s))
}

// ParseStandard converts a configuration name to a Standard
func ParseStandard(name string) (Standard, error) {
	switch strings.ToUpper(name) {
	case "", "NTSC":
		return NTSC, nil
	case "PAL":
		return PAL, nil
	case "DENDY":
		return Dendy, nil
	}
	return 0, fmt.Errorf("unknown video standard %q", name)
}

// timing holds the per-standard frame layout. Scanline 0 is the first
// vblank line; the pre-render line follows the vblank region.
type timing struct {
	dotsPerCycle        int
	extraDotEvery       int // CPU cycles between extra dots, 0 for none
	vblankScanlines     int
	postRenderScanlines int
}

var timings = map[Standard]timing{
	NTSC: {dotsPerCycle: 3, vblankScanlines: 20, postRenderScanlines: 1},
	PAL:  {dotsPerCycle: 3, extraDotEvery: 5, vblankScanlines: 70, postRenderScanlines: 1},
}

func lookupTiming(s Standard) (timing, error) {
	t, ok := timings[s]
	if !ok {
		return timing{}, fmt.Errorf("%w: %s video timing", ErrUnsupported, s)
	}
	return t, nil
}

func (t timing) preRender() int       { return t.vblankScanlines }
func (t timing) firstVisible() int    { return t.vblankScanlines + 1 }
func (t timing) firstPostRender() int { return t.firstVisible() + ScreenHeight }
func (t timing) scanlines() int       { return t.firstPostRender() + t.postRenderScanlines }

// phase is the scanline's role within the frame
type phase uint8

const (
	phaseVblank phase = iota
	phasePreRender
	phaseVisible
	phasePostRender
)

func (t timing) phase(scanline int) phase {
	switch {
	case scanline < t.preRender():
		return phaseVblank
	case scanline == t.preRender():
		return phasePreRender
	case scanline < t.firstPostRender():
		return phaseVisible
	}
	return phasePostRender
}
