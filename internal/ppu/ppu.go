// Package ppu implements the NES Picture Processing Unit (2C02) one dot at
// a time.
package ppu

import (
	"github.com/golang/glog"

	"nesppu/internal/memory"
)

const (
	ScreenWidth  = 256
	ScreenHeight = 240

	lastDot = 340
)

// PPUCTRL bits
const (
	ctrlNametable   = 0x03
	ctrlIncrement32 = 0x04
	ctrlSpriteTable = 0x08
	ctrlBgTable     = 0x10
	ctrlSpriteSize  = 0x20
	ctrlNMIEnable   = 0x80
)

// PPUMASK bits
const (
	maskBgLeft     = 0x02
	maskSpriteLeft = 0x04
	maskBg         = 0x08
	maskSprites    = 0x10
)

// PPUSTATUS bits
const (
	statusOverflow   = 0x20
	statusSprite0Hit = 0x40
	statusVBlank     = 0x80
)

// FrameBuffer holds one 256x240 frame of 0xRRGGBB pixels
type FrameBuffer [ScreenWidth * ScreenHeight]uint32

// Renderer consumes completed frames. The buffer is only valid for the
// duration of the call; implementations that keep it must copy it.
type Renderer interface {
	RenderFrame(frame *FrameBuffer) error
}

// spriteUnit holds one sprite's pattern row for the line being drawn
type spriteUnit struct {
	x    uint8
	attr uint8
	low  uint8
	high uint8
}

// PPU represents the NES Picture Processing Unit (2C02)
type PPU struct {
	// PPU Registers (CPU-visible)
	ppuCtrl   uint8 // $2000 - PPUCTRL
	ppuMask   uint8 // $2001 - PPUMASK
	ppuStatus uint8 // $2002 - PPUSTATUS
	oamAddr   uint8 // $2003 - OAMADDR

	// Internal PPU State
	v          uint16 // Current VRAM address (15 bits)
	t          uint16 // Temporary VRAM address (15 bits)
	x          uint8  // Fine X scroll (3 bits)
	w          bool   // Write toggle shared by $2005/$2006
	readBuffer uint8  // $2007 read buffer

	memory   memory.Memory
	renderer Renderer
	standard Standard
	timing   timing

	// Dot clock
	scanline     int
	cycle        int
	extraCounter int
	frameCount   uint64
	nmiPending   bool

	// Background latches and shift buffer
	nametableByte uint8
	attributeBits uint8
	lowTileByte   uint8
	highTileByte  uint8
	tileData      uint64

	// Sprite Data
	oam            [256]uint8
	secondaryOAM   [32]uint8
	spriteCount    int
	sprite0InSlot0 bool
	evaluatedRow   int
	sprites        [8]spriteUnit
	activeSprites  int
	sprite0Active  bool

	frameBuffer FrameBuffer
	frameErr    error
}

// New creates a PPU that reads video memory through mem
func New(mem memory.Memory, standard Standard) (*PPU, error) {
	tm, err := lookupTiming(standard)
	if err != nil {
		return nil, err
	}
	p := &PPU{
		memory:   mem,
		standard: standard,
		timing:   tm,
	}
	p.Reset()
	return p, nil
}

// Reset returns the registers and the dot clock to power-up state. OAM and
// video memory keep their contents.
func (p *PPU) Reset() {
	p.ppuCtrl = 0
	p.ppuMask = 0
	p.ppuStatus = 0
	p.oamAddr = 0

	p.v = 0
	p.t = 0
	p.x = 0
	p.w = false
	p.readBuffer = 0

	p.scanline = 0
	p.cycle = 0
	p.extraCounter = 0
	p.frameCount = 0
	p.nmiPending = false

	p.tileData = 0
	p.spriteCount = 0
	p.sprite0InSlot0 = false
	p.activeSprites = 0
	p.sprite0Active = false
	p.frameErr = nil
}

// SetRenderer sets the sink that receives each completed frame
func (p *PPU) SetRenderer(r Renderer) {
	p.renderer = r
}

// Standard returns the video timing standard
func (p *PPU) Standard() Standard {
	return p.standard
}

// Run advances the PPU by the dots that correspond to cpuCycles CPU cycles
func (p *PPU) Run(cpuCycles int) {
	for i := 0; i < cpuCycles; i++ {
		dots := p.timing.dotsPerCycle
		if p.timing.extraDotEvery > 0 {
			p.extraCounter++
			if p.extraCounter == p.timing.extraDotEvery {
				p.extraCounter = 0
				dots++
			}
		}
		for ; dots > 0; dots-- {
			p.Step()
		}
	}
}

// Step executes the current dot and advances the dot clock
func (p *PPU) Step() {
	switch p.timing.phase(p.scanline) {
	case phaseVblank:
		p.vblankDot()
	case phasePreRender:
		p.preRenderDot()
	case phaseVisible:
		p.visibleDot()
	case phasePostRender:
		p.postRenderDot()
	}

	p.cycle++
	if p.cycle > lastDot {
		p.cycle = 0
		p.scanline++
		if p.scanline >= p.timing.scanlines() {
			p.scanline = 0
		}
	}
}

func (p *PPU) vblankDot() {
	if p.scanline == 0 && p.cycle == 1 {
		p.ppuStatus |= statusVBlank
		if p.ppuCtrl&ctrlNMIEnable != 0 {
			p.nmiPending = true
		}
	}
}

func (p *PPU) preRenderDot() {
	if p.cycle == 1 {
		p.ppuStatus &^= statusVBlank | statusSprite0Hit | statusOverflow
	}
	if !p.renderingEnabled() {
		return
	}

	p.backgroundDot()
	if p.cycle == 256 {
		// Compared against row -1, so the first visible line never shows sprites
		p.evaluateSprites(-1)
	}
	p.spriteFetchDot()
	if p.cycle >= 280 && p.cycle <= 304 {
		p.copyY()
	}
}

func (p *PPU) visibleDot() {
	if p.cycle == 0 {
		return
	}
	if p.cycle <= 256 {
		p.renderPixel()
	}
	if !p.renderingEnabled() {
		return
	}

	p.backgroundDot()
	if p.cycle == 256 {
		p.evaluateSprites(p.scanline - p.timing.firstVisible())
	}
	p.spriteFetchDot()
}

func (p *PPU) postRenderDot() {
	if p.scanline != p.timing.firstPostRender() || p.cycle != 0 {
		return
	}
	p.frameCount++
	glog.V(1).Infof("ppu: frame %d complete", p.frameCount)
	if p.renderer == nil {
		return
	}
	if err := p.renderer.RenderFrame(&p.frameBuffer); err != nil && p.frameErr == nil {
		p.frameErr = err
	}
}

// renderingEnabled reports whether background or sprite rendering is on
func (p *PPU) renderingEnabled() bool {
	return p.ppuMask&(maskBg|maskSprites) != 0
}

// FrameError returns and clears the first error reported by the renderer
func (p *PPU) FrameError() error {
	err := p.frameErr
	p.frameErr = nil
	return err
}

// FrameBuffer returns the frame buffer. Its contents are only a complete
// frame while the renderer is being called.
func (p *PPU) FrameBuffer() *FrameBuffer {
	return &p.frameBuffer
}

// FrameCount returns the number of frames handed to the renderer
func (p *PPU) FrameCount() uint64 {
	return p.frameCount
}

// Scanline returns the current scanline (0 is the first vblank line)
func (p *PPU) Scanline() int {
	return p.scanline
}

// Cycle returns the current dot within the scanline
func (p *PPU) Cycle() int {
	return p.cycle
}

// OAM returns a copy of the primary sprite table
func (p *PPU) OAM() [256]uint8 {
	return p.oam
}

// Snapshot is a read-only copy of the chip's register state
type Snapshot struct {
	Standard     string
	Scanline     int
	Dot          int
	Frame        uint64
	Control      uint8
	Mask         uint8
	Status       uint8
	OAMAddress   uint8
	V            uint16
	T            uint16
	FineX        uint8
	WriteToggle  bool
	ReadBuffer   uint8
	NMIPending   bool
	SpriteCount  int
	SecondaryOAM [32]uint8
}

// Snapshot captures the current register and timing state
func (p *PPU) Snapshot() Snapshot {
	return Snapshot{
		Standard:     p.standard.String(),
		Scanline:     p.scanline,
		Dot:          p.cycle,
		Frame:        p.frameCount,
		Control:      p.ppuCtrl,
		Mask:         p.ppuMask,
		Status:       p.ppuStatus,
		OAMAddress:   p.oamAddr,
		V:            p.v,
		T:            p.t,
		FineX:        p.x,
		WriteToggle:  p.w,
		ReadBuffer:   p.readBuffer,
		NMIPending:   p.nmiPending,
		SpriteCount:  p.spriteCount,
		SecondaryOAM: p.secondaryOAM,
	}
}
