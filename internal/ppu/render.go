package ppu

// renderPixel composites the background and sprite pixel for the current
// dot and stores the resulting color in the frame buffer.
func (p *PPU) renderPixel() {
	x := p.cycle - 1
	y := p.scanline - p.timing.firstVisible()

	bg := p.backgroundPixel(x)
	slot, sprite := p.spritePixel(x)

	var index uint8
	switch {
	case bg&3 == 0 && sprite&3 == 0:
		index = 0
	case sprite&3 == 0:
		index = bg
	case bg&3 == 0:
		index = 0x10 | sprite
	default:
		if slot == 0 && p.sprite0Active && x != 255 {
			p.ppuStatus |= statusSprite0Hit
		}
		if p.sprites[slot].attr&0x20 == 0 {
			index = 0x10 | sprite
		} else {
			index = bg
		}
	}

	color := p.memory.Read(0x3F00|uint16(index)) & 0x3F
	p.frameBuffer[y*ScreenWidth+x] = Palette[color]
}

// Palette is the 2C02 color table (NTSC, Dendy-derived), 0xRRGGBB
var Palette = [64]uint32{
	// Row 0 (0x00-0x0F)
	0x666666, 0x002A88, 0x1412A7, 0x3B00A4, 0x5C007E, 0x6E0040, 0x6C0600, 0x561D00,
	0x333500, 0x0B4800, 0x005200, 0x004F08, 0x00404D, 0x000000, 0x000000, 0x000000,
	// Row 1 (0x10-0x1F)
	0xADADAD, 0x155FD9, 0x4240FF, 0x7527FE, 0xA01ACC, 0xB71E7B, 0xB53120, 0x994E00,
	0x6B6D00, 0x388700, 0x0C9300, 0x008F32, 0x007C8D, 0x000000, 0x000000, 0x000000,
	// Row 2 (0x20-0x2F)
	0xFFFEFF, 0x64B0FF, 0x9290FF, 0xC676FF, 0xF36AFF, 0xFE6ECC, 0xFE8170, 0xEA9E22,
	0xBCBE00, 0x88D800, 0x5CE430, 0x45E082, 0x48CDDE, 0x4F4F4F, 0x000000, 0x000000,
	// Row 3 (0x30-0x3F)
	0xFFFEFF, 0xC0DFFF, 0xD3D2FF, 0xE8C8FF, 0xFBC2FF, 0xFEC4EA, 0xFECCC5, 0xF7D8A5,
	0xE4E594, 0xCFF29B, 0xBEFBB3, 0xB8F8D8, 0xB8F8F8, 0x000000, 0x000000, 0x000000,
}

// RGB splits a palette color into its channels
func RGB(color uint32) (r, g, b uint8) {
	return uint8(color >> 16), uint8(color >> 8), uint8(color)
}
