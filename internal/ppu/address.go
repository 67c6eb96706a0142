package ppu

// Scroll helper methods for VRAM address manipulation. Layout of v and t:
//
//	yyy NN YYYYY XXXXX
//	fine Y, nametable select, coarse Y, coarse X

// coarseX extracts the coarse X scroll (bits 0-4)
func (p *PPU) coarseX() uint16 {
	return p.v & 0x001F
}

// coarseY extracts the coarse Y scroll (bits 5-9)
func (p *PPU) coarseY() uint16 {
	return (p.v >> 5) & 0x001F
}

// fineY extracts the fine Y scroll (bits 12-14)
func (p *PPU) fineY() uint16 {
	return (p.v >> 12) & 0x0007
}

// incrementX increments coarse X, switching horizontal nametable on wrap
func (p *PPU) incrementX() {
	if p.coarseX() == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

// incrementY increments fine Y, carrying into coarse Y. Coarse Y wraps at
// 29 into the other vertical nametable; 30 and 31 wrap to 0 in place.
func (p *PPU) incrementY() {
	if p.fineY() < 7 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000

	y := p.coarseY()
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v &^ 0x03E0) | y<<5
}

// copyX copies the horizontal bits (10, 4-0) from t to v
func (p *PPU) copyX() {
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

// copyY copies the vertical bits (14-11, 9-5) from t to v
func (p *PPU) copyY() {
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}
