package ppu

// backgroundDot performs the background fetch and scroll work for the
// current dot of a rendering line.
func (p *PPU) backgroundDot() {
	fetching := (p.cycle >= 1 && p.cycle <= 256) || (p.cycle >= 321 && p.cycle <= 336)
	if fetching {
		switch p.cycle % 8 {
		case 1:
			p.fetchNametableByte()
		case 3:
			p.fetchAttributeByte()
		case 5:
			p.fetchLowTileByte()
		case 7:
			p.fetchHighTileByte()
		case 0:
			p.storeTileData()
			p.incrementX()
		}
	}

	switch p.cycle {
	case 256:
		p.incrementY()
	case 257:
		p.copyX()
	}
}

func (p *PPU) fetchNametableByte() {
	p.nametableByte = p.memory.Read(0x2000 | (p.v & 0x0FFF))
}

// fetchAttributeByte reads the attribute byte covering the current tile and
// keeps its 2-bit palette number in bits 2-3.
func (p *PPU) fetchAttributeByte() {
	v := p.v
	address := 0x23C0 | (v & 0x0C00) | ((v >> 4) & 0x38) | ((v >> 2) & 0x07)
	shift := ((v >> 4) & 4) | (v & 2)
	p.attributeBits = ((p.memory.Read(address) >> shift) & 3) << 2
}

func (p *PPU) backgroundTableBase() uint16 {
	if p.ppuCtrl&ctrlBgTable != 0 {
		return 0x1000
	}
	return 0x0000
}

func (p *PPU) fetchLowTileByte() {
	address := p.backgroundTableBase() + uint16(p.nametableByte)*16 + p.fineY()
	p.lowTileByte = p.memory.Read(address)
}

func (p *PPU) fetchHighTileByte() {
	address := p.backgroundTableBase() + uint16(p.nametableByte)*16 + p.fineY() + 8
	p.highTileByte = p.memory.Read(address)
}

// storeTileData packs the fetched tile row into eight nibbles and pushes
// them into the low half of the shift buffer.
func (p *PPU) storeTileData() {
	var data uint32
	low, high := p.lowTileByte, p.highTileByte
	for i := 0; i < 8; i++ {
		p1 := (low & 0x80) >> 7
		p2 := (high & 0x80) >> 6
		low <<= 1
		high <<= 1
		data = data<<4 | uint32(p.attributeBits|p2|p1)
	}
	p.tileData = p.tileData<<32 | uint64(data)
}

// backgroundPixel returns the 4-bit background value for screen column x
func (p *PPU) backgroundPixel(x int) uint8 {
	if p.ppuMask&maskBg == 0 {
		return 0
	}
	if x < 8 && p.ppuMask&maskBgLeft == 0 {
		return 0
	}
	i := uint(x&7) + uint(p.x)
	return uint8(p.tileData>>(60-4*i)) & 0x0F
}
