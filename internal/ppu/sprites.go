package ppu

const (
	spriteHeight = 8
	maxSprites   = 8
)

// spriteOnRow reports whether a sprite whose OAM Y byte is y covers row
func spriteOnRow(y uint8, row int) bool {
	d := row - int(y)
	return d >= 0 && d < spriteHeight
}

// evaluateSprites rebuilds secondary OAM from the sprites that cover row.
// The result is drawn on the following line.
func (p *PPU) evaluateSprites(row int) {
	for i := range p.secondaryOAM {
		p.secondaryOAM[i] = 0xFF
	}
	p.spriteCount = 0
	p.sprite0InSlot0 = false
	p.evaluatedRow = row

	n := 0
	for ; n < 64 && p.spriteCount < maxSprites; n++ {
		y := p.oam[n*4]
		slot := p.spriteCount * 4

		// Y is copied before the range check, matched or not
		p.secondaryOAM[slot] = y
		if !spriteOnRow(y, row) {
			continue
		}
		copy(p.secondaryOAM[slot+1:slot+4], p.oam[n*4+1:n*4+4])
		if n == 0 {
			p.sprite0InSlot0 = true
		}
		p.spriteCount++
	}

	// With secondary OAM full the hardware keeps searching, but it advances
	// the byte offset m along with n and so compares tile, attribute and X
	// bytes as if they were Y coordinates.
	m := 0
	for ; n < 64; n++ {
		if spriteOnRow(p.oam[n*4+m], row) {
			p.ppuStatus |= statusOverflow
			break
		}
		m = (m + 1) & 3
	}
}

func (p *PPU) spriteTableBase() uint16 {
	if p.ppuCtrl&ctrlSpriteTable != 0 {
		return 0x1000
	}
	return 0x0000
}

// spriteFetchDot loads pattern rows for the next line's sprites during
// dots 257-320, eight dots per slot.
func (p *PPU) spriteFetchDot() {
	if p.cycle < 257 || p.cycle > 320 {
		return
	}
	if p.cycle == 257 {
		p.activeSprites = p.spriteCount
		p.sprite0Active = p.sprite0InSlot0
	}

	slot := (p.cycle - 257) / 8
	switch (p.cycle - 257) % 8 {
	case 3:
		unit := &p.sprites[slot]
		unit.attr = p.secondaryOAM[slot*4+2]
		unit.x = p.secondaryOAM[slot*4+3]
	case 5:
		p.sprites[slot].low = p.fetchSpriteRow(slot, 0)
	case 7:
		p.sprites[slot].high = p.fetchSpriteRow(slot, 8)
	}
}

// fetchSpriteRow reads one bitplane of a secondary slot's pattern row.
// Empty slots produce transparent rows.
func (p *PPU) fetchSpriteRow(slot int, plane uint16) uint8 {
	if slot >= p.spriteCount {
		return 0
	}
	entry := p.secondaryOAM[slot*4 : slot*4+4]
	row := p.evaluatedRow - int(entry[0])
	if entry[2]&0x80 != 0 { // vertical flip
		row = spriteHeight - 1 - row
	}
	address := p.spriteTableBase() + uint16(entry[1])*16 + uint16(row) + plane
	return p.memory.Read(address)
}

// spritePixel returns the first opaque sprite pixel at column x as a
// 4-bit palette value, along with its slot. slot is -1 if none.
func (p *PPU) spritePixel(x int) (slot int, pixel uint8) {
	if p.ppuMask&maskSprites == 0 {
		return -1, 0
	}
	if x < 8 && p.ppuMask&maskSpriteLeft == 0 {
		return -1, 0
	}

	for i := 0; i < p.activeSprites; i++ {
		unit := &p.sprites[i]
		col := x - int(unit.x)
		if col < 0 || col > 7 {
			continue
		}
		shift := uint(7 - col)
		if unit.attr&0x40 != 0 { // horizontal flip
			shift = uint(col)
		}
		color := (unit.high>>shift&1)<<1 | unit.low>>shift&1
		if color == 0 {
			continue
		}
		return i, (unit.attr&0x03)<<2 | color
	}
	return -1, 0
}
