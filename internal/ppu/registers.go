package ppu

import "fmt"

// checkRegisterAddress rejects addresses outside the $2000-$3FFF window
func checkRegisterAddress(address uint16) {
	if address < 0x2000 || address > 0x3FFF {
		panic(fmt.Errorf("%w: $%04X is not a PPU register", ErrProtocol, address))
	}
}

// Read reads from a PPU register (CPU $2000-$3FFF, mirrored every 8 bytes)
func (p *PPU) Read(address uint16) uint8 {
	checkRegisterAddress(address)

	switch address & 0x0007 {
	case 2: // PPUSTATUS
		return p.readStatus()
	case 4: // OAMDATA
		return p.oam[p.oamAddr]
	case 7: // PPUDATA
		return p.readData()
	}
	panic(fmt.Errorf("%w: read of write-only register $%04X", ErrProtocol, address))
}

// Write writes to a PPU register (CPU $2000-$3FFF, mirrored every 8 bytes)
func (p *PPU) Write(address uint16, value uint8) {
	checkRegisterAddress(address)

	switch address & 0x0007 {
	case 0: // PPUCTRL
		p.writeControl(value)
	case 1: // PPUMASK
		p.ppuMask = value
	case 2: // PPUSTATUS
		panic(fmt.Errorf("%w: write of read-only register $%04X", ErrProtocol, address))
	case 3: // OAMADDR
		p.oamAddr = value
	case 4: // OAMDATA
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 5: // PPUSCROLL
		p.writeScroll(value)
	case 6: // PPUADDR
		p.writeAddress(value)
	case 7: // PPUDATA
		p.writeData(value)
	}
}

// WriteOAMDMA replaces the whole primary sprite table
func (p *PPU) WriteOAMDMA(data []byte) error {
	if len(data) != len(p.oam) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBadTransfer, len(data), len(p.oam))
	}
	copy(p.oam[:], data)
	return nil
}

// PollNMI reports whether an NMI was raised since the last poll and clears it
func (p *PPU) PollNMI() bool {
	pending := p.nmiPending
	p.nmiPending = false
	return pending
}

func (p *PPU) writeControl(value uint8) {
	if value&ctrlSpriteSize != 0 {
		panic(fmt.Errorf("%w: 8x16 sprites", ErrUnsupported))
	}

	wasEnabled := p.ppuCtrl&ctrlNMIEnable != 0
	p.ppuCtrl = value
	p.t = (p.t &^ 0x0C00) | uint16(value&ctrlNametable)<<10

	// Enabling NMI during vblank raises it immediately
	if !wasEnabled && value&ctrlNMIEnable != 0 && p.ppuStatus&statusVBlank != 0 {
		p.nmiPending = true
	}
}

func (p *PPU) readStatus() uint8 {
	status := p.ppuStatus
	p.ppuStatus &^= statusVBlank
	p.w = false
	return status
}

// writeScroll handles writes to PPUSCROLL ($2005)
func (p *PPU) writeScroll(value uint8) {
	if !p.w {
		// t: ....... ...HGFED = d: HGFED...
		p.x = value & 0x07
		p.t = (p.t &^ 0x001F) | uint16(value>>3)
	} else {
		// t: CBA..HG FED..... = d: HGFEDCBA
		p.t = (p.t &^ 0x73E0) | uint16(value&0x07)<<12 | uint16(value>>3)<<5
	}
	p.w = !p.w
}

// writeAddress handles writes to PPUADDR ($2006)
func (p *PPU) writeAddress(value uint8) {
	if !p.w {
		// Bits 8-13 from value, bit 14 cleared
		p.t = (p.t & 0x00FF) | uint16(value&0x3F)<<8
	} else {
		p.t = (p.t & 0xFF00) | uint16(value)
		p.v = p.t
	}
	p.w = !p.w
}

// readData handles reads from PPUDATA ($2007)
func (p *PPU) readData() uint8 {
	address := p.v & 0x3FFF

	var value uint8
	if address < 0x3F00 {
		value = p.readBuffer
		p.readBuffer = p.memory.Read(address)
	} else {
		// Palette reads bypass the buffer; it picks up the nametable byte underneath
		value = p.memory.Read(address)
		p.readBuffer = p.memory.Read(address - 0x1000)
	}

	p.incrementAddress()
	return value
}

// writeData handles writes to PPUDATA ($2007)
func (p *PPU) writeData(value uint8) {
	p.memory.Write(p.v&0x3FFF, value)
	p.incrementAddress()
}

func (p *PPU) incrementAddress() {
	if p.ppuCtrl&ctrlIncrement32 != 0 {
		p.v += 32
	} else {
		p.v++
	}
	p.v &= 0x7FFF
}
