package cartridge

// Mapper000 implements NROM (mapper 0): no bank switching, 16KB or 32KB of
// PRG ROM, 8KB of CHR ROM or RAM, and 8KB of PRG RAM at $6000-$7FFF.
type Mapper000 struct {
	cart     *Cartridge
	prgBanks int // Number of 16KB PRG banks (1 or 2)
}

// NewMapper000 creates a new NROM mapper
func NewMapper000(cart *Cartridge) *Mapper000 {
	return &Mapper000{
		cart:     cart,
		prgBanks: len(cart.prgROM) / 0x4000,
	}
}

// ReadPRG reads from PRG ROM/RAM. A single 16KB bank is mirrored at $C000.
func (m *Mapper000) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x8000:
		offset := int(address - 0x8000)
		if m.prgBanks == 1 {
			offset &= 0x3FFF
		}
		if offset < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	case address >= 0x6000:
		return m.cart.sram[address-0x6000]
	}
	return 0
}

// WritePRG writes to PRG RAM; ROM writes are ignored
func (m *Mapper000) WritePRG(address uint16, value uint8) {
	if address >= 0x6000 && address < 0x8000 {
		m.cart.sram[address-0x6000] = value
	}
}

// ReadCHR reads pattern memory
func (m *Mapper000) ReadCHR(address uint16) uint8 {
	return m.cart.chr[address&0x1FFF]
}

// WriteCHR writes pattern memory when it is RAM
func (m *Mapper000) WriteCHR(address uint16, value uint8) {
	if m.cart.hasCHRRAM {
		m.cart.chr[address&0x1FFF] = value
	}
}
