// Package cartridge implements ROM loading and parsing for NES cartridges.
package cartridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"nesppu/internal/memory"
)

// ErrInvalidROM reports a file that is not a well-formed iNES image
var ErrInvalidROM = errors.New("invalid iNES image")

// Cartridge represents a NES cartridge. It serves pattern-table reads and
// writes to the PPU and program memory to the bus.
type Cartridge struct {
	// ROM data
	prgROM []uint8
	chr    []uint8

	// Mapper information
	mapperID uint8
	mapper   Mapper

	mirror memory.MirrorMode

	// Battery-backed RAM
	hasBattery bool
	sram       [0x2000]uint8

	// CHR memory type
	hasCHRRAM bool
}

// Mapper routes cartridge accesses to ROM and RAM
type Mapper interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// iNES header structure
type iNESHeader struct {
	Magic      [4]uint8
	PRGROMSize uint8 // in 16KB units
	CHRROMSize uint8 // in 8KB units
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	TVSystem1  uint8
	TVSystem2  uint8
	Padding    [5]uint8
}

// isNES20 reports whether flags 7 carries the NES 2.0 signature
func (h *iNESHeader) isNES20() bool {
	return h.Flags7&0x0C == 0x08
}

// LoadFromFile loads a cartridge from an iNES file
func LoadFromFile(filename string) (*Cartridge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cart, err := LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cart, nil
}

// LoadFromReader loads a cartridge from an io.Reader
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	var header iNESHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidROM, err)
	}

	if string(header.Magic[:]) != "NES\x1A" {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidROM, header.Magic[:])
	}
	if header.isNES20() {
		return nil, fmt.Errorf("%w: NES 2.0 headers", memory.ErrUnsupported)
	}
	if header.PRGROMSize == 0 {
		return nil, fmt.Errorf("%w: PRG ROM size cannot be zero", ErrInvalidROM)
	}

	cart := &Cartridge{
		mapperID:   (header.Flags6 >> 4) | (header.Flags7 & 0xF0),
		hasBattery: (header.Flags6 & 0x02) != 0,
	}

	switch {
	case header.Flags6&0x08 != 0:
		cart.mirror = memory.MirrorFourScreen
	case header.Flags6&0x01 != 0:
		cart.mirror = memory.MirrorVertical
	default:
		cart.mirror = memory.MirrorHorizontal
	}

	// Skip trainer if present
	if (header.Flags6 & 0x04) != 0 {
		if _, err := io.CopyN(io.Discard, r, 512); err != nil {
			return nil, fmt.Errorf("%w: reading trainer: %v", ErrInvalidROM, err)
		}
	}

	cart.prgROM = make([]uint8, int(header.PRGROMSize)*0x4000)
	if _, err := io.ReadFull(r, cart.prgROM); err != nil {
		return nil, fmt.Errorf("%w: reading PRG ROM: %v", ErrInvalidROM, err)
	}

	if header.CHRROMSize > 0 {
		cart.chr = make([]uint8, int(header.CHRROMSize)*0x2000)
		if _, err := io.ReadFull(r, cart.chr); err != nil {
			return nil, fmt.Errorf("%w: reading CHR ROM: %v", ErrInvalidROM, err)
		}
	} else {
		cart.chr = make([]uint8, 0x2000)
		cart.hasCHRRAM = true
	}

	mapper, err := createMapper(cart.mapperID, cart)
	if err != nil {
		return nil, err
	}
	cart.mapper = mapper

	return cart, nil
}

// Read reads pattern memory ($0000-$1FFF of the PPU address space)
func (c *Cartridge) Read(address uint16) uint8 {
	return c.mapper.ReadCHR(address)
}

// Write writes pattern memory; ignored unless the cartridge has CHR RAM
func (c *Cartridge) Write(address uint16, value uint8) {
	c.mapper.WriteCHR(address, value)
}

// ReadPRG reads from PRG ROM/RAM
func (c *Cartridge) ReadPRG(address uint16) uint8 {
	return c.mapper.ReadPRG(address)
}

// WritePRG writes to PRG ROM/RAM
func (c *Cartridge) WritePRG(address uint16, value uint8) {
	c.mapper.WritePRG(address, value)
}

// Mirroring returns the cartridge's nametable mirroring mode
func (c *Cartridge) Mirroring() memory.MirrorMode {
	return c.mirror
}

// MapperID returns the iNES mapper number
func (c *Cartridge) MapperID() uint8 {
	return c.mapperID
}

// HasCHRRAM reports whether pattern memory is writable RAM
func (c *Cartridge) HasCHRRAM() bool {
	return c.hasCHRRAM
}

// HasBattery reports whether the header declares battery-backed RAM
func (c *Cartridge) HasBattery() bool {
	return c.hasBattery
}

// createMapper creates the mapper for the given ID. Only the fixed NROM
// layout is supported.
func createMapper(id uint8, cart *Cartridge) (Mapper, error) {
	switch id {
	case 0:
		return NewMapper000(cart), nil
	}
	return nil, fmt.Errorf("%w: mapper %d", memory.ErrUnsupported, id)
}
