// Package memory implements the PPU's video memory map and the
// byte-addressable capability shared by the PPU, the bus and the cartridge.
package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported reports a hardware mode this model does not implement.
	ErrUnsupported = errors.New("unsupported hardware mode")

	// ErrTranslation reports a video address outside every VRAM region.
	ErrTranslation = errors.New("video address translation failed")
)

// Memory is a byte-addressable read/write capability
type Memory interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// MirrorMode represents nametable mirroring mode
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorFourScreen
)

func (m MirrorMode) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorFourScreen:
		return "four-screen"
	}
	return fmt.Sprintf("mirror(%d)", uint8(m))
}

// Store identifies the physical store behind a video address
type Store uint8

const (
	StoreCartridge Store = iota
	StoreNametable
	StorePalette
)

func (s Store) String() string {
	switch s {
	case StoreCartridge:
		return "cartridge"
	case StoreNametable:
		return "nametable"
	case StorePalette:
		return "palette"
	}
	return fmt.Sprintf("store(%d)", uint8(s))
}

// Location is the result of translating a video address.
type Location struct {
	Store  Store
	Offset uint16
}

// paletteMirror folds the sprite backdrop entries onto the background ones.
var paletteMirror = [0x20]uint8{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	0x00, 0x11, 0x12, 0x13, 0x04, 0x15, 0x16, 0x17,
	0x08, 0x19, 0x1A, 0x1B, 0x0C, 0x1D, 0x1E, 0x1F,
}

// PPUMemory represents the PPU's memory space ($0000-$3FFF)
type PPUMemory struct {
	vram       [0x800]uint8 // 2KB nametable RAM (two physical banks)
	paletteRAM [32]uint8
	cartridge  Memory
	mirroring  MirrorMode
}

// NewPPUMemory creates a new PPU memory instance. Four-screen wiring needs
// cartridge-side VRAM and is rejected.
func NewPPUMemory(cart Memory, mirroring MirrorMode) (*PPUMemory, error) {
	switch mirroring {
	case MirrorHorizontal, MirrorVertical:
	default:
		return nil, fmt.Errorf("%w: %s nametable mirroring", ErrUnsupported, mirroring)
	}
	return &PPUMemory{
		cartridge: cart,
		mirroring: mirroring,
	}, nil
}

// Mirroring returns the nametable wiring mode
func (pm *PPUMemory) Mirroring() MirrorMode {
	return pm.mirroring
}

// Translate resolves a video bus address to its physical store and offset.
// Addresses at or above $4000 are outside the PPU bus and panic.
func (pm *PPUMemory) Translate(address uint16) Location {
	switch {
	case address < 0x2000:
		return Location{Store: StoreCartridge, Offset: address}

	case address < 0x3F00:
		if address >= 0x3000 {
			address -= 0x1000
		}
		return Location{Store: StoreNametable, Offset: pm.nametableOffset(address)}

	case address < 0x4000:
		return Location{Store: StorePalette, Offset: uint16(paletteMirror[address&0x1F])}
	}
	panic(fmt.Errorf("%w: $%04X", ErrTranslation, address))
}

// nametableOffset maps one of the four logical nametables to a physical bank
func (pm *PPUMemory) nametableOffset(address uint16) uint16 {
	table := (address >> 10) & 3
	offset := address & 0x3FF

	switch pm.mirroring {
	case MirrorHorizontal:
		// $2000/$2400 share bank 0, $2800/$2C00 share bank 1
		return (table>>1)*0x400 + offset
	case MirrorVertical:
		// $2000/$2800 share bank 0, $2400/$2C00 share bank 1
		return (table&1)*0x400 + offset
	}
	panic(fmt.Errorf("%w: %s nametable mirroring", ErrUnsupported, pm.mirroring))
}

// Read reads from PPU memory space
func (pm *PPUMemory) Read(address uint16) uint8 {
	loc := pm.Translate(address)
	switch loc.Store {
	case StoreCartridge:
		return pm.cartridge.Read(loc.Offset)
	case StoreNametable:
		return pm.vram[loc.Offset]
	default:
		return pm.paletteRAM[loc.Offset]
	}
}

// Write writes to PPU memory space
func (pm *PPUMemory) Write(address uint16, value uint8) {
	loc := pm.Translate(address)
	switch loc.Store {
	case StoreCartridge:
		pm.cartridge.Write(loc.Offset, value)
	case StoreNametable:
		pm.vram[loc.Offset] = value
	default:
		pm.paletteRAM[loc.Offset] = value
	}
}

// Palette returns a copy of palette RAM
func (pm *PPUMemory) Palette() [32]uint8 {
	return pm.paletteRAM
}
