package cartridge

import (
	"bytes"
	"fmt"

	"nesppu/internal/memory"
)

// ROMConfig describes an iNES image to generate
type ROMConfig struct {
	PRGSize    uint8 // PRG ROM size in 16KB units
	CHRSize    uint8 // CHR ROM size in 8KB units (0 = CHR RAM)
	MapperID   uint8
	Mirroring  memory.MirrorMode
	HasBattery bool
	HasTrainer bool
	NES20      bool
	PRGData    map[uint16]uint8 // offset into PRG ROM
	CHRData    []uint8
}

// ROMBuilder provides a fluent interface for building iNES images, used
// to feed register programs small hand-made pattern tables.
type ROMBuilder struct {
	config ROMConfig
}

// NewROMBuilder creates a builder for a 16KB PRG / 8KB CHR NROM image
func NewROMBuilder() *ROMBuilder {
	return &ROMBuilder{
		config: ROMConfig{
			PRGSize:   1,
			CHRSize:   1,
			Mirroring: memory.MirrorHorizontal,
			PRGData:   make(map[uint16]uint8),
		},
	}
}

// WithPRGSize sets the PRG ROM size in 16KB units
func (b *ROMBuilder) WithPRGSize(size uint8) *ROMBuilder {
	b.config.PRGSize = size
	return b
}

// WithCHRRAM configures the ROM to use CHR RAM instead of CHR ROM
func (b *ROMBuilder) WithCHRRAM() *ROMBuilder {
	b.config.CHRSize = 0
	return b
}

// WithMapper sets the mapper ID
func (b *ROMBuilder) WithMapper(mapperID uint8) *ROMBuilder {
	b.config.MapperID = mapperID
	return b
}

// WithMirroring sets the nametable mirroring mode
func (b *ROMBuilder) WithMirroring(mirroring memory.MirrorMode) *ROMBuilder {
	b.config.Mirroring = mirroring
	return b
}

// WithBattery enables battery-backed SRAM
func (b *ROMBuilder) WithBattery() *ROMBuilder {
	b.config.HasBattery = true
	return b
}

// WithTrainer adds a 512-byte trainer
func (b *ROMBuilder) WithTrainer() *ROMBuilder {
	b.config.HasTrainer = true
	return b
}

// WithNES20 marks the header as NES 2.0
func (b *ROMBuilder) WithNES20() *ROMBuilder {
	b.config.NES20 = true
	return b
}

// WithPRGData places data at an offset into PRG ROM
func (b *ROMBuilder) WithPRGData(offset uint16, data []uint8) *ROMBuilder {
	for i, value := range data {
		b.config.PRGData[offset+uint16(i)] = value
	}
	return b
}

// WithCHRData sets the start of CHR ROM
func (b *ROMBuilder) WithCHRData(data []uint8) *ROMBuilder {
	b.config.CHRData = append([]uint8(nil), data...)
	return b
}

// WithTile stores an 8x8 tile given as eight rows of 2-bit pixels, most
// significant pixel first (e.g. 0x1230_0000 is colors 1,2,3,0,0,0,0,0).
func (b *ROMBuilder) WithTile(index int, rows [8]uint32) *ROMBuilder {
	need := (index + 1) * 16
	if len(b.config.CHRData) < need {
		b.config.CHRData = append(b.config.CHRData, make([]uint8, need-len(b.config.CHRData))...)
	}
	tile := b.config.CHRData[index*16 : need]
	for y, row := range rows {
		var low, high uint8
		for col := 0; col < 8; col++ {
			pixel := row >> (28 - 4*uint(col)) & 3
			low = low<<1 | uint8(pixel&1)
			high = high<<1 | uint8(pixel>>1)
		}
		tile[y] = low
		tile[y+8] = high
	}
	return b
}

// Build generates the ROM image
func (b *ROMBuilder) Build() ([]byte, error) {
	return GenerateROM(b.config)
}

// BuildCartridge generates and loads the ROM as a cartridge
func (b *ROMBuilder) BuildCartridge() (*Cartridge, error) {
	romData, err := b.Build()
	if err != nil {
		return nil, err
	}
	return LoadFromReader(bytes.NewReader(romData))
}

// GenerateROM creates an iNES image from config
func GenerateROM(config ROMConfig) ([]byte, error) {
	if config.PRGSize == 0 {
		return nil, fmt.Errorf("%w: PRG ROM size cannot be zero", ErrInvalidROM)
	}
	chrSize := int(config.CHRSize) * 0x2000
	if len(config.CHRData) > chrSize && config.CHRSize > 0 {
		return nil, fmt.Errorf("CHR data (%d bytes) exceeds CHR ROM size", len(config.CHRData))
	}

	var buf bytes.Buffer
	buf.Write(createINESHeader(config))

	if config.HasTrainer {
		buf.Write(make([]byte, 512))
	}

	prgROM := make([]byte, int(config.PRGSize)*0x4000)
	for offset, value := range config.PRGData {
		if int(offset) < len(prgROM) {
			prgROM[offset] = value
		}
	}
	buf.Write(prgROM)

	if chrSize > 0 {
		chrROM := make([]byte, chrSize)
		copy(chrROM, config.CHRData)
		buf.Write(chrROM)
	}

	return buf.Bytes(), nil
}

func createINESHeader(config ROMConfig) []byte {
	header := make([]byte, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = config.PRGSize
	header[5] = config.CHRSize

	flags6 := (config.MapperID & 0x0F) << 4
	if config.Mirroring == memory.MirrorVertical {
		flags6 |= 0x01
	}
	if config.HasBattery {
		flags6 |= 0x02
	}
	if config.HasTrainer {
		flags6 |= 0x04
	}
	if config.Mirroring == memory.MirrorFourScreen {
		flags6 |= 0x08
	}
	header[6] = flags6

	header[7] = config.MapperID & 0xF0
	if config.NES20 {
		header[7] |= 0x08
	}
	return header
}
