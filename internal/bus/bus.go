// Package bus implements the CPU-side address space that register programs
// use to drive the PPU.
package bus

import (
	"fmt"

	"github.com/golang/glog"

	"nesppu/internal/ppu"
)

// ProgramMemory is the cartridge's view from the CPU side
type ProgramMemory interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
}

// Bus connects work RAM, the PPU register window, sprite DMA and the
// cartridge's program memory.
type Bus struct {
	ppu       *ppu.PPU
	cartridge ProgramMemory
	ram       [0x800]uint8

	cpuCycles        uint64
	dmaTransfers     uint64
	dmaStalledCycles uint64
}

// New creates a bus in front of p. cart may be nil.
func New(p *ppu.PPU, cart ProgramMemory) *Bus {
	return &Bus{ppu: p, cartridge: cart}
}

// Reset clears work RAM and cycle counters and resets the PPU
func (b *Bus) Reset() {
	b.ram = [0x800]uint8{}
	b.cpuCycles = 0
	b.dmaTransfers = 0
	b.dmaStalledCycles = 0
	b.ppu.Reset()
}

// Read reads a byte from the CPU address space
func (b *Bus) Read(address uint16) uint8 {
	switch {
	case address < 0x2000:
		// Internal RAM (mirrored)
		return b.ram[address&0x07FF]

	case address < 0x4000:
		// PPU registers (mirrored every 8 bytes)
		value := b.ppu.Read(address)
		glog.V(2).Infof("bus: read $%04X = $%02X", 0x2000+(address&7), value)
		return value

	case address >= 0x6000:
		if b.cartridge != nil {
			return b.cartridge.ReadPRG(address)
		}
	}
	// APU, I/O and expansion space are not modelled
	return 0
}

// Write writes a byte to the CPU address space
func (b *Bus) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		b.ram[address&0x07FF] = value

	case address < 0x4000:
		glog.V(2).Infof("bus: write $%04X = $%02X", 0x2000+(address&7), value)
		b.ppu.Write(address, value)

	case address == 0x4014:
		b.TriggerOAMDMA(value)

	case address >= 0x6000:
		if b.cartridge != nil {
			b.cartridge.WritePRG(address, value)
		}
	}
}

// TriggerOAMDMA copies a 256-byte page into OAM. The CPU is suspended for
// 513 cycles, plus one when the transfer starts on an odd cycle; the PPU
// keeps running through the stall.
func (b *Bus) TriggerOAMDMA(sourcePage uint8) {
	page := make([]byte, 256)
	sourceAddress := uint16(sourcePage) << 8
	for i := range page {
		page[i] = b.Read(sourceAddress + uint16(i))
	}
	if err := b.ppu.WriteOAMDMA(page); err != nil {
		panic(fmt.Errorf("bus: sprite DMA from page $%02X: %w", sourcePage, err))
	}

	dmaCycles := 513
	if b.cpuCycles%2 == 1 {
		dmaCycles = 514
	}
	b.dmaTransfers++
	b.dmaStalledCycles += uint64(dmaCycles)
	glog.V(2).Infof("bus: sprite DMA from $%04X, %d cycles", sourceAddress, dmaCycles)
	b.Tick(dmaCycles)
}

// Tick advances the PPU by cpuCycles CPU cycles
func (b *Bus) Tick(cpuCycles int) {
	b.ppu.Run(cpuCycles)
	b.cpuCycles += uint64(cpuCycles)
}

// PollNMI forwards the PPU's NMI signal
func (b *Bus) PollNMI() bool {
	return b.ppu.PollNMI()
}

// PPU returns the attached PPU
func (b *Bus) PPU() *ppu.PPU {
	return b.ppu
}

// CycleCount returns the number of CPU cycles elapsed since reset
func (b *Bus) CycleCount() uint64 {
	return b.cpuCycles
}

// FrameCount returns the number of frames the PPU has completed
func (b *Bus) FrameCount() uint64 {
	return b.ppu.FrameCount()
}

// DMAStats returns the number of sprite transfers and the CPU cycles they
// stalled
func (b *Bus) DMAStats() (transfers, stalledCycles uint64) {
	return b.dmaTransfers, b.dmaStalledCycles
}
