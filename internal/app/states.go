package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nesppu/internal/debug"
	"nesppu/internal/ppu"
	"nesppu/internal/version"
)

// StateRecord is a JSON capture of the chip for offline inspection. It is
// not a save state: nothing restores a session from it.
type StateRecord struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	ROMPath   string    `json:"rom_path"`

	Frame        uint64 `json:"frame"`
	CPUCycles    uint64 `json:"cpu_cycles"`
	DMATransfers uint64 `json:"dma_transfers"`

	Registers ppu.Snapshot    `json:"registers"`
	Palette   [32]uint8       `json:"palette"`
	OAM       []uint8         `json:"oam"`
	Sprites   []*debug.Sprite `json:"sprites"`
}

// ChipState collects the values shown in a state graph
func (e *Emulator) ChipState() *debug.ChipState {
	return &debug.ChipState{
		Registers: e.ppu.Snapshot(),
		Palette:   e.vram.Palette(),
		Sprites:   debug.DecodeOAM(e.ppu.OAM()),
	}
}

// CaptureState builds a record of the current chip state
func (e *Emulator) CaptureState() *StateRecord {
	oam := e.ppu.OAM()
	transfers, _ := e.bus.DMAStats()
	state := e.ChipState()
	return &StateRecord{
		Version:      version.Version,
		Timestamp:    time.Now(),
		ROMPath:      e.romPath,
		Frame:        e.bus.FrameCount(),
		CPUCycles:    e.bus.CycleCount(),
		DMATransfers: transfers,
		Registers:    state.Registers,
		Palette:      state.Palette,
		OAM:          oam[:],
		Sprites:      state.Sprites,
	}
}

// WriteStateGraph writes a Graphviz description of the chip to path
func (e *Emulator) WriteStateGraph(path string) error {
	return debug.WriteStateGraphFile(path, e.ChipState())
}

// SaveStateRecord writes a record as indented JSON
func SaveStateRecord(path string, record *StateRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// LoadStateRecord reads a record written by SaveStateRecord
func LoadStateRecord(path string) (*StateRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	record := &StateRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if len(record.OAM) != 256 {
		return nil, fmt.Errorf("state file %s: OAM has %d bytes, want 256", path, len(record.OAM))
	}
	return record, nil
}
