package debug

import (
	"fmt"
	"os"
	"path/filepath"

	"nesppu/internal/ppu"
)

// FrameDumper writes selected frames to a directory as PNG files
type FrameDumper struct {
	outputDir    string
	dumpEnabled  bool
	dumped       int
	maxDumps     int // 0 means unlimited
	dumpInterval uint64
	scale        int
}

// NewFrameDumper creates a new frame dumper
func NewFrameDumper(outputDir string) *FrameDumper {
	return &FrameDumper{
		outputDir:    outputDir,
		dumpInterval: 1,
		scale:        1,
	}
}

// Enable creates the output directory and activates dumping
func (fd *FrameDumper) Enable() error {
	if err := os.MkdirAll(fd.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	fd.dumpEnabled = true
	return nil
}

// Disable deactivates frame dumping
func (fd *FrameDumper) Disable() {
	fd.dumpEnabled = false
}

// SetMaxDumps sets the maximum number of frames to dump
func (fd *FrameDumper) SetMaxDumps(max int) {
	fd.maxDumps = max
}

// SetDumpInterval sets the interval between frame dumps
func (fd *FrameDumper) SetDumpInterval(interval int) {
	if interval < 1 {
		interval = 1
	}
	fd.dumpInterval = uint64(interval)
}

// SetScale sets the integer enlargement applied to dumped images
func (fd *FrameDumper) SetScale(scale int) {
	if scale < 1 {
		scale = 1
	}
	fd.scale = scale
}

// Dumped returns the number of frames written so far
func (fd *FrameDumper) Dumped() int {
	return fd.dumped
}

// DumpFrame writes frame number frameNum if it falls on the dump interval.
// It returns the path written, or "" if the frame was skipped.
func (fd *FrameDumper) DumpFrame(frame *ppu.FrameBuffer, frameNum uint64) (string, error) {
	if !fd.dumpEnabled || frameNum%fd.dumpInterval != 0 {
		return "", nil
	}
	if fd.maxDumps > 0 && fd.dumped >= fd.maxDumps {
		return "", nil
	}

	path := filepath.Join(fd.outputDir, fmt.Sprintf("frame_%06d.png", frameNum))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create frame dump file: %w", err)
	}
	defer file.Close()

	if err := EncodePNG(file, frame, fd.scale); err != nil {
		return "", fmt.Errorf("failed to encode frame %d: %w", frameNum, err)
	}

	fd.dumped++
	return path, nil
}
