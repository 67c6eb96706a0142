package graphics

import (
	"fmt"

	"github.com/golang/glog"

	"nesppu/internal/debug"
	"nesppu/internal/ppu"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow counts frames and optionally dumps them as PNG files
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount uint64
	dumper     *debug.FrameDumper
	lastDump   string
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates a headless "window". Frames are dumped only when
// a dump directory is configured.
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	w := &HeadlessWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
	}

	if b.config.DumpDir != "" {
		w.dumper = debug.NewFrameDumper(b.config.DumpDir)
		w.dumper.SetDumpInterval(b.config.DumpInterval)
		w.dumper.SetMaxDumps(b.config.MaxDumps)
		w.dumper.SetScale(b.config.DumpScale)
		if err := w.dumper.Enable(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless always returns true
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents never reports events
func (w *HeadlessWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame records a completed frame
func (w *HeadlessWindow) RenderFrame(frame *ppu.FrameBuffer) error {
	w.frameCount++

	if glog.V(2) {
		glog.Infof("frame %d: %d distinct colors", w.frameCount, len(debug.ColorHistogram(frame)))
	}

	if w.dumper == nil {
		return nil
	}
	path, err := w.dumper.DumpFrame(frame, w.frameCount)
	if err != nil {
		return err
	}
	if path != "" {
		w.lastDump = path
		glog.V(1).Infof("dumped frame %d to %s", w.frameCount, path)
	}
	return nil
}

// Cleanup stops the window
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// FrameCount returns the number of frames received
func (w *HeadlessWindow) FrameCount() uint64 {
	return w.frameCount
}

// LastDump returns the path of the most recent dump, or ""
func (w *HeadlessWindow) LastDump() string {
	return w.lastDump
}
