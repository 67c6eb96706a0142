// Package graphics provides an abstraction layer for different rendering backends
package graphics

import (
	"errors"
	"fmt"
	"io"

	"nesppu/internal/ppu"
)

// Backend represents a graphics rendering backend
type Backend interface {
	// Initialize initializes the graphics backend
	Initialize(config Config) error

	// CreateWindow creates a window for rendering
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if running in headless mode
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window is a frame sink. The PPU hands it each completed frame.
type Window interface {
	ppu.Renderer

	// SetTitle sets the window title
	SetTitle(title string)

	// GetSize returns window dimensions
	GetSize() (width, height int)

	// ShouldClose returns true if window should close
	ShouldClose() bool

	// PollEvents returns the input events since the last poll
	PollEvents() []InputEvent

	// Cleanup releases window resources
	Cleanup() error
}

// ErrQuit is returned by an update function to end a window's loop
// normally.
var ErrQuit = errors.New("quit")

// LoopWindow is a window that owns the main loop and calls back into the
// emulator once per display refresh.
type LoopWindow interface {
	Window
	SetEmulatorUpdateFunc(updateFunc func() error)
	Run() error
}

// Config contains configuration for graphics backends
type Config struct {
	// Window configuration
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool
	Filter       string // "nearest", "linear"
	Headless     bool

	// Presentation adjustments (ebitengine)
	Brightness float32
	Contrast   float32
	Saturation float32

	// Frame dumps (headless)
	DumpDir      string
	DumpInterval int
	DumpScale    int
	MaxDumps     int

	// Output is where the terminal backend draws; nil means stdout
	Output io.Writer
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type    InputEventType
	Key     Key
	Pressed bool
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeQuit
)

// Key represents keyboard keys the frontends react to
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace
	KeyF12
)

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine:
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	}
	return nil, fmt.Errorf("unknown graphics backend %q", backendType)
}
