package graphics

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"nesppu/internal/debug"
	"nesppu/internal/ppu"
)

const (
	defaultTerminalCols = 80
	defaultTerminalRows = 24
)

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow draws frames with 24-bit ANSI colors. Each character cell
// shows two pixels stacked vertically using the upper half block.
type TerminalWindow struct {
	title      string
	width      int
	height     int
	running    bool
	out        io.Writer
	fd         int
	frameCount uint64
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates a terminal "window" on the configured output
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	w := &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
		out:     b.config.Output,
		fd:      -1,
	}
	if w.out == nil {
		w.out = os.Stdout
	}
	if f, ok := w.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		w.fd = int(f.Fd())
	}
	return w, nil
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

func (b *TerminalBackend) IsHeadless() bool {
	return true
}

func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// SetTitle sets the terminal title with an OSC sequence
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Fprintf(w.out, "\x1b]0;%s\x07", title)
}

func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

func (w *TerminalWindow) ShouldClose() bool {
	return !w.running
}

func (w *TerminalWindow) PollEvents() []InputEvent {
	return nil
}

// cells returns the drawing area in character cells. One row is kept
// for the status line.
func (w *TerminalWindow) cells() (cols, rows int) {
	cols, rows = defaultTerminalCols, defaultTerminalRows
	if w.fd >= 0 {
		if c, r, err := term.GetSize(w.fd); err == nil && c > 0 && r > 1 {
			cols, rows = c, r
		}
	}
	return min(cols, ppu.ScreenWidth), min(rows-1, ppu.ScreenHeight/2)
}

// RenderFrame draws the frame scaled to the terminal
func (w *TerminalWindow) RenderFrame(frame *ppu.FrameBuffer) error {
	w.frameCount++
	cols, rows := w.cells()
	img := debug.ResizeImage(debug.FrameImage(frame), cols, rows*2)

	bw := bufio.NewWriter(w.out)
	bw.WriteString("\x1b[H")
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top := img.RGBAAt(x, 2*y)
			bottom := img.RGBAAt(x, 2*y+1)
			fmt.Fprintf(bw, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bottom.R, bottom.G, bottom.B)
		}
		bw.WriteString("\x1b[0m\n")
	}
	fmt.Fprintf(bw, "%s  frame %d\x1b[K", w.title, w.frameCount)
	return bw.Flush()
}

// Cleanup resets terminal attributes
func (w *TerminalWindow) Cleanup() error {
	w.running = false
	_, err := io.WriteString(w.out, "\x1b[0m\n")
	return err
}
