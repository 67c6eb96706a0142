//go:build !headless
// +build !headless

package graphics

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/golang/glog"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"

	"nesppu/internal/debug"
	"nesppu/internal/ppu"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	paused             bool
	events             []InputEvent
	emulatorUpdateFunc func() error

	processor      *VideoProcessor
	lastFrame      ppu.FrameBuffer
	clipboardReady bool
}

// EbitengineGame implements ebiten.Game and presents the last frame
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	windowWidth  int
	windowHeight int
	drawCount    uint64

	pixels *image.RGBA
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("ebitengine backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		windowWidth:  width,
		windowHeight: height,
		frameImage:   ebiten.NewImage(ppu.ScreenWidth, ppu.ScreenHeight),
		pixels:       image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight)),
	}

	window := &EbitengineWindow{
		backend:   b,
		title:     title,
		width:     width,
		height:    height,
		game:      game,
		running:   true,
		processor: NewVideoProcessor(b.config.Brightness, b.config.Contrast, b.config.Saturation),
	}
	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)
	ebiten.SetScreenClearedEveryFrame(true)
	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns the events gathered since the last call
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame uploads a completed frame to the GPU image
func (w *EbitengineWindow) RenderFrame(frame *ppu.FrameBuffer) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	w.lastFrame = *frame

	processed := w.processor.ProcessFrame(frame)
	img := w.game.pixels
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			r, g, b := ppu.RGB(processed[y*ppu.ScreenWidth+x])
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xFF})
		}
	}
	w.game.frameImage.WritePixels(img.Pix)
	return nil
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop. It returns when the window is
// closed, Escape is pressed or the update function fails.
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	err := ebiten.RunGame(w.game)
	if err == ebiten.Termination {
		return nil
	}
	return err
}

// SetEmulatorUpdateFunc sets the function called once per tick
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// copyFrame places the last frame on the clipboard as a PNG
func (w *EbitengineWindow) copyFrame() error {
	if !w.clipboardReady {
		if err := clipboard.Init(); err != nil {
			return fmt.Errorf("clipboard unavailable: %w", err)
		}
		w.clipboardReady = true
	}

	var buf bytes.Buffer
	if err := debug.EncodePNG(&buf, &w.lastFrame, 2); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtImage, buf.Bytes())
	return nil
}

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}
	if !g.window.running {
		return ebiten.Termination
	}

	if err := g.processInput(); err != nil {
		return err
	}
	if g.window.paused || g.window.emulatorUpdateFunc == nil {
		return nil
	}

	if err := g.window.emulatorUpdateFunc(); err != nil {
		if errors.Is(err, ErrQuit) {
			g.window.running = false
			return ebiten.Termination
		}
		glog.Errorf("emulator update failed: %v", err)
		return err
	}
	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)

	scaleX := float64(g.windowWidth) / ppu.ScreenWidth
	scaleY := float64(g.windowHeight) / ppu.ScreenHeight
	scale := min(scaleX, scaleY)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(
		(float64(g.windowWidth)-ppu.ScreenWidth*scale)/2,
		(float64(g.windowHeight)-ppu.ScreenHeight*scale)/2,
	)
	if g.window.backend.config.Filter == "linear" {
		op.Filter = ebiten.FilterLinear
	}
	screen.DrawImage(g.frameImage, op)

	g.drawCount++
	if g.drawCount%1800 == 0 {
		glog.V(1).Infof("drew %d frames at %.2fx", g.drawCount, scale)
	}
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

func (g *EbitengineGame) processInput() error {
	w := g.window

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || ebiten.IsWindowBeingClosed() {
		w.events = append(w.events, InputEvent{Type: InputEventTypeQuit})
		w.running = false
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		w.paused = !w.paused
		w.events = append(w.events, InputEvent{Type: InputEventTypeKey, Key: KeySpace, Pressed: true})
		glog.Infof("paused: %v", w.paused)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		w.events = append(w.events, InputEvent{Type: InputEventTypeKey, Key: KeyF12, Pressed: true})
		if err := w.copyFrame(); err != nil {
			glog.Warningf("copy frame: %v", err)
		} else {
			glog.Info("frame copied to clipboard")
		}
	}

	return nil
}
