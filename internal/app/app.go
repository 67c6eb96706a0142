package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"nesppu/internal/graphics"
	"nesppu/internal/statsview"
)

// Application owns the renderer sink and the emulation session
type Application struct {
	config   *Config
	backend  graphics.Backend
	window   graphics.Window
	emulator *Emulator

	romPath    string
	frameLimit uint64
	running    atomic.Bool

	startTime   time.Time
	lastFPSTime time.Time
	lastFPSAt   uint64
	currentFPS  float64
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates the configured graphics backend and its window
func NewApplication(config *Config) (*Application, error) {
	if err := config.Validate(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "validation", Err: err}
	}

	app := &Application{
		config:    config,
		startTime: time.Now(),
	}
	if err := app.initializeGraphicsBackend(); err != nil {
		return nil, &ApplicationError{Component: "graphics", Operation: "backend setup", Err: err}
	}
	return app, nil
}

// initializeGraphicsBackend creates the backend, falling back to headless
// when the windowed backend cannot start.
func (app *Application) initializeGraphicsBackend() error {
	backendType := graphics.BackendType(app.config.Video.Backend)
	backend, err := graphics.CreateBackend(backendType)
	if err != nil {
		return err
	}

	graphicsConfig := app.config.GraphicsConfig()
	if err := backend.Initialize(graphicsConfig); err != nil {
		if backendType != graphics.BackendEbitengine {
			return fmt.Errorf("failed to initialize graphics backend: %w", err)
		}
		glog.Warningf("%s backend failed (%v), falling back to headless", backend.GetName(), err)
		backend = graphics.NewHeadlessBackend()
		graphicsConfig.Headless = true
		if err := backend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %w", err)
		}
	}

	window, err := backend.CreateWindow(graphicsConfig.WindowTitle, graphicsConfig.WindowWidth, graphicsConfig.WindowHeight)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	app.backend = backend
	app.window = window
	glog.Infof("%s backend ready", backend.GetName())
	return nil
}

// LoadROM builds the emulation session for romPath and starts the
// configured Lua program, if any.
func (app *Application) LoadROM(romPath string) error {
	standard, err := app.config.TimingStandard()
	if err != nil {
		return &ApplicationError{Component: "config", Operation: "standard", Err: err}
	}

	emulator, err := LoadEmulator(romPath, standard, app.window)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load", Err: err}
	}
	if app.emulator != nil {
		app.emulator.Close()
	}
	app.emulator = emulator
	app.romPath = romPath

	if path := app.config.Script.Path; path != "" {
		if err := emulator.LoadScript(path); err != nil {
			return &ApplicationError{Component: "script", Operation: "init", Err: err}
		}
		glog.Infof("register program %s loaded", path)
	}

	romName := filepath.Base(romPath)
	app.window.SetTitle(fmt.Sprintf("%s - %s", app.config.Window.Title, romName))
	return nil
}

// SetFrameLimit stops Run after n frames. 0 means no limit.
func (app *Application) SetFrameLimit(n uint64) {
	app.frameLimit = n
}

// Run drives the session until the window closes, the frame limit is
// reached or the core fails.
func (app *Application) Run() error {
	if app.emulator == nil {
		return errors.New("no ROM loaded")
	}
	if app.config.Debug.Statsview {
		statsview.Launch(app.config.Debug.StatsviewAddr, os.Stderr)
	}

	app.running.Store(true)
	app.lastFPSTime = time.Now()
	defer app.running.Store(false)

	if lw, ok := app.window.(graphics.LoopWindow); ok {
		lw.SetEmulatorUpdateFunc(app.updateEmulator)
		return lw.Run()
	}

	for app.running.Load() && !app.window.ShouldClose() {
		if err := app.updateEmulator(); err != nil {
			if errors.Is(err, graphics.ErrQuit) {
				return nil
			}
			return err
		}
		app.processInput()
	}
	return nil
}

// updateEmulator runs one frame. It returns graphics.ErrQuit once the
// frame limit is reached.
func (app *Application) updateEmulator() error {
	if !app.running.Load() {
		return graphics.ErrQuit
	}
	if app.frameLimit > 0 && app.emulator.GetFrameCount() >= app.frameLimit {
		return graphics.ErrQuit
	}
	if err := app.emulator.RunFrame(); err != nil {
		return err
	}
	app.updateFPS()
	return nil
}

func (app *Application) processInput() {
	for _, event := range app.window.PollEvents() {
		if event.Type == graphics.InputEventTypeQuit {
			app.Stop()
		}
	}
}

func (app *Application) updateFPS() {
	frames := app.emulator.GetFrameCount()
	if frames-app.lastFPSAt < 60 {
		return
	}
	now := time.Now()
	if elapsed := now.Sub(app.lastFPSTime).Seconds(); elapsed > 0 {
		app.currentFPS = float64(frames-app.lastFPSAt) / elapsed
	}
	app.lastFPSTime = now
	app.lastFPSAt = frames
	glog.V(1).Infof("frame %d: %.1f fps", frames, app.currentFPS)
}

// Stop ends Run after the current frame. It is safe to call from another
// goroutine.
func (app *Application) Stop() {
	app.running.Store(false)
}

// IsRunning returns whether Run is active
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// GetFPS returns the frame rate measured over the last 60 frames
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetUptime returns the time since the application was created
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the loaded ROM path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetEmulator returns the session, or nil before LoadROM
func (app *Application) GetEmulator() *Emulator {
	return app.emulator
}

// GetWindow returns the renderer sink
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// Cleanup writes the configured debug outputs and releases all resources
func (app *Application) Cleanup() error {
	var errs []error

	if app.emulator != nil {
		if path := app.config.Debug.StateGraph; path != "" {
			if err := app.emulator.WriteStateGraph(path); err != nil {
				errs = append(errs, err)
			} else {
				glog.Infof("state graph written to %s", path)
			}
		}
		if path := app.config.Debug.StateDump; path != "" {
			if err := SaveStateRecord(path, app.emulator.CaptureState()); err != nil {
				errs = append(errs, err)
			} else {
				glog.Infof("state record written to %s", path)
			}
		}
		app.emulator.Close()
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.backend != nil {
		if err := app.backend.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
