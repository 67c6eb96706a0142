package app

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"nesppu/internal/bus"
	"nesppu/internal/cartridge"
	"nesppu/internal/memory"
	"nesppu/internal/ppu"
	"nesppu/internal/script"
)

// Emulator is one session: a cartridge, the video memory translator, the
// picture processor, the CPU bus and optionally a Lua program standing in
// for the CPU.
type Emulator struct {
	cart *cartridge.Cartridge
	vram *memory.PPUMemory
	ppu  *ppu.PPU
	bus  *bus.Bus
	host *script.Host

	romPath string

	startTime     time.Time
	emulationTime time.Duration
	rendererFails uint64
}

// NewEmulator builds a session around cart. renderer may be nil.
func NewEmulator(cart *cartridge.Cartridge, standard ppu.Standard, renderer ppu.Renderer) (*Emulator, error) {
	vram, err := memory.NewPPUMemory(cart, cart.Mirroring())
	if err != nil {
		return nil, fmt.Errorf("video memory: %w", err)
	}
	p, err := ppu.New(vram, standard)
	if err != nil {
		return nil, fmt.Errorf("picture processor: %w", err)
	}
	if renderer != nil {
		p.SetRenderer(renderer)
	}

	e := &Emulator{
		cart:      cart,
		vram:      vram,
		ppu:       p,
		bus:       bus.New(p, cart),
		startTime: time.Now(),
	}
	glog.Infof("session ready: %s timing, %s mirroring", standard, vram.Mirroring())
	return e, nil
}

// LoadEmulator loads the ROM at romPath and builds a session around it
func LoadEmulator(romPath string, standard ppu.Standard, renderer ppu.Renderer) (*Emulator, error) {
	cart, err := cartridge.LoadFromFile(romPath)
	if err != nil {
		return nil, err
	}
	e, err := NewEmulator(cart, standard, renderer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", romPath, err)
	}
	e.romPath = romPath
	glog.Infof("loaded %s (mapper %d)", romPath, cart.MapperID())
	return e, nil
}

// LoadScript loads a Lua register program from path and runs its init
// function. Core violations raised during init are returned as errors.
func (e *Emulator) LoadScript(path string) error {
	h := script.NewHost(e.bus)
	if err := h.LoadFile(path); err != nil {
		h.Close()
		return err
	}
	return e.attach(h)
}

// LoadScriptString is LoadScript for an in-memory program
func (e *Emulator) LoadScriptString(name, source string) error {
	h := script.NewHost(e.bus)
	if err := h.LoadString(name, source); err != nil {
		h.Close()
		return err
	}
	return e.attach(h)
}

func (e *Emulator) attach(h *script.Host) error {
	if e.host != nil {
		e.host.Close()
	}
	e.host = h
	return h.Init()
}

// RunFrame runs CPU cycles until the picture processor hands off its next
// frame. A fatal core condition is logged and returned as an error; the
// session must not be used afterwards.
func (e *Emulator) RunFrame() (err error) {
	frameStart := time.Now()
	target := e.bus.FrameCount() + 1

	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok {
				perr = fmt.Errorf("%v", r)
			}
			glog.Errorf("frame %d aborted at scanline %d dot %d: %v", target, e.ppu.Scanline(), e.ppu.Cycle(), perr)
			err = fmt.Errorf("frame %d: %w", target, perr)
		}
	}()

	for e.bus.FrameCount() < target {
		e.bus.Tick(1)
		if e.bus.PollNMI() && e.host != nil {
			if err := e.host.NMI(); err != nil {
				return err
			}
		}
	}

	if ferr := e.ppu.FrameError(); ferr != nil {
		e.rendererFails++
		glog.Warningf("frame %d: renderer: %v", target, ferr)
	}
	if e.host != nil {
		if err := e.host.Frame(e.bus.FrameCount()); err != nil {
			return err
		}
	}

	e.emulationTime += time.Since(frameStart)
	return nil
}

// Run runs frames until count frames have completed or an error occurs.
// A count of 0 runs until an error.
func (e *Emulator) Run(count uint64) error {
	for n := uint64(0); count == 0 || n < count; n++ {
		if err := e.RunFrame(); err != nil {
			return err
		}
	}
	return nil
}

// Reset restores power-up register state and clears work RAM. Video
// memory and OAM keep their contents.
func (e *Emulator) Reset() {
	e.bus.Reset()
	e.startTime = time.Now()
	e.emulationTime = 0
}

// Close releases the Lua state
func (e *Emulator) Close() {
	if e.host != nil {
		e.host.Close()
		e.host = nil
	}
}

// PPU returns the picture processor
func (e *Emulator) PPU() *ppu.PPU {
	return e.ppu
}

// Bus returns the CPU bus
func (e *Emulator) Bus() *bus.Bus {
	return e.bus
}

// Script returns the attached Lua host, or nil
func (e *Emulator) Script() *script.Host {
	return e.host
}

// GetFrameCount returns the number of completed frames
func (e *Emulator) GetFrameCount() uint64 {
	return e.bus.FrameCount()
}

// GetCycleCount returns the number of CPU cycles run
func (e *Emulator) GetCycleCount() uint64 {
	return e.bus.CycleCount()
}

// GetRendererFailures returns the number of frames the renderer rejected
func (e *Emulator) GetRendererFailures() uint64 {
	return e.rendererFails
}

// GetUptime returns the time since the session started or was reset
func (e *Emulator) GetUptime() time.Duration {
	return time.Since(e.startTime)
}

// GetAverageFrameTime returns the mean wall time spent per frame
func (e *Emulator) GetAverageFrameTime() time.Duration {
	frames := e.bus.FrameCount()
	if frames == 0 {
		return 0
	}
	return e.emulationTime / time.Duration(frames)
}
