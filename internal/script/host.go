// Package script runs Lua register programs that stand in for the CPU: they
// program the PPU through the bus and react to NMI and frame events.
//
// A program may define these globals:
//
//	init()        called once after loading
//	on_nmi()      called whenever the PPU raises NMI
//	on_frame(n)   called after frame n has been handed to the renderer
//
// and may call:
//
//	ppu_read(reg), ppu_write(reg, v)   PPU registers; reg is 0-7 or a CPU address
//	peek(addr), poke(addr, v)          work RAM
//	dma(page)                          sprite DMA from a work RAM page
//	wait(cycles)                       let the PPU run for CPU cycles
//	frame()                            completed frame count
//	log(msg)                           write msg to the log
package script

import (
	"fmt"

	"github.com/golang/glog"
	lua "github.com/yuin/gopher-lua"

	"nesppu/internal/bus"
)

// Host owns a Lua state bound to a bus
type Host struct {
	name  string
	state *lua.LState
	bus   *bus.Bus

	// fatal holds a Go panic raised by the core during a host call
	fatal error

	calls map[string]uint64
}

// NewHost creates a host with the register API installed
func NewHost(b *bus.Bus) *Host {
	h := &Host{
		name:  "<none>",
		state: lua.NewState(),
		bus:   b,
		calls: make(map[string]uint64),
	}

	for name, fn := range map[string]lua.LGFunction{
		"ppu_read":  h.ppuRead,
		"ppu_write": h.ppuWrite,
		"peek":      h.peek,
		"poke":      h.poke,
		"dma":       h.dma,
		"wait":      h.wait,
		"frame":     h.frame,
		"log":       h.log,
	} {
		h.state.SetGlobal(name, h.state.NewFunction(fn))
	}
	return h
}

// Close releases the Lua state
func (h *Host) Close() {
	h.state.Close()
}

// LoadFile runs a program file's top-level chunk
func (h *Host) LoadFile(path string) error {
	h.name = path
	return h.check("load", h.state.DoFile(path))
}

// LoadString runs a program given as source text
func (h *Host) LoadString(name, source string) error {
	h.name = name
	return h.check("load", h.state.DoString(source))
}

// Init calls the program's init function, if defined
func (h *Host) Init() error {
	return h.call("init")
}

// NMI calls the program's on_nmi function, if defined
func (h *Host) NMI() error {
	return h.call("on_nmi")
}

// Frame calls the program's on_frame function with the frame number
func (h *Host) Frame(n uint64) error {
	return h.call("on_frame", lua.LNumber(n))
}

// Calls returns how many times each callback has run
func (h *Host) Calls() map[string]uint64 {
	out := make(map[string]uint64, len(h.calls))
	for k, v := range h.calls {
		out[k] = v
	}
	return out
}

func (h *Host) call(name string, args ...lua.LValue) error {
	fn := h.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	h.calls[name]++
	err := h.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	return h.check(name, err)
}

// check converts the outcome of a Lua call to a Go error. A core panic
// captured during the call takes precedence so callers can match its
// sentinel.
func (h *Host) check(where string, err error) error {
	if fatal := h.fatal; fatal != nil {
		h.fatal = nil
		return fmt.Errorf("%s: %s: %w", h.name, where, fatal)
	}
	if err != nil {
		return fmt.Errorf("%s: %s: %w", h.name, where, err)
	}
	return nil
}

// guard runs f, turning a core panic into a Lua error that unwinds the
// program. The original error is kept in h.fatal.
func (h *Host) guard(L *lua.LState, f func()) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			h.fatal = err
			L.RaiseError("%v", err)
		}
	}()
	f()
}

func registerAddress(reg int) uint16 {
	if reg >= 0 && reg < 8 {
		return 0x2000 + uint16(reg)
	}
	return uint16(reg)
}

func (h *Host) ppuRead(L *lua.LState) int {
	address := registerAddress(L.CheckInt(1))
	var value uint8
	h.guard(L, func() { value = h.bus.Read(address) })
	L.Push(lua.LNumber(value))
	return 1
}

func (h *Host) ppuWrite(L *lua.LState) int {
	address := registerAddress(L.CheckInt(1))
	value := uint8(L.CheckInt(2))
	h.guard(L, func() { h.bus.Write(address, value) })
	return 0
}

func (h *Host) peek(L *lua.LState) int {
	address := uint16(L.CheckInt(1)) & 0x07FF
	L.Push(lua.LNumber(h.bus.Read(address)))
	return 1
}

func (h *Host) poke(L *lua.LState) int {
	address := uint16(L.CheckInt(1)) & 0x07FF
	h.bus.Write(address, uint8(L.CheckInt(2)))
	return 0
}

func (h *Host) dma(L *lua.LState) int {
	page := L.CheckInt(1)
	if page < 0 || page > 0x07 {
		L.ArgError(1, "page must be in work RAM (0-7)")
	}
	h.guard(L, func() { h.bus.Write(0x4014, uint8(page)) })
	return 0
}

func (h *Host) wait(L *lua.LState) int {
	cycles := L.CheckInt(1)
	if cycles < 0 {
		L.ArgError(1, "negative cycle count")
	}
	h.guard(L, func() { h.bus.Tick(cycles) })
	return 0
}

func (h *Host) frame(L *lua.LState) int {
	L.Push(lua.LNumber(h.bus.FrameCount()))
	return 1
}

func (h *Host) log(L *lua.LState) int {
	glog.Infof("%s: %s", h.name, L.CheckString(1))
	return 0
}
