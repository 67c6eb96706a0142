package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"nesppu/internal/bus"
	"nesppu/internal/cartridge"
	"nesppu/internal/memory"
	"nesppu/internal/ppu"
)

func newTestHost(t *testing.T) (*Host, *bus.Bus, *memory.PPUMemory) {
	t.Helper()
	cart, err := cartridge.NewROMBuilder().WithCHRRAM().BuildCartridge()
	if err != nil {
		t.Fatalf("BuildCartridge failed: %v", err)
	}
	mem, err := memory.NewPPUMemory(cart, cart.Mirroring())
	if err != nil {
		t.Fatalf("NewPPUMemory failed: %v", err)
	}
	p, err := ppu.New(mem, ppu.NTSC)
	if err != nil {
		t.Fatalf("ppu.New failed: %v", err)
	}
	b := bus.New(p, cart)
	h := NewHost(b)
	t.Cleanup(h.Close)
	return h, b, mem
}

func TestInitProgramsVideoMemory(t *testing.T) {
	h, _, mem := newTestHost(t)

	src := `
function init()
  ppu_write(6, 0x3F)
  ppu_write(6, 0x00)
  ppu_write(7, 0x0F)
  ppu_write(7, 0x30)
  ppu_write(0x2006, 0x20)
  ppu_write(0x2006, 0x00)
  for i = 1, 4 do
    ppu_write(7, i)
  end
end
`
	if err := h.LoadString("init.lua", src); err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	if err := h.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if mem.Read(0x3F00) != 0x0F || mem.Read(0x3F01) != 0x30 {
		t.Errorf("palette = $%02X $%02X, want $0F $30", mem.Read(0x3F00), mem.Read(0x3F01))
	}
	for i := uint16(0); i < 4; i++ {
		if got := mem.Read(0x2000 + i); got != uint8(i+1) {
			t.Errorf("nametable[%d] = %d, want %d", i, got, i+1)
		}
	}
}

func TestStatusReadAndWait(t *testing.T) {
	h, b, _ := newTestHost(t)

	src := `
status = {}
function init()
  wait(1)
  status[1] = ppu_read(2)
  status[2] = ppu_read(0x200A)
end
`
	if err := h.LoadString("status.lua", src); err != nil {
		t.Fatal(err)
	}
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}

	values, ok := h.state.GetGlobal("status").(*lua.LTable)
	if !ok {
		t.Fatal("status table missing")
	}
	if got := values.RawGetInt(1).String(); got != "128" {
		t.Errorf("first status read = %s, want 128", got)
	}
	if got := values.RawGetInt(2).String(); got != "0" {
		t.Errorf("second status read = %s, want 0", got)
	}
	if b.CycleCount() != 1 {
		t.Errorf("CycleCount = %d, want 1", b.CycleCount())
	}
}

func TestRAMAndDMA(t *testing.T) {
	h, b, _ := newTestHost(t)

	src := `
function init()
  for i = 0, 255 do
    poke(0x300 + i, 255 - i)
  end
  dma(3)
  last = peek(0x3FF)
end
`
	if err := h.LoadString("dma.lua", src); err != nil {
		t.Fatal(err)
	}
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}

	oam := b.PPU().OAM()
	if oam[0] != 255 || oam[255] != 0 {
		t.Errorf("OAM[0], OAM[255] = %d, %d; want 255, 0", oam[0], oam[255])
	}
	if got := h.state.GetGlobal("last").String(); got != "0" {
		t.Errorf("peek($3FF) = %s, want 0", got)
	}
}

func TestCallbacks(t *testing.T) {
	h, b, _ := newTestHost(t)

	src := `
nmis = 0
frames = 0
function init() ppu_write(0, 0x80) end
function on_nmi() nmis = nmis + 1 end
function on_frame(n) frames = n end
`
	if err := h.LoadString("callbacks.lua", src); err != nil {
		t.Fatal(err)
	}
	if err := h.Init(); err != nil {
		t.Fatal(err)
	}

	for b.FrameCount() < 2 {
		b.Tick(1)
		if b.PollNMI() {
			if err := h.NMI(); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := h.Frame(b.FrameCount()); err != nil {
		t.Fatal(err)
	}

	if got := h.state.GetGlobal("nmis").String(); got != "2" {
		t.Errorf("nmis = %s, want 2", got)
	}
	if got := h.state.GetGlobal("frames").String(); got != "2" {
		t.Errorf("frames = %s, want 2", got)
	}
	calls := h.Calls()
	if calls["on_nmi"] != 2 || calls["init"] != 1 || calls["on_frame"] != 1 {
		t.Errorf("Calls() = %v", calls)
	}
}

func TestMissingCallbacksAreIgnored(t *testing.T) {
	h, _, _ := newTestHost(t)
	if err := h.LoadString("empty.lua", "x = 1"); err != nil {
		t.Fatal(err)
	}
	if err := h.Init(); err != nil {
		t.Errorf("Init without init() = %v", err)
	}
	if err := h.NMI(); err != nil {
		t.Errorf("NMI without on_nmi() = %v", err)
	}
}

func TestCoreViolationBecomesError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"read of write-only register", "ppu_read(0)", ppu.ErrProtocol},
		{"write of status", "ppu_write(2, 0)", ppu.ErrProtocol},
		{"8x16 sprites", "ppu_write(0, 0x20)", ppu.ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestHost(t)
			src := "function init()\n" + tt.body + "\nreached = true\nend"
			if err := h.LoadString("bad.lua", src); err != nil {
				t.Fatal(err)
			}
			err := h.Init()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Init error = %v, want %v", err, tt.want)
			}
			if !strings.HasPrefix(err.Error(), "bad.lua: init:") {
				t.Errorf("error %q lacks the program name", err)
			}
			if h.state.GetGlobal("reached").String() == "true" {
				t.Error("program kept running after the violation")
			}
			// The next call starts clean
			if err := h.NMI(); err != nil {
				t.Errorf("NMI after failure = %v", err)
			}
		})
	}
}

func TestLuaErrors(t *testing.T) {
	h, _, _ := newTestHost(t)
	if err := h.LoadString("syntax.lua", "function ("); err == nil {
		t.Error("syntax error not reported")
	}

	h, _, _ = newTestHost(t)
	if err := h.LoadString("runtime.lua", "function init() error('boom') end"); err != nil {
		t.Fatal(err)
	}
	err := h.Init()
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Init error = %v, want boom", err)
	}

	h, _, _ = newTestHost(t)
	if err := h.LoadString("args.lua", "function init() dma(9) end"); err != nil {
		t.Fatal(err)
	}
	if err := h.Init(); err == nil {
		t.Error("dma outside work RAM not rejected")
	}
}

func TestLoadFile(t *testing.T) {
	h, _, mem := newTestHost(t)
	path := filepath.Join(t.TempDir(), "prog.lua")
	src := "ppu_write(6, 0x3F)\nppu_write(6, 0x10)\nppu_write(7, 0x21)\n"
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	if err := h.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	// $3F10 aliases $3F00
	if got := mem.Read(0x3F00); got != 0x21 {
		t.Errorf("palette[0] = $%02X, want $21", got)
	}

	if err := h.LoadFile(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("missing file not reported")
	}
}
