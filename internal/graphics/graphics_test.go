package graphics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nesppu/internal/ppu"
)

func solidFrame(color uint8) *ppu.FrameBuffer {
	var frame ppu.FrameBuffer
	for i := range frame {
		frame[i] = ppu.Palette[color]
	}
	return &frame
}

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		backendType BackendType
		wantName    string
		wantErr     bool
	}{
		{BackendHeadless, "Headless", false},
		{BackendTerminal, "Terminal", false},
		{BackendEbitengine, "", false},
		{"opengl", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.backendType), func(t *testing.T) {
			backend, err := CreateBackend(tt.backendType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateBackend(%q) error = %v, wantErr %v", tt.backendType, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.wantName != "" && backend.GetName() != tt.wantName {
				t.Errorf("GetName() = %q, want %q", backend.GetName(), tt.wantName)
			}
		})
	}
}

func TestBackendLifecycle(t *testing.T) {
	backend := NewHeadlessBackend()
	if _, err := backend.CreateWindow("early", 256, 240); err == nil {
		t.Error("CreateWindow before Initialize should fail")
	}
	if err := backend.Initialize(Config{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := backend.Initialize(Config{}); err == nil {
		t.Error("second Initialize should fail")
	}
	if !backend.IsHeadless() {
		t.Error("headless backend reports a display")
	}
}

func TestHeadlessWindow(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	backend := NewHeadlessBackend()
	if err := backend.Initialize(Config{DumpDir: dir, DumpInterval: 2, MaxDumps: 1, DumpScale: 2}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	window, err := backend.CreateWindow("test", 256, 240)
	if err != nil {
		t.Fatalf("CreateWindow failed: %v", err)
	}

	var r ppu.Renderer = window
	for i := 0; i < 5; i++ {
		if err := r.RenderFrame(solidFrame(0x21)); err != nil {
			t.Fatalf("RenderFrame %d failed: %v", i, err)
		}
	}

	hw := window.(*HeadlessWindow)
	if hw.FrameCount() != 5 {
		t.Errorf("FrameCount() = %d, want 5", hw.FrameCount())
	}
	want := filepath.Join(dir, "frame_000002.png")
	if hw.LastDump() != want {
		t.Errorf("LastDump() = %q, want %q", hw.LastDump(), want)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("%d files dumped, want 1", len(entries))
	}

	if window.ShouldClose() {
		t.Error("window closed before Cleanup")
	}
	window.Cleanup()
	if !window.ShouldClose() {
		t.Error("window still open after Cleanup")
	}
}

func TestTerminalWindow(t *testing.T) {
	var out bytes.Buffer
	backend := NewTerminalBackend()
	if err := backend.Initialize(Config{Output: &out}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	window, err := backend.CreateWindow("nesppu", 256, 240)
	if err != nil {
		t.Fatalf("CreateWindow failed: %v", err)
	}

	if err := window.RenderFrame(solidFrame(0x16)); err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}

	text := out.String()
	if got, want := strings.Count(text, "▀"), defaultTerminalCols*(defaultTerminalRows-1); got != want {
		t.Errorf("drew %d cells, want %d", got, want)
	}
	// $16 is B5 31 20
	if !strings.Contains(text, "\x1b[38;2;181;49;32m\x1b[48;2;181;49;32m") {
		t.Error("cell colors do not match the frame")
	}
	if !strings.HasSuffix(text, "nesppu  frame 1\x1b[K") {
		t.Errorf("missing status line, output ends with %q", text[len(text)-32:])
	}
}

func TestVideoProcessor(t *testing.T) {
	frame := solidFrame(0x16)

	t.Run("identity", func(t *testing.T) {
		vp := NewVideoProcessor(1, 1, 1)
		if got := vp.ProcessFrame(frame); got != frame {
			t.Error("neutral settings should return the input frame")
		}
	})

	t.Run("zero brightness", func(t *testing.T) {
		vp := NewVideoProcessor(0, 1, 1)
		if got := vp.ProcessFrame(frame)[0]; got != 0 {
			t.Errorf("pixel = %06X, want 000000", got)
		}
	})

	t.Run("zero contrast", func(t *testing.T) {
		vp := NewVideoProcessor(1, 0, 1)
		if got := vp.ProcessFrame(frame)[100]; got != 0x808080 {
			t.Errorf("pixel = %06X, want 808080", got)
		}
	})

	t.Run("zero saturation", func(t *testing.T) {
		vp := NewVideoProcessor(1, 1, 0)
		r, g, b := ppu.RGB(vp.ProcessFrame(frame)[0])
		if r != g || g != b {
			t.Errorf("pixel = %02X%02X%02X, want gray", r, g, b)
		}
	})

	t.Run("setters", func(t *testing.T) {
		vp := NewVideoProcessor(1, 1, 1)
		vp.SetBrightness(2)
		vp.SetContrast(1)
		vp.SetSaturation(1)
		if vp.Identity() {
			t.Error("processor still reports identity after SetBrightness")
		}
	})
}

func TestHSLRoundTrip(t *testing.T) {
	for _, c := range []uint8{0x01, 0x16, 0x2A, 0x30, 0x0F} {
		r8, g8, b8 := ppu.RGB(ppu.Palette[c])
		h, s, l := rgbToHSL(float64(r8)/255, float64(g8)/255, float64(b8)/255)
		r, g, b := hslToRGB(h, s, l)
		for i, pair := range [][2]float64{{r, float64(r8)}, {g, float64(g8)}, {b, float64(b8)}} {
			if d := pair[0]*255 - pair[1]; d > 0.5 || d < -0.5 {
				t.Errorf("color $%02X channel %d: got %.2f, want %.0f", c, i, pair[0]*255, pair[1])
			}
		}
	}
}
