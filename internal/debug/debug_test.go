package debug

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"nesppu/internal/ppu"
)

func testFrame() *ppu.FrameBuffer {
	var frame ppu.FrameBuffer
	for i := range frame {
		frame[i] = ppu.Palette[0x0F]
	}
	frame[0] = ppu.Palette[0x16]
	frame[ppu.ScreenWidth*ppu.ScreenHeight-1] = ppu.Palette[0x2A]
	return &frame
}

func TestEncodePNG(t *testing.T) {
	tests := []struct {
		scale      int
		wantWidth  int
		wantHeight int
	}{
		{1, 256, 240},
		{3, 768, 720},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		if err := EncodePNG(&buf, testFrame(), tt.scale); err != nil {
			t.Fatalf("EncodePNG(scale %d) failed: %v", tt.scale, err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			t.Fatalf("png.Decode failed: %v", err)
		}
		b := img.Bounds()
		if b.Dx() != tt.wantWidth || b.Dy() != tt.wantHeight {
			t.Errorf("scale %d: size %dx%d, want %dx%d", tt.scale, b.Dx(), b.Dy(), tt.wantWidth, tt.wantHeight)
		}

		// The top-left pixel is $16 (B5 31 20) across the whole scaled block
		for _, p := range [][2]int{{0, 0}, {tt.scale - 1, tt.scale - 1}} {
			r, g, bl, _ := img.At(p[0], p[1]).RGBA()
			if r>>8 != 0xB5 || g>>8 != 0x31 || bl>>8 != 0x20 {
				t.Errorf("scale %d: pixel %v = %02X%02X%02X", tt.scale, p, r>>8, g>>8, bl>>8)
			}
		}
	}
}

func TestColorHistogram(t *testing.T) {
	got := ColorHistogram(testFrame())
	want := map[uint32]int{
		ppu.Palette[0x0F]: 256*240 - 2,
		ppu.Palette[0x16]: 1,
		ppu.Palette[0x2A]: 1,
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("histogram differs: %v", diff)
	}
}

func TestFrameDumper(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	fd := NewFrameDumper(dir)
	frame := testFrame()

	if path, err := fd.DumpFrame(frame, 1); path != "" || err != nil {
		t.Errorf("disabled dumper wrote %q, %v", path, err)
	}

	if err := fd.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	fd.SetDumpInterval(2)
	fd.SetMaxDumps(2)

	var written []string
	for n := uint64(1); n <= 8; n++ {
		path, err := fd.DumpFrame(frame, n)
		if err != nil {
			t.Fatalf("DumpFrame(%d) failed: %v", n, err)
		}
		if path != "" {
			written = append(written, filepath.Base(path))
		}
	}

	want := []string{"frame_000002.png", "frame_000004.png"}
	if diff := deep.Equal(written, want); diff != nil {
		t.Errorf("written files differ: %v", diff)
	}
	if fd.Dumped() != 2 {
		t.Errorf("Dumped() = %d, want 2", fd.Dumped())
	}
	if _, err := os.Stat(filepath.Join(dir, "frame_000002.png")); err != nil {
		t.Errorf("dump file missing: %v", err)
	}
}

func TestDecodeOAM(t *testing.T) {
	var oam [256]uint8
	for i := range oam {
		oam[i] = 0xFF
	}
	copy(oam[8:], []uint8{0x20, 0x05, 0xE2, 0x40})

	want := []*Sprite{{Index: 2, Y: 0x20, Tile: 0x05, Palette: 2, Behind: true, FlipH: true, FlipV: true, X: 0x40}}
	if diff := deep.Equal(DecodeOAM(oam), want); diff != nil {
		t.Errorf("DecodeOAM differs: %v", diff)
	}
}

func TestWriteStateGraph(t *testing.T) {
	var buf bytes.Buffer
	state := &ChipState{
		Registers: ppu.Snapshot{Standard: "NTSC", Scanline: 21, Control: 0x90},
		Sprites:   []*Sprite{{Index: 0, Y: 10}},
	}
	WriteStateGraph(&buf, state)

	out := buf.String()
	if !strings.Contains(out, "digraph") {
		t.Errorf("output is not a Graphviz digraph:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "state.dot")
	if err := WriteStateGraphFile(path, state); err != nil {
		t.Fatalf("WriteStateGraphFile failed: %v", err)
	}
}
