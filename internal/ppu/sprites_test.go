package ppu

import (
	"testing"

	"github.com/go-test/deep"
)

// fillOAM sets every OAM byte to value, which keeps all sprites off row 12
func fillOAM(p *PPU, value uint8) {
	for i := range p.oam {
		p.oam[i] = value
	}
}

func setSprite(p *PPU, n int, y, tile, attr, x uint8) {
	copy(p.oam[n*4:n*4+4], []uint8{y, tile, attr, x})
}

func TestEvaluateSpritesFewMatches(t *testing.T) {
	rig := newTestRig(t, NTSC)
	p := rig.ppu
	fillOAM(p, 0xF0)
	setSprite(p, 5, 10, 0x42, 0x01, 0x30)
	p.oam[63*4] = 0xE0

	p.evaluateSprites(12)

	var want [32]uint8
	for i := range want {
		want[i] = 0xFF
	}
	copy(want[:], []uint8{10, 0x42, 0x01, 0x30})
	want[4] = 0xE0 // Y of the last sprite scanned

	if diff := deep.Equal(p.secondaryOAM, want); diff != nil {
		t.Errorf("secondary OAM differs: %v", diff)
	}
	if p.spriteCount != 1 || p.sprite0InSlot0 {
		t.Errorf("count=%d sprite0=%v, want 1 false", p.spriteCount, p.sprite0InSlot0)
	}
	if p.ppuStatus&statusOverflow != 0 {
		t.Error("overflow set with one sprite on the row")
	}
}

func TestEvaluateSpritesOverflow(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *PPU)
		want  bool
	}{
		{
			name: "nine sprites on the row",
			setup: func(p *PPU) {
				for n := 0; n < 9; n++ {
					setSprite(p, n, 10, 0, 0, uint8(n*8))
				}
			},
			want: true,
		},
		{
			name: "ninth sprite missed after a miss",
			setup: func(p *PPU) {
				for n := 0; n < 8; n++ {
					setSprite(p, n, 10, 0, 0, 0)
				}
				// sprite 9 is on the row, but its tile byte is compared
				setSprite(p, 9, 10, 0x00, 0xF0, 0xF0)
			},
			want: false,
		},
		{
			name: "tile byte read as Y",
			setup: func(p *PPU) {
				for n := 0; n < 8; n++ {
					setSprite(p, n, 10, 0, 0, 0)
				}
				setSprite(p, 9, 0xF0, 10, 0xF0, 0xF0)
			},
			want: true,
		},
		{
			name: "exactly eight sprites",
			setup: func(p *PPU) {
				for n := 0; n < 8; n++ {
					setSprite(p, n, 10, 0, 0, 0)
				}
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(t, NTSC)
			p := rig.ppu
			fillOAM(p, 0xF0)
			tt.setup(p)

			p.evaluateSprites(12)

			if got := p.ppuStatus&statusOverflow != 0; got != tt.want {
				t.Errorf("overflow = %v, want %v", got, tt.want)
			}
			if p.spriteCount != 8 {
				t.Errorf("spriteCount = %d, want 8", p.spriteCount)
			}
			if !p.sprite0InSlot0 {
				t.Error("sprite 0 matched but slot 0 flag not set")
			}
		})
	}
}

func TestEvaluateSpritesKeepsFirstEight(t *testing.T) {
	rig := newTestRig(t, NTSC)
	p := rig.ppu
	fillOAM(p, 0xF0)
	for n := 0; n < 10; n++ {
		setSprite(p, n+3, 10, uint8(n), 0, 0)
	}

	p.evaluateSprites(17)

	for slot := 0; slot < 8; slot++ {
		if got := p.secondaryOAM[slot*4+1]; got != uint8(slot) {
			t.Errorf("slot %d tile = %d, want %d", slot, got, slot)
		}
	}
	if p.sprite0InSlot0 {
		t.Error("slot 0 flagged as sprite 0")
	}
}

func TestSpriteRowRange(t *testing.T) {
	for row := -1; row < 20; row++ {
		want := row >= 10 && row <= 17
		if got := spriteOnRow(10, row); got != want {
			t.Errorf("spriteOnRow(10, %d) = %v, want %v", row, got, want)
		}
	}
	if spriteOnRow(0xFF, 239) {
		t.Error("Y=$FF should never match a visible row")
	}
}

func TestFetchSpriteRowFlip(t *testing.T) {
	rig := newTestRig(t, NTSC)
	p := rig.ppu
	rig.cart.chrData[0x1000+2*16+0] = 0x11
	rig.cart.chrData[0x1000+2*16+7] = 0x77
	rig.cart.chrData[0x1000+2*16+7+8] = 0xEE

	p.ppuCtrl = ctrlSpriteTable
	copy(p.secondaryOAM[:4], []uint8{10, 2, 0x00, 0})
	p.spriteCount = 1
	p.evaluatedRow = 10

	if got := p.fetchSpriteRow(0, 0); got != 0x11 {
		t.Errorf("unflipped row = $%02X, want $11", got)
	}
	p.secondaryOAM[2] = 0x80
	if got := p.fetchSpriteRow(0, 0); got != 0x77 {
		t.Errorf("vertically flipped row = $%02X, want $77", got)
	}
	if got := p.fetchSpriteRow(0, 8); got != 0xEE {
		t.Errorf("flipped high plane = $%02X, want $EE", got)
	}
	if got := p.fetchSpriteRow(1, 0); got != 0 {
		t.Errorf("empty slot row = $%02X, want 0", got)
	}
}

func TestSpritePixel(t *testing.T) {
	tests := []struct {
		name      string
		mask      uint8
		units     []spriteUnit
		x         int
		wantSlot  int
		wantPixel uint8
	}{
		{"opaque", maskSprites, []spriteUnit{{x: 20, attr: 0x02, low: 0x80}}, 20, 0, 0x09},
		{"transparent column", maskSprites, []spriteUnit{{x: 20, low: 0x80}}, 21, -1, 0},
		{"horizontal flip", maskSprites, []spriteUnit{{x: 20, attr: 0x40, low: 0x80}}, 27, 0, 0x01},
		{"high plane", maskSprites, []spriteUnit{{x: 20, high: 0x01}}, 27, 0, 0x02},
		{"lower slot wins", maskSprites, []spriteUnit{{x: 18, attr: 1, low: 0x20}, {x: 20, attr: 2, low: 0x80}}, 20, 0, 0x05},
		{"skips transparent slot", maskSprites, []spriteUnit{{x: 18}, {x: 20, attr: 3, low: 0x80}}, 20, 1, 0x0D},
		{"left column clipped", maskSprites, []spriteUnit{{x: 0, low: 0xFF}}, 4, -1, 0},
		{"left column shown", maskSprites | maskSpriteLeft, []spriteUnit{{x: 0, low: 0xFF}}, 4, 0, 0x01},
		{"sprites disabled", maskBg, []spriteUnit{{x: 20, low: 0x80}}, 20, -1, 0},
		{"right edge", maskSprites, []spriteUnit{{x: 255, low: 0x80}}, 255, 0, 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &PPU{ppuMask: tt.mask}
			copy(p.sprites[:], tt.units)
			p.activeSprites = len(tt.units)

			slot, pixel := p.spritePixel(tt.x)
			if slot != tt.wantSlot || pixel != tt.wantPixel {
				t.Errorf("spritePixel(%d) = %d, $%02X; want %d, $%02X", tt.x, slot, pixel, tt.wantSlot, tt.wantPixel)
			}
		})
	}
}

// TestSpriteAppearsBelowItsY runs a whole frame with one sprite and checks
// that it is drawn starting one line below its OAM Y.
func TestSpriteAppearsBelowItsY(t *testing.T) {
	rig := newTestRig(t, NTSC)
	p := rig.ppu

	rig.cart.chrData[0x0010] = 0xFF // tile 1, row 0
	setAddress(p, 0x3F11)
	p.Write(0x2007, 0x2A)

	oam := make([]byte, 256)
	for i := range oam {
		oam[i] = 0xFF
	}
	copy(oam, []byte{9, 1, 0x00, 20})
	if err := p.WriteOAMDMA(oam); err != nil {
		t.Fatalf("WriteOAMDMA failed: %v", err)
	}
	p.Write(0x2001, maskSprites|maskSpriteLeft)

	for i := 0; len(rig.renderer.frames) == 0; i++ {
		if i > 100000 {
			t.Fatal("no frame completed")
		}
		p.Run(1)
	}
	frame := rig.renderer.frames[0]
	backdrop := Palette[rig.mem.Read(0x3F00)&0x3F]

	pixels := []struct {
		x, y int
		want uint32
	}{
		{20, 10, Palette[0x2A]},
		{27, 10, Palette[0x2A]},
		{19, 10, backdrop},
		{28, 10, backdrop},
		{20, 9, backdrop},
		{20, 11, backdrop},
	}
	for _, px := range pixels {
		if got := frame[px.y*ScreenWidth+px.x]; got != px.want {
			t.Errorf("pixel (%d,%d) = %06X, want %06X", px.x, px.y, got, px.want)
		}
	}
	if p.ppuStatus&statusSprite0Hit != 0 {
		t.Error("sprite 0 hit without an opaque background")
	}
}
