package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/bradleyjkemp/memviz"

	"nesppu/internal/ppu"
)

// Sprite is one decoded OAM entry
type Sprite struct {
	Index   int
	Y       uint8
	Tile    uint8
	Palette uint8
	Behind  bool
	FlipH   bool
	FlipV   bool
	X       uint8
}

// ChipState groups the values shown in a state graph
type ChipState struct {
	Registers ppu.Snapshot
	Palette   [32]uint8
	Sprites   []*Sprite
}

// DecodeOAM decodes the visible sprites in oam. Sprites with Y >= $EF
// never reach a visible line and are skipped.
func DecodeOAM(oam [256]uint8) []*Sprite {
	var sprites []*Sprite
	for i := 0; i < 64; i++ {
		entry := oam[i*4 : i*4+4]
		if entry[0] >= 0xEF {
			continue
		}
		sprites = append(sprites, &Sprite{
			Index:   i,
			Y:       entry[0],
			Tile:    entry[1],
			Palette: entry[2] & 0x03,
			Behind:  entry[2]&0x20 != 0,
			FlipH:   entry[2]&0x40 != 0,
			FlipV:   entry[2]&0x80 != 0,
			X:       entry[3],
		})
	}
	return sprites
}

// WriteStateGraph writes a Graphviz description of state to w
func WriteStateGraph(w io.Writer, state *ChipState) {
	memviz.Map(w, state)
}

// WriteStateGraphFile writes the state graph to path
func WriteStateGraphFile(path string, state *ChipState) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create state graph: %w", err)
	}
	defer file.Close()

	WriteStateGraph(file, state)
	return nil
}
