package ppu

import (
	"errors"

	"nesppu/internal/memory"
)

// Fatal conditions. Register-protocol and unsupported-mode violations
// during emulation panic with an error wrapping one of these.
var (
	// ErrProtocol reports a register access a conformant program never makes.
	ErrProtocol = errors.New("register protocol violation")

	// ErrUnsupported reports a mode the chip model does not implement.
	ErrUnsupported = memory.ErrUnsupported

	// ErrBadTransfer reports a bulk sprite transfer of the wrong size.
	ErrBadTransfer = errors.New("malformed sprite transfer")
)
