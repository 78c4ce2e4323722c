// Package emulator defines the narrow surface the netplay core needs
// from a cycle-accurate emulator: raw memory access, CPU register
// access, save states, and PC-addressed traps.
package emulator

// TrapFunc runs with mutable access to the core when the CPU reaches
// the trapped address. Handlers run on the emulator's own thread.
type TrapFunc func(Core)

// Trap binds a handler to a code address
type Trap struct {
	Addr    uint32
	Handler TrapFunc
}

// Core is an opaque emulator instance
type Core interface {
	// RawReadRange reads n bytes at addr in the given segment
	// (-1 for the currently mapped one)
	RawReadRange(addr uint32, seg int, n int) []byte

	// RawRead8 reads one byte
	RawRead8(addr uint32, seg int) uint8

	// RawRead16 reads a little-endian halfword
	RawRead16(addr uint32, seg int) uint16

	// RawRead32 reads a little-endian word
	RawRead32(addr uint32, seg int) uint32

	// RawWriteRange writes bytes at addr
	RawWriteRange(addr uint32, seg int, buf []byte)

	// RawWrite8 writes one byte
	RawWrite8(addr uint32, seg int, v uint8)

	// RawWrite16 writes a little-endian halfword
	RawWrite16(addr uint32, seg int, v uint16)

	// RawWrite32 writes a little-endian word
	RawWrite32(addr uint32, seg int, v uint32)

	// ThumbPC returns the current thumb program counter
	ThumbPC() uint32

	// SetThumbPC redirects execution. Advancing by one thumb BL pair
	// (+4) skips the trapped call.
	SetThumbPC(pc uint32)

	// GPR reads a general-purpose register
	GPR(i int) int32

	// SetGPR writes a general-purpose register
	SetGPR(i int, v int32)

	// SaveState captures the full emulator state as an opaque blob
	SaveState() ([]byte, error)

	// LoadState restores a blob captured by SaveState
	LoadState(state []byte) error

	// InstallTrap registers a handler invoked when the PC reaches addr
	InstallTrap(addr uint32, fn TrapFunc)

	// StepFrame advances emulation by one video frame
	StepFrame()
}

// InstallTraps registers a whole trap family on a core
func InstallTraps(core Core, traps []Trap) {
	for _, t := range traps {
		core.InstallTrap(t.Addr, t.Handler)
	}
}
