package emulator

import (
	"encoding/binary"
	"fmt"
)

// Memory layout of the fake core. Mirrors the handheld's address map
// closely enough for the munger offsets to look realistic.
const (
	FakeROMBase  = 0x08000000
	FakeRAMBase  = 0x02000000
	FakeRAMSize  = 256 * 1024
	fakeGPRCount = 16
)

// FakeCore is a deterministic, scripted stand-in for a real emulator
// core. Each StepFrame walks a script of code addresses, firing any
// traps installed on them, then runs the frame logic. As long as the
// logic is a pure function of RAM and registers, save states capture
// everything and replays are bit-exact.
type FakeCore struct {
	ram [FakeRAMSize]byte
	rom []byte

	gpr [fakeGPRCount]int32
	pc  uint32

	traps map[uint32][]TrapFunc

	// Script returns the code addresses visited during one frame.
	// Evaluated fresh every frame so it can depend on RAM state.
	Script func(c *FakeCore) []uint32

	// Logic runs once per frame after the script. It stands in for
	// the game's own per-frame code and must be deterministic over
	// RAM and registers.
	Logic func(c *FakeCore)
}

// NewFakeCore creates a fake core with the given ROM image mapped at
// FakeROMBase
func NewFakeCore(rom []byte) *FakeCore {
	return &FakeCore{
		rom:   append([]byte(nil), rom...),
		traps: make(map[uint32][]TrapFunc),
	}
}

func (c *FakeCore) index(addr uint32, n int) (mem []byte, off int, ok bool) {
	switch {
	case addr >= FakeRAMBase && addr+uint32(n) <= FakeRAMBase+FakeRAMSize:
		return c.ram[:], int(addr - FakeRAMBase), true
	case addr >= FakeROMBase && addr+uint32(n) <= FakeROMBase+uint32(len(c.rom)):
		return c.rom, int(addr - FakeROMBase), true
	}
	return nil, 0, false
}

func (c *FakeCore) RawReadRange(addr uint32, seg int, n int) []byte {
	mem, off, ok := c.index(addr, n)
	if !ok {
		return make([]byte, n)
	}
	out := make([]byte, n)
	copy(out, mem[off:off+n])
	return out
}

func (c *FakeCore) RawRead8(addr uint32, seg int) uint8 {
	return c.RawReadRange(addr, seg, 1)[0]
}

func (c *FakeCore) RawRead16(addr uint32, seg int) uint16 {
	return binary.LittleEndian.Uint16(c.RawReadRange(addr, seg, 2))
}

func (c *FakeCore) RawRead32(addr uint32, seg int) uint32 {
	return binary.LittleEndian.Uint32(c.RawReadRange(addr, seg, 4))
}

func (c *FakeCore) RawWriteRange(addr uint32, seg int, buf []byte) {
	mem, off, ok := c.index(addr, len(buf))
	if !ok {
		return
	}
	copy(mem[off:off+len(buf)], buf)
}

func (c *FakeCore) RawWrite8(addr uint32, seg int, v uint8) {
	c.RawWriteRange(addr, seg, []byte{v})
}

func (c *FakeCore) RawWrite16(addr uint32, seg int, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	c.RawWriteRange(addr, seg, buf[:])
}

func (c *FakeCore) RawWrite32(addr uint32, seg int, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	c.RawWriteRange(addr, seg, buf[:])
}

func (c *FakeCore) ThumbPC() uint32 { return c.pc }

func (c *FakeCore) SetThumbPC(pc uint32) { c.pc = pc }

func (c *FakeCore) GPR(i int) int32 { return c.gpr[i] }

func (c *FakeCore) SetGPR(i int, v int32) { c.gpr[i] = v }

// SaveState serializes RAM, registers and the PC. The ROM, script and
// logic are code, not state.
func (c *FakeCore) SaveState() ([]byte, error) {
	buf := make([]byte, 0, FakeRAMSize+fakeGPRCount*4+4)
	buf = append(buf, c.ram[:]...)
	for _, r := range c.gpr {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(r))
	}
	buf = binary.LittleEndian.AppendUint32(buf, c.pc)
	return buf, nil
}

func (c *FakeCore) LoadState(state []byte) error {
	want := FakeRAMSize + fakeGPRCount*4 + 4
	if len(state) != want {
		return fmt.Errorf("bad state size: %d != %d", len(state), want)
	}
	copy(c.ram[:], state[:FakeRAMSize])
	off := FakeRAMSize
	for i := range c.gpr {
		c.gpr[i] = int32(binary.LittleEndian.Uint32(state[off:]))
		off += 4
	}
	c.pc = binary.LittleEndian.Uint32(state[off:])
	return nil
}

func (c *FakeCore) InstallTrap(addr uint32, fn TrapFunc) {
	c.traps[addr] = append(c.traps[addr], fn)
}

// StepFrame walks the frame script, firing traps at each visited
// address, then runs the frame logic
func (c *FakeCore) StepFrame() {
	if c.Script != nil {
		for _, addr := range c.Script(c) {
			c.pc = addr
			for _, fn := range c.traps[addr] {
				fn(c)
			}
		}
	}
	if c.Logic != nil {
		c.Logic(c)
	}
}
