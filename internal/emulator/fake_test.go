package emulator

import (
	"bytes"
	"testing"
)

func TestFakeCoreMemory(t *testing.T) {
	rom := make([]byte, 0x100)
	copy(rom[0xa0:], "MEGA_EXE3_BLA3XE")
	c := NewFakeCore(rom)

	if got := c.RawReadRange(FakeROMBase+0xa0, -1, 16); string(got) != "MEGA_EXE3_BLA3XE" {
		t.Fatalf("ROM title read = %q", got)
	}

	c.RawWrite32(FakeRAMBase+0x10, -1, 0xdeadbeef)
	if got := c.RawRead32(FakeRAMBase+0x10, -1); got != 0xdeadbeef {
		t.Fatalf("RAM read = %08x", got)
	}

	c.RawWrite16(FakeRAMBase+0x20, -1, 0x1234)
	if got := c.RawRead16(FakeRAMBase+0x20, -1); got != 0x1234 {
		t.Fatalf("halfword read = %04x", got)
	}

	// Out-of-range reads are zero, never a crash.
	if got := c.RawRead8(0x0400_0000, -1); got != 0 {
		t.Fatalf("unmapped read = %02x", got)
	}
}

func TestFakeCoreSaveLoadRoundTrip(t *testing.T) {
	c := NewFakeCore(nil)
	c.RawWrite32(FakeRAMBase+4, -1, 0x01020304)
	c.SetGPR(4, 0x7fff)
	c.SetThumbPC(0x08001234)

	state, err := c.SaveState()
	if err != nil {
		t.Fatal(err)
	}

	// Scramble everything, then restore.
	c.RawWrite32(FakeRAMBase+4, -1, 0)
	c.SetGPR(4, 0)
	c.SetThumbPC(0)

	if err := c.LoadState(state); err != nil {
		t.Fatal(err)
	}
	if got := c.RawRead32(FakeRAMBase+4, -1); got != 0x01020304 {
		t.Fatalf("RAM not restored: %08x", got)
	}
	if c.GPR(4) != 0x7fff || c.ThumbPC() != 0x08001234 {
		t.Fatalf("registers not restored: r4=%x pc=%x", c.GPR(4), c.ThumbPC())
	}

	// Restored state must re-serialize identically.
	again, err := c.SaveState()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(state, again) {
		t.Fatal("save state not stable across load")
	}
}

func TestFakeCoreLoadStateRejectsBadSize(t *testing.T) {
	c := NewFakeCore(nil)
	if err := c.LoadState([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated state")
	}
}

func TestFakeCoreScriptFiresTraps(t *testing.T) {
	c := NewFakeCore(nil)
	c.Script = func(*FakeCore) []uint32 { return []uint32{0x08000100, 0x08000200} }

	var visited []uint32
	c.InstallTrap(0x08000100, func(core Core) {
		visited = append(visited, core.ThumbPC())
	})
	c.InstallTrap(0x08000200, func(core Core) {
		visited = append(visited, core.ThumbPC())
	})

	c.StepFrame()
	c.StepFrame()

	if len(visited) != 4 || visited[0] != 0x08000100 || visited[1] != 0x08000200 {
		t.Fatalf("trap visits = %x", visited)
	}
}
