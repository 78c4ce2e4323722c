package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andersfylling/tango/internal/emulator"
)

func testMunger() (Munger, *emulator.FakeCore) {
	offsets := Offsets{
		EWRAM: EWRAMOffsets{
			Rng1State:     emulator.FakeRAMBase + 0x100,
			Rng2State:     emulator.FakeRAMBase + 0x104,
			TxPacket:      emulator.FakeRAMBase + 0x200,
			RxPacketArray: emulator.FakeRAMBase + 0x240,
			LinkState:     emulator.FakeRAMBase + 0x300,
			MenuControl:   emulator.FakeRAMBase + 0x400,
			OpponentName:  emulator.FakeRAMBase + 0x500,
		},
	}
	return Munger{offsets: offsets}, emulator.NewFakeCore(nil)
}

func TestMungerRngStates(t *testing.T) {
	m, core := testMunger()

	m.SetRng1State(core, 0xdeadbeef)
	m.SetRng2State(core, 0xa338244f)

	require.Equal(t, uint32(0xdeadbeef), m.Rng1State(core))
	require.Equal(t, uint32(0xa338244f), m.Rng2State(core))
}

func TestMungerRxPacketSlots(t *testing.T) {
	m, core := testMunger()

	p0 := make([]byte, PacketSize)
	p1 := make([]byte, PacketSize)
	for i := range p0 {
		p0[i] = byte(i)
		p1[i] = byte(0xf0 + i)
	}

	m.SetRxPacket(core, 0, p0)
	m.SetRxPacket(core, 1, p1)

	require.Equal(t, p0, m.RxPacket(core, 0))
	require.Equal(t, p1, m.RxPacket(core, 1))
}

func TestMungerLinkState(t *testing.T) {
	m, core := testMunger()

	require.False(t, m.IsLinking(core))
	m.StartBattleFromCommMenu(core, [2]uint8{1, 0})
	require.True(t, m.IsLinking(core))
}

func TestMungerOpponentName(t *testing.T) {
	m, core := testMunger()

	m.SetOpponentName(core, "Chaud")
	got := core.RawReadRange(emulator.FakeRAMBase+0x500, -1, 5)
	require.Equal(t, []byte("Chaud"), got)

	// Variants without a name field do nothing.
	m.offsets.EWRAM.OpponentName = 0
	m.SetOpponentName(core, "Lan")
}
