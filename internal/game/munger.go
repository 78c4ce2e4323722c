package game

import "github.com/andersfylling/tango/internal/emulator"

// PacketSize is the size of the per-tick game packet in this family
const PacketSize = 16

// Munger reads and writes the specific emulator memory fields the
// netplay core cares about for one ROM variant
type Munger struct {
	offsets Offsets
}

// menu control values driving the boot and menu flow
const (
	menuSkipToTitle     = 0x10
	menuContinue        = 0x01
	menuOpenCommMenu    = 0x18
	menuStartLinkBattle = 0x22
)

// SkipLogo jumps the start screen dispatcher past the logo sequence
func (m Munger) SkipLogo(core emulator.Core) {
	core.RawWrite8(m.offsets.EWRAM.MenuControl, -1, menuSkipToTitle)
}

// ContinueFromTitleMenu advances from the title screen into the game
func (m Munger) ContinueFromTitleMenu(core emulator.Core) {
	core.RawWrite8(m.offsets.EWRAM.MenuControl+0x1, -1, menuContinue)
}

// OpenCommMenuFromOverworld forces entry into the communication menu
func (m Munger) OpenCommMenuFromOverworld(core emulator.Core) {
	core.RawWrite8(m.offsets.EWRAM.MenuControl+0x2, -1, menuOpenCommMenu)
}

// StartBattleFromCommMenu kicks off a link battle with the agreed
// match type and marks the game as linking
func (m Munger) StartBattleFromCommMenu(core emulator.Core, matchType [2]uint8) {
	core.RawWrite8(m.offsets.EWRAM.MenuControl+0x3, -1, menuStartLinkBattle)
	core.RawWrite8(m.offsets.EWRAM.MenuControl+0x4, -1, matchType[0])
	core.RawWrite8(m.offsets.EWRAM.MenuControl+0x5, -1, matchType[1])
	core.RawWrite8(m.offsets.EWRAM.LinkState, -1, 1)
}

// Rng1State reads the per-player RNG state
func (m Munger) Rng1State(core emulator.Core) uint32 {
	return core.RawRead32(m.offsets.EWRAM.Rng1State, -1)
}

// SetRng1State writes the per-player RNG state
func (m Munger) SetRng1State(core emulator.Core, v uint32) {
	core.RawWrite32(m.offsets.EWRAM.Rng1State, -1, v)
}

// Rng2State reads the shared RNG state
func (m Munger) Rng2State(core emulator.Core) uint32 {
	return core.RawRead32(m.offsets.EWRAM.Rng2State, -1)
}

// SetRng2State writes the shared RNG state
func (m Munger) SetRng2State(core emulator.Core, v uint32) {
	core.RawWrite32(m.offsets.EWRAM.Rng2State, -1, v)
}

// TxPacket reads the packet the game generated this tick
func (m Munger) TxPacket(core emulator.Core) []byte {
	return core.RawReadRange(m.offsets.EWRAM.TxPacket, -1, PacketSize)
}

// SetRxPacket writes one side's incoming packet for this tick
func (m Munger) SetRxPacket(core emulator.Core, playerIndex int, rx []byte) {
	addr := m.offsets.EWRAM.RxPacketArray + uint32(playerIndex)*PacketSize
	core.RawWriteRange(addr, -1, rx[:PacketSize])
}

// RxPacket reads one side's incoming packet back out
func (m Munger) RxPacket(core emulator.Core, playerIndex int) []byte {
	addr := m.offsets.EWRAM.RxPacketArray + uint32(playerIndex)*PacketSize
	return core.RawReadRange(addr, -1, PacketSize)
}

// IsLinking reports whether the game is in linking mode
func (m Munger) IsLinking(core emulator.Core) bool {
	return core.RawRead8(m.offsets.EWRAM.LinkState, -1) != 0
}

// SetOpponentName overwrites the peer's display name, when the
// variant keeps one
func (m Munger) SetOpponentName(core emulator.Core, name string) {
	if m.offsets.EWRAM.OpponentName == 0 {
		return
	}
	const maxName = 8
	buf := make([]byte, maxName)
	copy(buf, name)
	core.RawWriteRange(m.offsets.EWRAM.OpponentName, -1, buf)
}
