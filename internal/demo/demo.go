// Package demo provides a scripted, fully deterministic stand-in game
// for exercising the netplay stack end to end without a real emulator
// core: soak runs, loopback sessions, and the integration tests all
// drive it.
package demo

import (
	"encoding/binary"

	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/game"
)

// Trap addresses of the scripted game
const (
	TrapJoyflags   = 0x08000100
	TrapTxGen      = 0x08000102
	TrapSendRecv   = 0x08000104
	TrapProcessRet = 0x08000108
	TrapPostCall   = 0x0800010c
	TrapIsP2       = 0x08000110
	TrapLinkIsP2   = 0x08000114
	TrapRoundStart = 0x08000118
	TrapRoundCmp   = 0x0800011c
	TrapRoundTie   = 0x08000120
	TrapRoundEnd   = 0x08000124
	TrapMatchEnd   = 0x08000128
)

// RAM cells of the scripted game
const (
	CellTx    = emulator.FakeRAMBase + 0x20
	CellRx    = emulator.FakeRAMBase + 0x40
	CellLink  = emulator.FakeRAMBase + 0x80
	CellHash  = emulator.FakeRAMBase + 0xa0
	CellTick  = emulator.FakeRAMBase + 0xa4
	CellPhase = emulator.FakeRAMBase + 0xa8
)

// RoundTicks is how many battle ticks the game plays before declaring
// a draw; HandshakeTicks is the warmup window during which the game
// emits its constant placeholder packet and ignores incoming ones.
const (
	RoundTicks     = 120
	HandshakeTicks = 4
)

// Title is the scripted game's ROM title
const Title = "TESTGAME________"

// Offsets returns the trap table for the scripted game
func Offsets() game.Offsets {
	return game.Offsets{
		ROM: game.ROMOffsets{
			MainReadJoyflags:                    TrapJoyflags,
			HandleInputInitSendAndReceiveCall:   TrapSendRecv,
			HandleInputUpdateSendAndReceiveCall: 0x08000204,
			HandleInputDeinitSendAndReceiveCall: 0x08000208,
			ProcessBattleInputRet:               TrapProcessRet,
			HandleInputPostCall:                 TrapPostCall,
			BattleIsP2Ret:                       TrapIsP2,
			LinkIsP2Ret:                         TrapLinkIsP2,
			RoundStartRet:                       TrapRoundStart,
			RoundEndCmp:                         TrapRoundCmp,
			RoundTieRet:                         TrapRoundTie,
			RoundEndEntry:                       TrapRoundEnd,
			MatchEndRet:                         TrapMatchEnd,

			StartScreenJumpTableEntry:  0x08000300,
			StartScreenSramUnmaskRet:   0x08000304,
			GameLoadRet:                0x08000308,
			CommMenuInitRet:            0x0800030c,
			CommMenuSendAndReceiveCall: 0x08000310,
			InitSioCall:                0x08000314,
			RoundWinRet:                0x08000318,
			RoundWinRet2:               0x0800031c,
			RoundLoseRet:               0x08000320,
			RoundLoseRet2:              0x08000324,
		},
		EWRAM: game.EWRAMOffsets{
			Rng1State:     emulator.FakeRAMBase + 0x10,
			Rng2State:     emulator.FakeRAMBase + 0x14,
			TxPacket:      CellTx,
			RxPacketArray: CellRx,
			LinkState:     CellLink,
			MenuControl:   emulator.FakeRAMBase + 0x90,
		},
	}
}

// NewAdapter builds a game adapter for the scripted game
func NewAdapter(supportsFastforward bool) game.Adapter {
	return game.New(game.Params{
		Name:                Title,
		Offsets:             Offsets(),
		SupportsFastforward: supportsFastforward,
		PlaceholderRx:       make([]byte, game.PacketSize),
		Backgrounds:         []uint8{0x00},
	})
}

// NewCore builds a scripted battle game: one pre-round frame starting
// the round, then a battle loop mixing both rx packets into a running
// hash, then the round/match end sequence once RoundTicks have
// played.
//
// Within a battle frame the game generates its outgoing packet
// between the pad read and the send/receive call, so the packet read
// at tick t was generated during frame t-1.
func NewCore() *emulator.FakeCore {
	c := emulator.NewFakeCore(nil)

	c.Script = func(c *emulator.FakeCore) []uint32 {
		switch c.RawRead32(CellPhase, -1) {
		case 0:
			return []uint32{TrapRoundStart}
		case 1:
			return []uint32{TrapJoyflags, TrapTxGen, TrapSendRecv, TrapProcessRet, TrapPostCall}
		case 2:
			return []uint32{TrapRoundCmp, TrapRoundTie, TrapRoundEnd}
		case 3:
			return []uint32{TrapMatchEnd}
		}
		return nil
	}

	// The game's own tx generation, modeled as ROM code between the
	// pad read and the send/receive call. During the handshake window
	// the game emits its constant placeholder packet (all zeroes).
	c.InstallTrap(TrapTxGen, func(core emulator.Core) {
		fc := core.(*emulator.FakeCore)
		next := fc.RawRead32(CellTick, -1) + 1
		if next < HandshakeTicks {
			return
		}
		hash := fc.RawRead32(CellHash, -1)
		tx := make([]byte, game.PacketSize)
		tx[0] = 1
		binary.LittleEndian.PutUint16(tx[4:6], uint16(next))
		binary.LittleEndian.PutUint32(tx[8:12], hash*31+uint32(fc.GPR(4)))
		fc.RawWriteRange(CellTx, -1, tx)
	})

	c.Logic = func(c *emulator.FakeCore) {
		switch c.RawRead32(CellPhase, -1) {
		case 0:
			c.RawWrite32(CellPhase, -1, 1)
			c.RawWrite8(CellLink, -1, 1)

		case 1:
			hash := c.RawRead32(CellHash, -1)
			tick := c.RawRead32(CellTick, -1)

			// Handshake frames consume no packets.
			if tick >= HandshakeTicks {
				for _, slot := range []uint32{CellRx, CellRx + game.PacketSize} {
					for _, b := range c.RawReadRange(slot, -1, game.PacketSize) {
						hash = hash*31 + uint32(b)
					}
				}
				c.RawWrite32(CellHash, -1, hash)
			}

			tick++
			c.RawWrite32(CellTick, -1, tick)

			if tick > RoundTicks {
				c.SetGPR(0, 5) // draw
				c.RawWrite32(CellPhase, -1, 2)
			}

		case 2:
			c.RawWrite32(CellPhase, -1, 3)

		case 3:
			c.RawWrite32(CellPhase, -1, 4)
		}
	}

	return c
}
