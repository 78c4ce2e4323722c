package shadow_test

import (
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/game"
	"github.com/andersfylling/tango/internal/input"
	"github.com/andersfylling/tango/internal/rng"
	"github.com/andersfylling/tango/internal/shadow"
)

const (
	trapJoyflags   = 0x08000100
	trapSendRecv   = 0x08000104
	trapProcessRet = 0x08000108
	trapPostCall   = 0x0800010c
	trapRoundStart = 0x08000118

	cellTx    = emulator.FakeRAMBase + 0x20
	cellRx    = emulator.FakeRAMBase + 0x40
	cellLink  = emulator.FakeRAMBase + 0x80
	cellTick  = emulator.FakeRAMBase + 0xa4
	cellPhase = emulator.FakeRAMBase + 0xa8
)

func testAdapter() game.Adapter {
	return game.New(game.Params{
		Name: "TESTGAME________",
		Offsets: game.Offsets{
			ROM: game.ROMOffsets{
				MainReadJoyflags:                    trapJoyflags,
				HandleInputInitSendAndReceiveCall:   trapSendRecv,
				HandleInputUpdateSendAndReceiveCall: 0x08000204,
				HandleInputDeinitSendAndReceiveCall: 0x08000208,
				ProcessBattleInputRet:               trapProcessRet,
				HandleInputPostCall:                 trapPostCall,
				RoundStartRet:                       trapRoundStart,

				StartScreenJumpTableEntry:  0x08000300,
				StartScreenSramUnmaskRet:   0x08000304,
				GameLoadRet:                0x08000308,
				CommMenuInitRet:            0x0800030c,
				CommMenuSendAndReceiveCall: 0x08000310,
				InitSioCall:                0x08000314,
				BattleIsP2Ret:              0x08000330,
				LinkIsP2Ret:                0x08000334,
				RoundEndCmp:                0x08000338,
				RoundWinRet:                0x0800033c,
				RoundWinRet2:               0x08000340,
				RoundLoseRet:               0x08000344,
				RoundLoseRet2:              0x08000348,
				RoundTieRet:                0x0800034c,
				RoundEndEntry:              0x08000350,
				MatchEndRet:                0x08000354,
			},
			EWRAM: game.EWRAMOffsets{
				Rng1State:     emulator.FakeRAMBase + 0x10,
				Rng2State:     emulator.FakeRAMBase + 0x14,
				TxPacket:      cellTx,
				RxPacketArray: cellRx,
				LinkState:     cellLink,
				MenuControl:   emulator.FakeRAMBase + 0x90,
			},
		},
		SupportsFastforward: true,
		PlaceholderRx:       make([]byte, game.PacketSize),
		Backgrounds:         []uint8{0x00},
	})
}

// newGameCore builds the opponent-side fake game: a pre-round frame
// that starts the round and enters linking mode, then a battle loop
// that advances the tick and regenerates the tx packet.
func newGameCore() *emulator.FakeCore {
	c := emulator.NewFakeCore(nil)

	c.Script = func(c *emulator.FakeCore) []uint32 {
		if c.RawRead32(cellPhase, -1) == 0 {
			return []uint32{trapRoundStart}
		}
		return []uint32{trapJoyflags, trapSendRecv, trapProcessRet, trapPostCall}
	}

	c.Logic = func(c *emulator.FakeCore) {
		if c.RawRead32(cellPhase, -1) == 0 {
			c.RawWrite32(cellPhase, -1, 1)
			c.RawWrite8(cellLink, -1, 1)
			return
		}

		tick := c.RawRead32(cellTick, -1) + 1
		c.RawWrite32(cellTick, -1, tick)

		tx := make([]byte, game.PacketSize)
		tx[0] = 1
		binary.LittleEndian.PutUint16(tx[4:6], uint16(tick))
		c.RawWriteRange(cellTx, -1, tx)
	}

	return c
}

func rxAt(tick uint32) []byte {
	rx := make([]byte, game.PacketSize)
	rx[0] = 1
	binary.LittleEndian.PutUint16(rx[4:6], uint16(tick))
	return rx
}

func pairAt(localTick, remoteTick uint32) input.Pair {
	return input.Pair{
		Local:  input.Input{LocalTick: localTick, Joyflags: 1, Rx: rxAt(localTick)},
		Remote: input.Input{LocalTick: remoteTick, Joyflags: 2, Rx: rxAt(remoteTick)},
	}
}

func newShadow(t *testing.T) *shadow.Shadow {
	t.Helper()
	state := shadow.NewState(rng.Seed{}, true, [2]uint8{}, 1, zerolog.Nop())
	return shadow.New(newGameCore(), testAdapter(), state, zerolog.Nop())
}

func TestShadowReachesFirstCommittedState(t *testing.T) {
	sh := newShadow(t)

	state, err := sh.AdvanceUntilFirstCommittedState()
	require.NoError(t, err)
	require.NotEmpty(t, state)
}

func TestShadowProducesAuthoritativeRemote(t *testing.T) {
	sh := newShadow(t)

	_, err := sh.AdvanceUntilFirstCommittedState()
	require.NoError(t, err)

	// The first consumable tick after the handshake frame is 1.
	out, err := sh.ApplyInput(pairAt(1, 1))
	require.NoError(t, err)

	// The remote rx is whatever the opponent's game generated, not
	// what came off the wire.
	require.False(t, out.Remote.IsPrediction)
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(out.Remote.Rx[4:6]))
	require.Equal(t, out.Local.LocalTick, out.Remote.LocalTick)

	// The next committed pair comes back out at its own tick.
	out2, err := sh.ApplyInput(pairAt(2, 2))
	require.NoError(t, err)
	require.Equal(t, uint32(2), out2.Local.LocalTick)
}

func TestShadowTickMismatchSetsErrorSlot(t *testing.T) {
	sh := newShadow(t)

	_, err := sh.AdvanceUntilFirstCommittedState()
	require.NoError(t, err)

	_, err = sh.ApplyInput(pairAt(5, 6))
	require.Error(t, err)
	require.Contains(t, err.Error(), "local tick != remote tick")

	// The error slot is sticky: every later coordination point sees
	// the desync.
	require.Error(t, sh.State().Err())
}

func TestShadowInputTickMismatchSetsErrorSlot(t *testing.T) {
	sh := newShadow(t)

	_, err := sh.AdvanceUntilFirstCommittedState()
	require.NoError(t, err)

	// Ticks agree with each other but not with the battle tick.
	_, err = sh.ApplyInput(pairAt(7, 7))
	require.Error(t, err)
	require.Contains(t, err.Error(), "input tick != in battle tick")
}

func TestShadowApplyWithoutRound(t *testing.T) {
	state := shadow.NewState(rng.Seed{}, true, [2]uint8{}, 1, zerolog.Nop())
	sh := shadow.New(newGameCore(), testAdapter(), state, zerolog.Nop())

	_, err := sh.ApplyInput(pairAt(0, 0))
	require.ErrorIs(t, err, shadow.ErrRoundEnded)
}
