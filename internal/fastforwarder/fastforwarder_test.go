package fastforwarder_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/fastforwarder"
	"github.com/andersfylling/tango/internal/game"
	"github.com/andersfylling/tango/internal/input"
)

// Trap addresses and RAM cells for the scripted test game.
const (
	trapJoyflags    = 0x08000100
	trapSendRecv    = 0x08000104
	trapProcessRet  = 0x08000108
	trapPostCall    = 0x0800010c
	trapIsP2        = 0x08000110
	trapLinkIsP2    = 0x08000114
	trapRoundEnd    = 0x08000118

	cellTx     = emulator.FakeRAMBase + 0x20
	cellRx     = emulator.FakeRAMBase + 0x40
	cellLink   = emulator.FakeRAMBase + 0x80
	cellHash   = emulator.FakeRAMBase + 0xa0
	cellTick   = emulator.FakeRAMBase + 0xa4
)

func testOffsets() game.Offsets {
	return game.Offsets{
		ROM: game.ROMOffsets{
			MainReadJoyflags:                    trapJoyflags,
			HandleInputInitSendAndReceiveCall:   trapSendRecv,
			HandleInputUpdateSendAndReceiveCall: 0x08000204,
			HandleInputDeinitSendAndReceiveCall: 0x08000208,
			ProcessBattleInputRet:               trapProcessRet,
			HandleInputPostCall:                 trapPostCall,
			BattleIsP2Ret:                       trapIsP2,
			LinkIsP2Ret:                         trapLinkIsP2,
			RoundEndEntry:                       trapRoundEnd,

			StartScreenJumpTableEntry:  0x08000300,
			StartScreenSramUnmaskRet:   0x08000304,
			GameLoadRet:                0x08000308,
			CommMenuInitRet:            0x0800030c,
			CommMenuSendAndReceiveCall: 0x08000310,
			InitSioCall:                0x08000314,
			RoundStartRet:              0x08000318,
			RoundEndCmp:                0x0800031c,
			RoundWinRet:                0x08000320,
			RoundWinRet2:               0x08000324,
			RoundLoseRet:               0x08000328,
			RoundLoseRet2:              0x0800032c,
			RoundTieRet:                0x08000330,
			MatchEndRet:                0x08000334,
		},
		EWRAM: game.EWRAMOffsets{
			Rng1State:     emulator.FakeRAMBase + 0x10,
			Rng2State:     emulator.FakeRAMBase + 0x14,
			TxPacket:      cellTx,
			RxPacketArray: cellRx,
			LinkState:     cellLink,
			MenuControl:   emulator.FakeRAMBase + 0x90,
		},
	}
}

func testAdapter() game.Adapter {
	placeholder := make([]byte, game.PacketSize)
	return game.New(game.Params{
		Name:                "TESTGAME________",
		Offsets:             testOffsets(),
		SupportsFastforward: true,
		PlaceholderRx:       placeholder,
		Backgrounds:         []uint8{0x00},
	})
}

// newGameCore builds a fake core running a deterministic battle loop:
// each frame mixes both rx packets into a running hash, advances the
// in-game tick, and regenerates the tx packet from the tick and pad.
func newGameCore() *emulator.FakeCore {
	c := emulator.NewFakeCore(nil)

	c.Script = func(*emulator.FakeCore) []uint32 {
		return []uint32{trapJoyflags, trapSendRecv, trapProcessRet, trapPostCall}
	}

	c.Logic = func(c *emulator.FakeCore) {
		hash := c.RawRead32(cellHash, -1)
		tick := c.RawRead32(cellTick, -1)

		// The first linking frame is a handshake; it consumes no
		// packets.
		if tick >= 1 {
			for _, slot := range []uint32{cellRx, cellRx + game.PacketSize} {
				for _, b := range c.RawReadRange(slot, -1, game.PacketSize) {
					hash = hash*31 + uint32(b)
				}
			}
			c.RawWrite32(cellHash, -1, hash)
		}

		tick++
		c.RawWrite32(cellTick, -1, tick)

		tx := make([]byte, game.PacketSize)
		tx[0] = 1
		binary.LittleEndian.PutUint16(tx[4:6], uint16(tick))
		binary.LittleEndian.PutUint32(tx[8:12], hash*31+uint32(c.GPR(4)))
		c.RawWriteRange(cellTx, -1, tx)
	}

	c.RawWrite8(cellLink, -1, 1)
	return c
}

func rxAt(tick uint32) []byte {
	rx := make([]byte, game.PacketSize)
	rx[0] = 1
	binary.LittleEndian.PutUint16(rx[4:6], uint16(tick))
	return rx
}

func realPairs(from, to uint32, localJoy, remoteJoy uint16) []input.Pair {
	var pairs []input.Pair
	for t := from; t <= to; t++ {
		pairs = append(pairs, input.Pair{
			Local:  input.Input{LocalTick: t, Joyflags: localJoy, Rx: rxAt(t)},
			Remote: input.Input{LocalTick: t, Joyflags: remoteJoy, Rx: rxAt(t)},
		})
	}
	return pairs
}

func TestFastforwardProducesStates(t *testing.T) {
	adapter := testAdapter()

	base := newGameCore()
	committed, err := base.SaveState()
	require.NoError(t, err)

	ff := fastforwarder.New(newGameCore(), adapter)
	res, err := ff.Fastforward(committed, 0, 0, realPairs(0, 3, 1, 2), input.Input{Rx: rxAt(0)}, nil)
	require.NoError(t, err)

	require.NotNil(t, res.CommittedState)
	require.NotNil(t, res.DirtyState)
	require.Equal(t, uint32(4), res.CommittedTick)
	require.Equal(t, uint32(3), res.LastPair.Local.LocalTick)
	require.Equal(t, uint16(2), res.LastRemoteInput.Joyflags)
}

func TestFastforwardReplayDeterminism(t *testing.T) {
	adapter := testAdapter()

	base := newGameCore()
	committed, err := base.SaveState()
	require.NoError(t, err)

	pairs := realPairs(0, 5, 0x0001, 0x0200)

	run := func() *fastforwarder.Result {
		ff := fastforwarder.New(newGameCore(), adapter)
		res, err := ff.Fastforward(committed, 0, 0, pairs, input.Input{Rx: rxAt(0)}, nil)
		require.NoError(t, err)
		return res
	}

	a := run()
	b := run()

	// Replaying the same pairs from the same snapshot must be
	// bit-exact on every output.
	require.True(t, bytes.Equal(a.CommittedState, b.CommittedState))
	require.True(t, bytes.Equal(a.DirtyState, b.DirtyState))
}

func TestFastforwardPredictionResolution(t *testing.T) {
	adapter := testAdapter()

	base := newGameCore()
	committed, err := base.SaveState()
	require.NoError(t, err)

	// First pass: two real pairs, then three locals covered only by
	// predictions.
	locals := []input.Input{
		{LocalTick: 2, Joyflags: 1, Rx: rxAt(2)},
		{LocalTick: 3, Joyflags: 1, Rx: rxAt(3)},
		{LocalTick: 4, Joyflags: 1, Rx: rxAt(4)},
	}

	ff := fastforwarder.New(newGameCore(), adapter)
	res, err := ff.Fastforward(committed, 0, 0, realPairs(0, 1, 1, 2), input.Input{Rx: rxAt(0)}, locals)
	require.NoError(t, err)
	require.Equal(t, uint32(2), res.CommittedTick)
	require.True(t, res.LastPair.Remote.IsPrediction)

	// Second pass: the real remote inputs for ticks 2..4 arrive and
	// differ from the predictions (different joyflags). Resuming from
	// the committed snapshot with corrected pairs must equal a fresh
	// replay of the full real input sequence: replay determinism
	// across a rollback.
	corrected := realPairs(2, 4, 1, 0x0f0f)

	ff2 := fastforwarder.New(newGameCore(), adapter)
	afterRollback, err := ff2.Fastforward(res.CommittedState, 2, 0, corrected, res.LastRemoteInput, nil)
	require.NoError(t, err)

	full := append(realPairs(0, 1, 1, 2), corrected...)
	ff3 := fastforwarder.New(newGameCore(), adapter)
	fresh, err := ff3.Fastforward(committed, 0, 0, full, input.Input{Rx: rxAt(0)}, nil)
	require.NoError(t, err)

	require.True(t, bytes.Equal(afterRollback.DirtyState, fresh.DirtyState),
		"state after rollback must match a fresh fastforward over the same pairs")
}

func TestFastforwardJoyflagsMask(t *testing.T) {
	adapter := testAdapter()

	base := newGameCore()
	committed, err := base.SaveState()
	require.NoError(t, err)

	ff := fastforwarder.New(newGameCore(), adapter)
	res, err := ff.Fastforward(committed, 0, 0, realPairs(0, 2, 0x0001, 0), input.Input{Rx: rxAt(0)}, nil)
	require.NoError(t, err)

	// The dirty state was captured right after the pad register was
	// written: hardware-reserved bits are always OR'd in.
	probe := newGameCore()
	require.NoError(t, probe.LoadState(res.DirtyState))
	require.Equal(t, int32(0xfc01), probe.GPR(4))
}

func TestFastforwardTickMismatchIsFatal(t *testing.T) {
	adapter := testAdapter()

	base := newGameCore()
	committed, err := base.SaveState()
	require.NoError(t, err)

	pairs := []input.Pair{{
		Local:  input.Input{LocalTick: 5, Joyflags: 1, Rx: rxAt(5)},
		Remote: input.Input{LocalTick: 6, Joyflags: 1, Rx: rxAt(6)},
	}}

	ff := fastforwarder.New(newGameCore(), adapter)
	_, err = ff.Fastforward(committed, 5, 0, pairs, input.Input{Rx: rxAt(4)}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "local tick != remote tick")
}

func TestFastforwardNoInputsIsError(t *testing.T) {
	adapter := testAdapter()

	base := newGameCore()
	committed, err := base.SaveState()
	require.NoError(t, err)

	ff := fastforwarder.New(newGameCore(), adapter)
	_, err = ff.Fastforward(committed, 0, 0, nil, input.Input{Rx: rxAt(0)}, nil)
	require.Error(t, err)
}
