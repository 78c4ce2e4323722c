package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andersfylling/tango/internal/emulator"
)

func coreWithHeader(title string, revision byte) *emulator.FakeCore {
	rom := make([]byte, 0x100)
	copy(rom[0xa0:], title)
	rom[0xbc] = revision
	return emulator.NewFakeCore(rom)
}

func TestLookupKnownTitles(t *testing.T) {
	for _, title := range []string{
		"MEGA_EXE3_BLA3XE",
		"MEGA_EXE3_WHA6BE",
		"MEGAMAN6_FXXBR6E",
		"MEGAMAN6_GXXBR5E",
		"ROCKEXE6_RXXBR6J",
		"ROCKEXE6_GXXBR5J",
		"MEGAMAN5_TP_BRBE",
		"MEGAMAN5_TC_BRKE",
		"ROCKEXE5_TOBBRBJ",
		"ROCKEXE5_TOCBRKJ",
		"MEGAMANBN4BMB4BE",
		"MEGAMANBN4RSB4WE",
	} {
		a := Lookup(coreWithHeader(title, 0))
		require.NotNil(t, a, "title %s", title)
		require.Equal(t, title, a.Name())
	}
}

func TestLookupBN4RevisionDisambiguation(t *testing.T) {
	a := Lookup(coreWithHeader("ROCK_EXE4_BMB4BJ", 0x00))
	require.NotNil(t, a)
	require.Equal(t, "ROCK_EXE4_BMB4BJ_10", a.Name())

	a = Lookup(coreWithHeader("ROCK_EXE4_BMB4BJ", 0x01))
	require.NotNil(t, a)
	require.Equal(t, "ROCK_EXE4_BMB4BJ_11", a.Name())

	require.Nil(t, Lookup(coreWithHeader("ROCK_EXE4_BMB4BJ", 0x02)))

	a = Lookup(coreWithHeader("ROCK_EXE4_RSB4WJ", 0x00))
	require.NotNil(t, a)
	require.Equal(t, "ROCK_EXE4_RSB4WJ_10", a.Name())
}

func TestLookupUnknownTitle(t *testing.T) {
	require.Nil(t, Lookup(coreWithHeader("SOME_OTHER_GAME!", 0)))
}

func TestLookupReturnsSameIdentity(t *testing.T) {
	// The match, shadow and fastforwarder must share one adapter
	// object per variant.
	a := Lookup(coreWithHeader("MEGA_EXE3_BLA3XE", 0))
	b := Lookup(coreWithHeader("MEGA_EXE3_BLA3XE", 0))
	require.Same(t, a, b)
}

func TestBN5HasNoFastforward(t *testing.T) {
	a := Lookup(coreWithHeader("MEGAMAN5_TP_BRBE", 0))
	require.NotNil(t, a)
	require.False(t, a.SupportsFastforward())
	require.Nil(t, a.FastforwarderTraps(nil))

	b := Lookup(coreWithHeader("MEGA_EXE3_BLA3XE", 0))
	require.True(t, b.SupportsFastforward())
}

func TestPredictRxIncrementsTickField(t *testing.T) {
	a := Lookup(coreWithHeader("MEGA_EXE3_BLA3XE", 0))

	rx := make([]byte, PacketSize)
	rx[4] = 0x10

	once := a.PredictRx(rx)
	require.Equal(t, byte(0x11), once[4])

	twice := a.PredictRx(once)
	require.Equal(t, byte(0x12), twice[4])

	// Original is untouched; prediction is pure.
	require.Equal(t, byte(0x10), rx[4])

	// The field is a little-endian u16 and carries into byte 5.
	rx[4], rx[5] = 0xff, 0x00
	next := a.PredictRx(rx)
	require.Equal(t, byte(0x00), next[4])
	require.Equal(t, byte(0x01), next[5])
}
