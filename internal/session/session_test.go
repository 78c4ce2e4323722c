package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/andersfylling/tango/internal/demo"
	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/network"
	"github.com/andersfylling/tango/internal/protocol"
	"github.com/andersfylling/tango/internal/session"
)

func testConfig(nick string) session.Config {
	cfg := session.DefaultConfig()
	cfg.Nickname = nick
	cfg.Delay = 2
	cfg.TickRate = 0
	cfg.GameInfo = &protocol.GameInfo{Title: demo.Title}
	cfg.AvailableGames = []string{demo.Title}
	return cfg
}

func newPeer(nick string, ch network.PacketChannel, offerer bool, ff bool, joy uint16) *session.Session {
	cfg := testConfig(nick)
	cfg.IsOfferer = offerer

	adapter := demo.NewAdapter(ff)
	s := session.New(
		cfg,
		ch,
		demo.NewCore(),
		func() (emulator.Core, error) { return demo.NewCore(), nil },
		demo.NewCore(),
		adapter,
		adapter,
		[]byte("save-"+nick),
		zerolog.Nop(),
	)
	s.SetJoyflags(joy)
	return s
}

func runBothPeers(t *testing.T, ff bool) (*session.Session, *session.Session) {
	t.Helper()

	a, b := network.Pipe()

	peerA := newPeer("alpha", a, true, ff, 0x0001)
	peerB := newPeer("beta", b, false, ff, 0x0102)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	errA := make(chan error, 1)
	errB := make(chan error, 1)
	go func() { errA <- peerA.Run(ctx) }()
	go func() { errB <- peerB.Run(ctx) }()

	require.NoError(t, <-errA, "offerer session")
	require.NoError(t, <-errB, "answerer session")
	require.NoError(t, ctx.Err(), "sessions timed out")

	return peerA, peerB
}

func TestFullSessionWithRollback(t *testing.T) {
	peerA, peerB := runBothPeers(t, true)

	mA := peerA.Match()
	mB := peerB.Match()
	require.NotNil(t, mA)
	require.NotNil(t, mB)

	require.NoError(t, mA.Err())
	require.NoError(t, mB.Err())
	require.True(t, mA.Ended())
	require.True(t, mB.Ended())

	require.Equal(t, uint32(1), mA.RoundsPlayed())
	require.Equal(t, uint32(1), mB.RoundsPlayed())

	require.Equal(t, "draw", mA.Status().LastResult)
	require.Equal(t, "draw", mB.Status().LastResult)

	require.Equal(t, session.StateEnded, peerA.State())
	require.Equal(t, session.StateEnded, peerB.State())
}

func TestFullSessionLockstep(t *testing.T) {
	// Games without fastforwarder hooks run delay-based lockstep
	// instead of rollback; the session must still complete.
	peerA, peerB := runBothPeers(t, false)

	require.NoError(t, peerA.Match().Err())
	require.NoError(t, peerB.Match().Err())
	require.Equal(t, uint32(1), peerA.Match().RoundsPlayed())
	require.Equal(t, uint32(1), peerB.Match().RoundsPlayed())
}

func TestSessionIncompatibleSettings(t *testing.T) {
	a, b := network.Pipe()

	peerA := newPeer("alpha", a, true, true, 0)

	cfgB := testConfig("beta")
	cfgB.IsOfferer = false
	cfgB.GameInfo = &protocol.GameInfo{Title: "ANOTHERGAME_____"}
	cfgB.AvailableGames = []string{"ANOTHERGAME_____"}
	adapter := demo.NewAdapter(true)
	peerB := session.New(
		cfgB, b,
		demo.NewCore(),
		func() (emulator.Core, error) { return demo.NewCore(), nil },
		demo.NewCore(),
		adapter, adapter,
		nil, zerolog.Nop(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errA := make(chan error, 1)
	go func() { errA <- peerA.Run(ctx) }()

	require.Error(t, peerB.Run(ctx))
	require.Error(t, <-errA)
}
