// Package session glues a whole netplay session together: the lobby
// negotiation, the primary emulator loop, the shadow, and the match
// driving them.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/andersfylling/tango/internal/battle"
	"github.com/andersfylling/tango/internal/emulator"
	"github.com/andersfylling/tango/internal/lobby"
	"github.com/andersfylling/tango/internal/network"
	"github.com/andersfylling/tango/internal/protocol"
	"github.com/andersfylling/tango/internal/shadow"
)

// CoreFactory builds an emulator core with a ROM already loaded
type CoreFactory func() (emulator.Core, error)

// State tracks where the connection is in its lifecycle
type State int32

// Connection lifecycle states
const (
	StateSignaling State = iota
	StateWaiting
	StateInLobby
	StateNegotiated
	StateInMatch
	StateEnded
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateSignaling:
		return "signaling"
	case StateWaiting:
		return "waiting"
	case StateInLobby:
		return "in lobby"
	case StateNegotiated:
		return "negotiated"
	case StateInMatch:
		return "in match"
	case StateEnded:
		return "ended"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Config holds session-wide settings
type Config struct {
	// Nickname is shown to the peer
	Nickname string

	// MatchType is the requested game-specific battle configuration
	MatchType [2]uint8

	// Delay is the input delay window in ticks
	Delay uint32

	// QueueLength bounds how far local sampling may lead remote input
	QueueLength int

	// IsOfferer is true on the dialing side
	IsOfferer bool

	// TickRate is the primary frame rate; zero runs unthrottled
	TickRate int

	// Settings carries the lobby advertisement beyond the nickname
	AvailableGames   []string
	AvailablePatches []protocol.PatchInfo
	GameInfo         *protocol.GameInfo
	RevealSetup      bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Delay:       3,
		QueueLength: 60,
		TickRate:    60,
	}
}

// Adapter is the adapter surface the session needs: everything the
// match consumes plus the shadow hook family
type Adapter interface {
	battle.Adapter
	Name() string
}

// Session owns one netplay connection from lobby to match end
type Session struct {
	cfg Config
	log zerolog.Logger

	ch       network.PacketChannel
	sender   *network.Sender
	receiver *network.Receiver
	pinger   *network.Pinger

	localAdapter  Adapter
	shadowAdapter Adapter

	primaryCore emulator.Core
	shadowCore  emulator.Core
	newFFCore   CoreFactory

	saveData []byte

	joyflags atomic.Uint32

	state atomic.Int32
	match atomic.Pointer[battle.Match]
}

// New creates a session over an established packet channel. The
// shadow core must have the opponent's ROM loaded; the factory builds
// fastforwarder cores with the local ROM.
func New(
	cfg Config,
	ch network.PacketChannel,
	primaryCore emulator.Core,
	newFFCore CoreFactory,
	shadowCore emulator.Core,
	localAdapter, shadowAdapter Adapter,
	saveData []byte,
	log zerolog.Logger,
) *Session {
	sender := network.NewSender(ch)
	s := &Session{
		cfg:           cfg,
		log:           log.With().Str("component", "session").Logger(),
		ch:            ch,
		sender:        sender,
		receiver:      network.NewReceiver(ch),
		pinger:        network.NewPinger(sender, log),
		localAdapter:  localAdapter,
		shadowAdapter: shadowAdapter,
		primaryCore:   primaryCore,
		shadowCore:    shadowCore,
		newFFCore:     newFFCore,
		saveData:      saveData,
	}
	// The channel is already open: the peer is connected and the
	// session is waiting to enter the lobby.
	s.setState(StateWaiting)
	return s
}

// SetJoyflags publishes the local pad state; called from the input
// thread
func (s *Session) SetJoyflags(v uint16) {
	s.joyflags.Store(uint32(v))
}

// Match returns the live match, or nil before negotiation completes
func (s *Session) Match() *battle.Match {
	return s.match.Load()
}

// State reports the connection lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Latency returns the last measured round-trip time
func (s *Session) Latency() time.Duration {
	return s.pinger.Latency()
}

// Run drives the session to completion: negotiate, spawn the shadow,
// then run the primary frame loop until the match ends. Cancellation
// returns nil.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.ch.Close()

	s.setState(StateInLobby)

	settings := protocol.Settings{
		Nickname:         s.cfg.Nickname,
		MatchType:        s.cfg.MatchType,
		GameInfo:         s.cfg.GameInfo,
		AvailableGames:   s.cfg.AvailableGames,
		AvailablePatches: s.cfg.AvailablePatches,
		RevealSetup:      s.cfg.RevealSetup,
	}

	lb := lobby.New(s.sender, s.receiver, s.log)
	// A blocked receive does not watch the context; closing the channel
	// on cancellation unblocks the lobby.
	stopClose := context.AfterFunc(ctx, func() { s.ch.Close() })
	res, err := lb.Negotiate(ctx, settings, s.saveData)
	stopClose()
	if err != nil {
		if ctx.Err() != nil {
			s.setState(StateEnded)
			return nil
		}
		s.setState(StateAborted)
		return fmt.Errorf("negotiate: %w", err)
	}
	s.setState(StateNegotiated)
	s.log.Info().
		Str("remote_nickname", res.RemoteSettings.Nickname).
		Msg("negotiation complete")

	// The shadow plays the opponent: same seed, opposite role.
	localPlayerIndex := 1
	if s.cfg.IsOfferer {
		localPlayerIndex = 0
	}
	shadowState := shadow.NewState(
		res.Seed,
		s.cfg.IsOfferer,
		s.cfg.MatchType,
		1-localPlayerIndex,
		s.log,
	)
	sh := shadow.New(s.shadowCore, s.shadowAdapter, shadowState, s.log)

	if s.cfg.Nickname != "" {
		s.shadowAdapter.ReplaceOpponentName(s.shadowCore, s.cfg.Nickname)
	}
	s.localAdapter.ReplaceOpponentName(s.primaryCore, res.RemoteSettings.Nickname)

	m := battle.New(
		battle.Config{
			Delay:       s.cfg.Delay,
			QueueLength: s.cfg.QueueLength,
			MatchType:   s.cfg.MatchType,
			IsOfferer:   s.cfg.IsOfferer,
		},
		res.Seed,
		s.sender,
		s.localAdapter,
		sh,
		func() (emulator.Core, error) { return s.newFFCore() },
		s.log,
	)
	m.SetOnPong(s.pinger.ObservePong)
	s.match.Store(m)

	facade := battle.NewFacade(m)
	emulator.InstallTraps(s.primaryCore, s.localAdapter.CommonTraps())
	emulator.InstallTraps(s.primaryCore, s.localAdapter.PrimaryTraps(&s.joyflags, facade))

	s.setState(StateInMatch)
	go s.pinger.Run(ctx)

	runErr := make(chan error, 1)
	go func() {
		runErr <- m.Run(ctx, s.receiver)
	}()

	ferr := s.frameLoop(ctx, m)

	cancel()
	s.ch.Close()
	rerr := <-runErr

	if ferr != nil {
		s.setState(StateAborted)
		return ferr
	}
	if m.Ended() && m.Err() == nil {
		// A graceful match end outranks channel teardown noise from
		// the peer hanging up first.
		s.setState(StateEnded)
		return nil
	}
	if err := m.Err(); err != nil {
		s.setState(StateAborted)
		return err
	}
	if rerr != nil && !errors.Is(rerr, context.Canceled) {
		s.setState(StateAborted)
		return rerr
	}
	s.setState(StateEnded)
	return nil
}

// frameLoop is the primary emulator thread: it steps frames at the
// target rate, stalling or catching up based on the tick difference
// with the peer
func (s *Session) frameLoop(ctx context.Context, m *battle.Match) error {
	var ticker *time.Ticker
	if s.cfg.TickRate > 0 {
		ticker = time.NewTicker(time.Second / time.Duration(s.cfg.TickRate))
		defer ticker.Stop()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		if m.Ended() {
			return m.Err()
		}
		if err := m.Err(); err != nil {
			return err
		}

		frames := battle.FramesToRun(m.Status().Dtick, s.cfg.Delay)
		for i := 0; i < frames; i++ {
			s.primaryCore.StepFrame()
		}

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return nil
			}
		} else if frames == 0 {
			// Stalled with no pacing; yield so the receive loop can
			// make progress.
			time.Sleep(time.Millisecond)
		}
	}
}
